package consumers

import (
	"context"

	"github.com/stockflow/stockflow-backend/internal/warehouse/domain"
	"github.com/stockflow/stockflow-backend/internal/warehouse/repository"
	"github.com/stockflow/stockflow-backend/pkg/logger"
	"github.com/stockflow/stockflow-backend/pkg/messaging"
)

// CatalogEventConsumer keeps the local product cache in sync with the
// catalog service.
type CatalogEventConsumer struct {
	consumer   *messaging.Consumer
	masterData *repository.MasterDataRepository
	logger     *logger.Logger
}

// NewCatalogEventConsumer creates a new catalog event consumer.
func NewCatalogEventConsumer(rmq *messaging.RabbitMQ, masterData *repository.MasterDataRepository, log *logger.Logger) (*CatalogEventConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, "warehouse-service.catalog-events", log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeCatalogEvents, "catalog.product.#"); err != nil {
		return nil, err
	}

	c := &CatalogEventConsumer{
		consumer:   consumer,
		masterData: masterData,
		logger:     log,
	}

	consumer.RegisterHandler(messaging.EventProductCreated, c.handleProductUpserted)
	consumer.RegisterHandler(messaging.EventProductUpdated, c.handleProductUpserted)
	consumer.RegisterHandler(messaging.EventProductDeleted, c.handleProductDeleted)

	return c, nil
}

// Start starts consuming messages.
func (c *CatalogEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (c *CatalogEventConsumer) handleProductUpserted(ctx context.Context, event *messaging.Event) error {
	var data messaging.ProductUpsertedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().
		Str("product_id", data.ProductID).
		Str("sku", data.SKU).
		Msg("received product upsert event")

	return c.masterData.UpsertProduct(ctx, &domain.Product{
		ID:                   data.ProductID,
		SKU:                  data.SKU,
		Name:                 data.Name,
		Unit:                 data.Unit,
		RequiresItemTracking: data.RequiresItemTracking,
		DefaultBinID:         data.DefaultBinID,
		IsActive:             data.IsActive,
	})
}

func (c *CatalogEventConsumer) handleProductDeleted(ctx context.Context, event *messaging.Event) error {
	var data messaging.ProductDeletedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().
		Str("product_id", data.ProductID).
		Msg("received product deleted event")

	return c.masterData.DeactivateProduct(ctx, data.ProductID)
}
