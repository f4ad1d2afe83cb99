package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/stockflow/stockflow-backend/internal/warehouse/domain"
	"github.com/stockflow/stockflow-backend/pkg/database"
	"github.com/stockflow/stockflow-backend/pkg/errors"
)

// BinPurpose marks bins with a special role inside a returns zone.
type BinPurpose string

const (
	PurposeGeneral          BinPurpose = "general"
	PurposeRepairCenter     BinPurpose = "repair_center"
	PurposeExternalProvider BinPurpose = "external_provider"
)

// MasterDataRepository reads warehouses, zones and bins, and maintains the
// local product cache fed by catalog events.
type MasterDataRepository struct {
	q database.Queryer
}

// NewMasterDataRepository creates a new master data repository.
func NewMasterDataRepository(q database.Queryer) *MasterDataRepository {
	return &MasterDataRepository{q: q}
}

// GetProduct gets a cached product by ID.
func (r *MasterDataRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	if err := r.q.GetContext(ctx, &p, `SELECT * FROM products WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("product")
		}
		return nil, err
	}
	return &p, nil
}

// GetActiveProduct gets a cached product and rejects inactive ones.
func (r *MasterDataRepository) GetActiveProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := r.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, errors.BadRequest("product is inactive")
	}
	return p, nil
}

// UpsertProduct writes a product cache row from a catalog event.
func (r *MasterDataRepository) UpsertProduct(ctx context.Context, p *domain.Product) error {
	query := `
		INSERT INTO products (id, sku, name, unit, requires_item_tracking, default_bin_id, is_active, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (id) DO UPDATE SET
			sku = EXCLUDED.sku,
			name = EXCLUDED.name,
			unit = EXCLUDED.unit,
			requires_item_tracking = EXCLUDED.requires_item_tracking,
			default_bin_id = EXCLUDED.default_bin_id,
			is_active = EXCLUDED.is_active,
			updated_at = NOW()
	`
	_, err := r.q.ExecContext(ctx, query,
		p.ID, p.SKU, p.Name, p.Unit, p.RequiresItemTracking, p.DefaultBinID, p.IsActive,
	)
	return database.MapPQError(err)
}

// DeactivateProduct marks a cached product inactive. Stock already on
// hand stays movable through documents that reference it by id.
func (r *MasterDataRepository) DeactivateProduct(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE products SET is_active = false, updated_at = NOW() WHERE id = $1`, id,
	)
	return err
}

// GetWarehouse gets a warehouse by ID.
func (r *MasterDataRepository) GetWarehouse(ctx context.Context, id string) (*domain.Warehouse, error) {
	var w domain.Warehouse
	if err := r.q.GetContext(ctx, &w, `SELECT * FROM warehouses WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("warehouse")
		}
		return nil, err
	}
	return &w, nil
}

// GetBin gets a bin with its warehouse resolved through the zone.
func (r *MasterDataRepository) GetBin(ctx context.Context, id string) (*domain.BinLocation, error) {
	var b domain.BinLocation
	query := `
		SELECT b.id, b.zone_id, b.code, b.is_active, z.warehouse_id
		FROM bin_locations b
		JOIN storage_zones z ON z.id = b.zone_id
		WHERE b.id = $1
	`
	if err := r.q.GetContext(ctx, &b, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("bin location")
		}
		return nil, err
	}
	return &b, nil
}

// GetActiveBin gets a bin and rejects inactive ones.
func (r *MasterDataRepository) GetActiveBin(ctx context.Context, id string) (*domain.BinLocation, error) {
	b, err := r.GetBin(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.IsActive {
		return nil, errors.BadRequest("bin location is inactive")
	}
	return b, nil
}

// FindPurposeBin returns the bin serving a special purpose in a
// warehouse's returns zone, such as the repair center or the
// external-provider location.
func (r *MasterDataRepository) FindPurposeBin(ctx context.Context, warehouseID string, purpose BinPurpose) (*domain.BinLocation, error) {
	var b domain.BinLocation
	query := `
		SELECT b.id, b.zone_id, b.code, b.is_active, z.warehouse_id
		FROM bin_locations b
		JOIN storage_zones z ON z.id = b.zone_id
		WHERE z.warehouse_id = $1 AND b.purpose = $2 AND b.is_active = true
		  AND z.zone_type = 'returns' AND z.is_active = true
		ORDER BY b.code
		LIMIT 1
	`
	if err := r.q.GetContext(ctx, &b, query, warehouseID, purpose); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ValidationMsg(fmt.Sprintf("warehouse has no active %s bin in a returns zone", purpose))
		}
		return nil, err
	}
	return &b, nil
}

// ListBinsByZone lists a zone's active bins.
func (r *MasterDataRepository) ListBinsByZone(ctx context.Context, zoneID string) ([]*domain.BinLocation, error) {
	var bins []*domain.BinLocation
	query := `
		SELECT b.id, b.zone_id, b.code, b.is_active, z.warehouse_id
		FROM bin_locations b
		JOIN storage_zones z ON z.id = b.zone_id
		WHERE b.zone_id = $1 AND b.is_active = true
		ORDER BY b.code
	`
	if err := r.q.SelectContext(ctx, &bins, query, zoneID); err != nil {
		return nil, err
	}
	return bins, nil
}

// ListZones lists a warehouse's zones.
func (r *MasterDataRepository) ListZones(ctx context.Context, warehouseID string) ([]*domain.StorageZone, error) {
	var zones []*domain.StorageZone
	query := `SELECT * FROM storage_zones WHERE warehouse_id = $1 ORDER BY code`
	if err := r.q.SelectContext(ctx, &zones, query, warehouseID); err != nil {
		return nil, err
	}
	return zones, nil
}

// ListWarehouses lists every active warehouse.
func (r *MasterDataRepository) ListWarehouses(ctx context.Context) ([]*domain.Warehouse, error) {
	var rows []*domain.Warehouse
	query := `SELECT * FROM warehouses WHERE is_active = true ORDER BY code`
	if err := r.q.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	return rows, nil
}
