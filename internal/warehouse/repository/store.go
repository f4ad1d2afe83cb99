package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/stockflow/stockflow-backend/pkg/database"
)

// Repos bundles every repository bound to one Queryer, so a workflow can
// run all of its reads and writes on a single transaction.
type Repos struct {
	Inventory          *InventoryRepository
	Batches            *BatchRepository
	Serials            *SerialRepository
	Movements          *MovementRepository
	Receipts           *ReceiptRepository
	Issues             *IssueRepository
	Transfers          *TransferRepository
	WarehouseTransfers *WarehouseTransferRepository
	Returns            *ReturnOrderRepository
	Stocktakes         *StocktakeRepository
	Alerts             *AlertRepository
	PurchaseOrders     *PurchaseOrderRepository
	MasterData         *MasterDataRepository
}

// NewRepos builds the repository set on top of q, which may be the pooled
// database or an open transaction.
func NewRepos(q database.Queryer) *Repos {
	return &Repos{
		Inventory:          NewInventoryRepository(q),
		Batches:            NewBatchRepository(q),
		Serials:            NewSerialRepository(q),
		Movements:          NewMovementRepository(q),
		Receipts:           NewReceiptRepository(q),
		Issues:             NewIssueRepository(q),
		Transfers:          NewTransferRepository(q),
		WarehouseTransfers: NewWarehouseTransferRepository(q),
		Returns:            NewReturnOrderRepository(q),
		Stocktakes:         NewStocktakeRepository(q),
		Alerts:             NewAlertRepository(q),
		PurchaseOrders:     NewPurchaseOrderRepository(q),
		MasterData:         NewMasterDataRepository(q),
	}
}

// Store is the unit-of-work entry point. Plain reads go through Repos();
// document workflows go through RunInTx so that every stock mutation and
// its movement rows commit or roll back together.
type Store struct {
	db *database.DB
}

// NewStore creates a store on the shared connection pool.
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// Repos returns repositories bound to the pool, outside any transaction.
func (s *Store) Repos() *Repos {
	return NewRepos(s.db)
}

// RunInTx runs fn inside a database transaction, handing it repositories
// bound to that transaction. fn returning an error rolls everything back.
func (s *Store) RunInTx(ctx context.Context, fn func(r *Repos) error) error {
	return s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		return fn(NewRepos(tx))
	})
}
