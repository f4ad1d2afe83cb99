package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// ProductFixture represents test product master data
type ProductFixture struct {
	ID                   string
	SKU                  string
	Name                 string
	Unit                 string
	RequiresItemTracking bool
	DefaultBinID         *string
	IsActive             bool
}

// WarehouseFixture represents test warehouse data
type WarehouseFixture struct {
	ID       string
	Code     string
	Name     string
	IsActive bool
}

// ZoneFixture represents test storage zone data
type ZoneFixture struct {
	ID          string
	WarehouseID string
	Code        string
	ZoneType    string
	IsActive    bool
}

// BinFixture represents test bin location data
type BinFixture struct {
	ID       string
	ZoneID   string
	Code     string
	Purpose  string
	IsActive bool
}

// StockFixture represents a seeded inventory row
type StockFixture struct {
	ID            string
	ProductID     string
	BinLocationID string
	Quantity      decimal.Decimal
	Unit          string
}

// BatchFixture represents a seeded inventory batch
type BatchFixture struct {
	ID            string
	ProductID     string
	BinLocationID string
	BatchNumber   string
	Quantity      decimal.Decimal
	Unit          string
	ExpiryDate    *time.Time
}

// FixtureFactory creates test fixtures with sensible defaults
type FixtureFactory struct {
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{sequence: 0}
}

// nextSeq returns the next sequence number for unique values
func (f *FixtureFactory) nextSeq() int {
	f.sequence++
	return f.sequence
}

// Product creates a product fixture with defaults
func (f *FixtureFactory) Product(opts ...func(*ProductFixture)) ProductFixture {
	seq := f.nextSeq()

	p := ProductFixture{
		ID:       uuid.New().String(),
		SKU:      fmt.Sprintf("SKU-%04d", seq),
		Name:     fmt.Sprintf("Test Product %d", seq),
		Unit:     "piece",
		IsActive: true,
	}

	for _, opt := range opts {
		opt(&p)
	}

	return p
}

// WithTracking makes the product serial-tracked
func WithTracking() func(*ProductFixture) {
	return func(p *ProductFixture) {
		p.RequiresItemTracking = true
	}
}

// WithDefaultBin sets the product's default storage bin
func WithDefaultBin(binID string) func(*ProductFixture) {
	return func(p *ProductFixture) {
		p.DefaultBinID = &binID
	}
}

// Warehouse creates a warehouse fixture with defaults
func (f *FixtureFactory) Warehouse(opts ...func(*WarehouseFixture)) WarehouseFixture {
	seq := f.nextSeq()

	w := WarehouseFixture{
		ID:       uuid.New().String(),
		Code:     fmt.Sprintf("WH-%02d", seq),
		Name:     fmt.Sprintf("Test Warehouse %d", seq),
		IsActive: true,
	}

	for _, opt := range opts {
		opt(&w)
	}

	return w
}

// Zone creates a storage zone fixture in the given warehouse
func (f *FixtureFactory) Zone(warehouseID string, opts ...func(*ZoneFixture)) ZoneFixture {
	seq := f.nextSeq()

	z := ZoneFixture{
		ID:          uuid.New().String(),
		WarehouseID: warehouseID,
		Code:        fmt.Sprintf("Z-%02d", seq),
		ZoneType:    "storage",
		IsActive:    true,
	}

	for _, opt := range opts {
		opt(&z)
	}

	return z
}

// WithZoneType overrides the zone's type.
func WithZoneType(zoneType string) func(*ZoneFixture) {
	return func(z *ZoneFixture) {
		z.ZoneType = zoneType
	}
}

// Bin creates a bin fixture in the given zone
func (f *FixtureFactory) Bin(zoneID string, opts ...func(*BinFixture)) BinFixture {
	seq := f.nextSeq()

	b := BinFixture{
		ID:       uuid.New().String(),
		ZoneID:   zoneID,
		Code:     fmt.Sprintf("BIN-%03d", seq),
		Purpose:  "general",
		IsActive: true,
	}

	for _, opt := range opts {
		opt(&b)
	}

	return b
}

// WithPurpose sets the bin's special purpose
func WithPurpose(purpose string) func(*BinFixture) {
	return func(b *BinFixture) {
		b.Purpose = purpose
	}
}

// SeedProduct inserts a product fixture
func SeedProduct(ctx context.Context, db *sqlx.DB, p ProductFixture) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO products (id, sku, name, unit, requires_item_tracking, default_bin_id, is_active, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`, p.ID, p.SKU, p.Name, p.Unit, p.RequiresItemTracking, p.DefaultBinID, p.IsActive)
	return err
}

// SeedWarehouse inserts a warehouse fixture
func SeedWarehouse(ctx context.Context, db *sqlx.DB, w WarehouseFixture) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO warehouses (id, code, name, is_active)
		VALUES ($1, $2, $3, $4)
	`, w.ID, w.Code, w.Name, w.IsActive)
	return err
}

// SeedZone inserts a storage zone fixture
func SeedZone(ctx context.Context, db *sqlx.DB, z ZoneFixture) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO storage_zones (id, warehouse_id, code, zone_type, is_active)
		VALUES ($1, $2, $3, $4, $5)
	`, z.ID, z.WarehouseID, z.Code, z.ZoneType, z.IsActive)
	return err
}

// SeedBin inserts a bin location fixture
func SeedBin(ctx context.Context, db *sqlx.DB, b BinFixture) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO bin_locations (id, zone_id, code, purpose, is_active)
		VALUES ($1, $2, $3, $4, $5)
	`, b.ID, b.ZoneID, b.Code, b.Purpose, b.IsActive)
	return err
}

// SeedStock inserts an inventory row directly, bypassing document posting
func SeedStock(ctx context.Context, db *sqlx.DB, s StockFixture) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Unit == "" {
		s.Unit = "piece"
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO inventory (id, product_id, bin_location_id, quantity, reserved_quantity, unit)
		VALUES ($1, $2, $3, $4, 0, $5)
	`, s.ID, s.ProductID, s.BinLocationID, s.Quantity, s.Unit)
	return err
}

// SeedBatch inserts an inventory batch directly
func SeedBatch(ctx context.Context, db *sqlx.DB, b BatchFixture) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.Unit == "" {
		b.Unit = "piece"
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO inventory_batches (id, product_id, bin_location_id, batch_number, quantity, unit, expiry_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, b.ID, b.ProductID, b.BinLocationID, b.BatchNumber, b.Quantity, b.Unit, b.ExpiryDate)
	return err
}
