package testutil

// WarehouseSchema is the DDL for the warehouse service, applied to test
// containers before integration tests run. Constraint names matter: the
// database error mapper keys on them to produce typed errors.
const WarehouseSchema = `
	CREATE TABLE IF NOT EXISTS products (
		id UUID PRIMARY KEY,
		sku VARCHAR(100) NOT NULL,
		name VARCHAR(255) NOT NULL,
		unit VARCHAR(50) NOT NULL DEFAULT 'piece',
		requires_item_tracking BOOLEAN NOT NULL DEFAULT false,
		default_bin_id UUID,
		is_active BOOLEAN NOT NULL DEFAULT true,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS warehouses (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		code VARCHAR(50) UNIQUE NOT NULL,
		name VARCHAR(255) NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT true
	);

	CREATE TABLE IF NOT EXISTS storage_zones (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		warehouse_id UUID NOT NULL REFERENCES warehouses(id),
		code VARCHAR(50) NOT NULL,
		zone_type VARCHAR(50) NOT NULL DEFAULT 'storage',
		is_active BOOLEAN NOT NULL DEFAULT true
	);

	CREATE TABLE IF NOT EXISTS bin_locations (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		zone_id UUID NOT NULL REFERENCES storage_zones(id),
		code VARCHAR(50) NOT NULL,
		purpose VARCHAR(50) NOT NULL DEFAULT 'general',
		is_active BOOLEAN NOT NULL DEFAULT true
	);

	CREATE TABLE IF NOT EXISTS inventory (
		id UUID PRIMARY KEY,
		product_id UUID NOT NULL REFERENCES products(id),
		bin_location_id UUID NOT NULL REFERENCES bin_locations(id),
		quantity NUMERIC(18,3) NOT NULL DEFAULT 0,
		reserved_quantity NUMERIC(18,3) NOT NULL DEFAULT 0,
		unit VARCHAR(50) NOT NULL DEFAULT 'piece',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT inventory_product_bin_key UNIQUE (product_id, bin_location_id),
		CONSTRAINT inventory_quantity_non_negative CHECK (quantity >= 0),
		CONSTRAINT inventory_reserved_within_quantity CHECK (reserved_quantity >= 0 AND reserved_quantity <= quantity)
	);

	CREATE TABLE IF NOT EXISTS inventory_batches (
		id UUID PRIMARY KEY,
		product_id UUID NOT NULL REFERENCES products(id),
		bin_location_id UUID NOT NULL REFERENCES bin_locations(id),
		batch_number VARCHAR(100) NOT NULL,
		quantity NUMERIC(18,3) NOT NULL DEFAULT 0,
		unit VARCHAR(50) NOT NULL DEFAULT 'piece',
		expiry_date DATE,
		manufactured_at DATE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT batches_product_bin_batch_number_key UNIQUE (product_id, bin_location_id, batch_number),
		CONSTRAINT batch_quantity_non_negative CHECK (quantity >= 0)
	);

	CREATE TABLE IF NOT EXISTS serial_numbers (
		id UUID PRIMARY KEY,
		serial_number VARCHAR(100) NOT NULL,
		product_id UUID NOT NULL REFERENCES products(id),
		batch_id UUID REFERENCES inventory_batches(id),
		current_bin_id UUID REFERENCES bin_locations(id),
		status VARCHAR(50) NOT NULL DEFAULT 'in_stock',
		last_movement_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT serial_number_key UNIQUE (serial_number)
	);

	CREATE TABLE IF NOT EXISTS stock_movements (
		id UUID PRIMARY KEY,
		movement_type VARCHAR(50) NOT NULL,
		reference_type VARCHAR(50) NOT NULL,
		reference_number VARCHAR(50) NOT NULL,
		product_id UUID NOT NULL,
		from_bin_id UUID,
		to_bin_id UUID,
		quantity NUMERIC(18,3) NOT NULL,
		unit VARCHAR(50) NOT NULL DEFAULT 'piece',
		performed_by UUID NOT NULL,
		performed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		metadata JSONB NOT NULL DEFAULT '{}',
		CONSTRAINT movement_quantity_positive CHECK (quantity > 0)
	);
	CREATE INDEX IF NOT EXISTS idx_movements_product ON stock_movements(product_id, performed_at DESC);
	CREATE INDEX IF NOT EXISTS idx_movements_reference ON stock_movements(reference_type, reference_number);

	CREATE TABLE IF NOT EXISTS goods_receipts (
		id UUID PRIMARY KEY,
		receipt_number VARCHAR(50) NOT NULL,
		source VARCHAR(50) NOT NULL,
		status VARCHAR(50) NOT NULL DEFAULT 'draft',
		notes TEXT,
		created_by UUID NOT NULL,
		completed_by UUID,
		completed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT gr_document_number_key UNIQUE (receipt_number)
	);

	CREATE TABLE IF NOT EXISTS goods_receipt_items (
		id UUID PRIMARY KEY,
		goods_receipt_id UUID NOT NULL REFERENCES goods_receipts(id) ON DELETE CASCADE,
		position INT NOT NULL,
		product_id UUID NOT NULL,
		expected_quantity NUMERIC(18,3),
		received_quantity NUMERIC(18,3) NOT NULL,
		unit VARCHAR(50) NOT NULL DEFAULT 'piece',
		target_bin_id UUID,
		batch_number VARCHAR(100),
		expiry_date DATE,
		manufactured_at DATE,
		serial_numbers TEXT[],
		condition VARCHAR(50) NOT NULL DEFAULT 'new',
		purchase_order_item_id UUID
	);

	CREATE TABLE IF NOT EXISTS goods_issues (
		id UUID PRIMARY KEY,
		issue_number VARCHAR(50) NOT NULL,
		status VARCHAR(50) NOT NULL DEFAULT 'draft',
		reason TEXT,
		created_by UUID NOT NULL,
		completed_by UUID,
		completed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT gi_document_number_key UNIQUE (issue_number)
	);

	CREATE TABLE IF NOT EXISTS goods_issue_items (
		id UUID PRIMARY KEY,
		goods_issue_id UUID NOT NULL REFERENCES goods_issues(id) ON DELETE CASCADE,
		position INT NOT NULL,
		product_id UUID NOT NULL,
		requested_quantity NUMERIC(18,3) NOT NULL,
		issued_quantity NUMERIC(18,3),
		unit VARCHAR(50) NOT NULL DEFAULT 'piece',
		source_bin_id UUID NOT NULL,
		batch_number VARCHAR(100),
		use_fefo BOOLEAN NOT NULL DEFAULT false,
		serial_numbers TEXT[]
	);

	CREATE TABLE IF NOT EXISTS stock_transfers (
		id UUID PRIMARY KEY,
		transfer_number VARCHAR(50) NOT NULL,
		status VARCHAR(50) NOT NULL DEFAULT 'draft',
		notes TEXT,
		created_by UUID NOT NULL,
		completed_by UUID,
		completed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT st_document_number_key UNIQUE (transfer_number)
	);

	CREATE TABLE IF NOT EXISTS stock_transfer_items (
		id UUID PRIMARY KEY,
		stock_transfer_id UUID NOT NULL REFERENCES stock_transfers(id) ON DELETE CASCADE,
		position INT NOT NULL,
		product_id UUID NOT NULL,
		quantity NUMERIC(18,3) NOT NULL,
		unit VARCHAR(50) NOT NULL DEFAULT 'piece',
		from_bin_id UUID NOT NULL,
		to_bin_id UUID NOT NULL,
		batch_number VARCHAR(100),
		use_fefo BOOLEAN NOT NULL DEFAULT false,
		serial_numbers TEXT[]
	);

	CREATE TABLE IF NOT EXISTS warehouse_transfers (
		id UUID PRIMARY KEY,
		transfer_number VARCHAR(50) NOT NULL,
		source_warehouse_id UUID NOT NULL REFERENCES warehouses(id),
		target_warehouse_id UUID NOT NULL REFERENCES warehouses(id),
		status VARCHAR(50) NOT NULL DEFAULT 'draft',
		notes TEXT,
		created_by UUID NOT NULL,
		dispatched_by UUID,
		dispatched_at TIMESTAMPTZ,
		received_by UUID,
		received_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT wt_document_number_key UNIQUE (transfer_number)
	);

	CREATE TABLE IF NOT EXISTS warehouse_transfer_items (
		id UUID PRIMARY KEY,
		warehouse_transfer_id UUID NOT NULL REFERENCES warehouse_transfers(id) ON DELETE CASCADE,
		position INT NOT NULL,
		product_id UUID NOT NULL,
		requested_quantity NUMERIC(18,3) NOT NULL,
		dispatched_quantity NUMERIC(18,3) NOT NULL DEFAULT 0,
		unit VARCHAR(50) NOT NULL DEFAULT 'piece',
		from_bin_id UUID NOT NULL,
		to_bin_id UUID NOT NULL,
		batch_number VARCHAR(100),
		expiry_date DATE,
		manufactured_at DATE,
		serial_numbers TEXT[]
	);

	CREATE TABLE IF NOT EXISTS return_orders (
		id UUID PRIMARY KEY,
		order_number VARCHAR(50) NOT NULL,
		source_type VARCHAR(50) NOT NULL,
		status VARCHAR(50) NOT NULL DEFAULT 'draft',
		notes TEXT,
		created_by UUID NOT NULL,
		processed_by UUID,
		processed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT ro_document_number_key UNIQUE (order_number)
	);

	CREATE TABLE IF NOT EXISTS return_order_items (
		id UUID PRIMARY KEY,
		return_order_id UUID NOT NULL REFERENCES return_orders(id) ON DELETE CASCADE,
		position INT NOT NULL,
		product_id UUID NOT NULL,
		quantity NUMERIC(18,3) NOT NULL,
		unit VARCHAR(50) NOT NULL DEFAULT 'piece',
		target_bin_id UUID NOT NULL,
		decision VARCHAR(50) NOT NULL DEFAULT '',
		serial_number VARCHAR(100),
		batch_number VARCHAR(100),
		repair_state VARCHAR(50),
		goods_receipt_item_id UUID
	);

	CREATE TABLE IF NOT EXISTS stocktakes (
		id UUID PRIMARY KEY,
		stocktake_number VARCHAR(50) NOT NULL,
		warehouse_id UUID NOT NULL REFERENCES warehouses(id),
		status VARCHAR(50) NOT NULL DEFAULT 'draft',
		notes TEXT,
		created_by UUID NOT NULL,
		completed_by UUID,
		completed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT sc_document_number_key UNIQUE (stocktake_number)
	);

	CREATE TABLE IF NOT EXISTS stocktake_items (
		id UUID PRIMARY KEY,
		stocktake_id UUID NOT NULL REFERENCES stocktakes(id) ON DELETE CASCADE,
		position INT NOT NULL,
		product_id UUID NOT NULL,
		bin_location_id UUID NOT NULL,
		counted_quantity NUMERIC(18,3) NOT NULL,
		unit VARCHAR(50) NOT NULL DEFAULT 'piece'
	);

	CREATE TABLE IF NOT EXISTS alert_rules (
		id UUID PRIMARY KEY,
		rule_type VARCHAR(50) NOT NULL,
		product_id UUID,
		warehouse_id UUID,
		threshold NUMERIC(18,3),
		window_days INT,
		dedupe_window_sec INT,
		auto_draft_po BOOLEAN NOT NULL DEFAULT false,
		is_active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS stock_alerts (
		id UUID PRIMARY KEY,
		rule_id UUID NOT NULL REFERENCES alert_rules(id),
		alert_type VARCHAR(50) NOT NULL,
		source_key VARCHAR(255) NOT NULL,
		product_id UUID NOT NULL,
		warehouse_id UUID,
		batch_id UUID,
		message TEXT NOT NULL,
		quantity NUMERIC(18,3),
		threshold NUMERIC(18,3),
		status VARCHAR(50) NOT NULL DEFAULT 'open',
		acknowledged_by UUID,
		acknowledged_at TIMESTAMPTZ,
		resolved_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_alerts_dedupe ON stock_alerts(rule_id, alert_type, source_key, created_at);

	CREATE TABLE IF NOT EXISTS purchase_orders (
		id UUID PRIMARY KEY,
		order_number VARCHAR(50) NOT NULL,
		supplier_id UUID,
		status VARCHAR(50) NOT NULL DEFAULT 'draft',
		supplier_confirmed BOOLEAN NOT NULL DEFAULT false,
		created_by UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT po_document_number_key UNIQUE (order_number)
	);

	CREATE TABLE IF NOT EXISTS purchase_order_items (
		id UUID PRIMARY KEY,
		purchase_order_id UUID NOT NULL REFERENCES purchase_orders(id) ON DELETE CASCADE,
		product_id UUID NOT NULL,
		ordered_quantity NUMERIC(18,3) NOT NULL,
		received_quantity NUMERIC(18,3) NOT NULL DEFAULT 0,
		unit VARCHAR(50) NOT NULL DEFAULT 'piece'
	);

	CREATE TABLE IF NOT EXISTS supplier_products (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		supplier_id UUID NOT NULL,
		product_id UUID NOT NULL,
		minimum_order_multiple NUMERIC(18,3) NOT NULL DEFAULT 1,
		is_preferred BOOLEAN NOT NULL DEFAULT false
	);

	CREATE SEQUENCE IF NOT EXISTS goods_receipt_number_seq;
	CREATE SEQUENCE IF NOT EXISTS goods_issue_number_seq;
	CREATE SEQUENCE IF NOT EXISTS stock_transfer_number_seq;
	CREATE SEQUENCE IF NOT EXISTS warehouse_transfer_number_seq;
	CREATE SEQUENCE IF NOT EXISTS return_order_number_seq;
	CREATE SEQUENCE IF NOT EXISTS stocktake_number_seq;
	CREATE SEQUENCE IF NOT EXISTS purchase_order_number_seq;
`
