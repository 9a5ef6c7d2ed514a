package storage

// Quantities are stored with domain.QuantityScale fractional digits. Binary
// collation keeps item identity byte-exact, matching MemoryStore.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS items (
		id CHAR(36) NOT NULL PRIMARY KEY,
		name VARCHAR(191) NOT NULL,
		quantity DECIMAL(20,4) NOT NULL,
		batch_no VARCHAR(64) NOT NULL DEFAULT '',
		expiry_date DATETIME NULL,
		low_stock_threshold DECIMAL(20,4) NOT NULL DEFAULT 0,
		location VARCHAR(128) NOT NULL,
		unit VARCHAR(32) NOT NULL DEFAULT '',
		category VARCHAR(64) NOT NULL DEFAULT '',
		created_by VARCHAR(64) NOT NULL DEFAULT '',
		version BIGINT NOT NULL DEFAULT 1,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		UNIQUE KEY uk_items_identity (name, batch_no, location),
		KEY idx_items_location (location),
		CONSTRAINT chk_items_quantity CHECK (quantity >= 0)
	) DEFAULT CHARSET = utf8mb4 COLLATE = utf8mb4_bin`,
	`CREATE TABLE IF NOT EXISTS adjustment_logs (
		seq BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		id CHAR(36) NOT NULL,
		item_id CHAR(36) NOT NULL,
		destination_item_id CHAR(36) NOT NULL DEFAULT '',
		delta DECIMAL(20,4) NOT NULL,
		reason TEXT NOT NULL,
		type VARCHAR(16) NOT NULL,
		actor_id VARCHAR(64) NOT NULL,
		subject_id VARCHAR(64) NOT NULL DEFAULT '',
		request_id VARCHAR(36) NOT NULL DEFAULT '',
		from_location VARCHAR(128) NOT NULL DEFAULT '',
		to_location VARCHAR(128) NOT NULL DEFAULT '',
		created_by VARCHAR(64) NOT NULL DEFAULT '',
		created_at DATETIME(6) NOT NULL,
		UNIQUE KEY uk_adjustment_logs_id (id),
		KEY idx_adjustment_logs_item (item_id, seq),
		KEY idx_adjustment_logs_destination (destination_item_id, seq)
	) DEFAULT CHARSET = utf8mb4 COLLATE = utf8mb4_bin`,
	`CREATE TABLE IF NOT EXISTS inventory_requests (
		id CHAR(36) NOT NULL PRIMARY KEY,
		requesting_unit VARCHAR(128) NOT NULL,
		requested_by VARCHAR(64) NOT NULL,
		status VARCHAR(16) NOT NULL,
		approved_by VARCHAR(64) NOT NULL DEFAULT '',
		rejected_by VARCHAR(64) NOT NULL DEFAULT '',
		fulfilled_by VARCHAR(64) NOT NULL DEFAULT '',
		notes TEXT NOT NULL,
		version BIGINT NOT NULL DEFAULT 1,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		KEY idx_inventory_requests_status (status)
	) DEFAULT CHARSET = utf8mb4 COLLATE = utf8mb4_bin`,
	`CREATE TABLE IF NOT EXISTS request_lines (
		request_id CHAR(36) NOT NULL,
		line_no INT NOT NULL,
		item_id CHAR(36) NOT NULL,
		quantity DECIMAL(20,4) NOT NULL,
		unit VARCHAR(32) NOT NULL DEFAULT '',
		PRIMARY KEY (request_id, line_no),
		KEY idx_request_lines_item (item_id)
	) DEFAULT CHARSET = utf8mb4 COLLATE = utf8mb4_bin`,
}
