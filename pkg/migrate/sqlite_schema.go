package migrate

// SQLiteSchema mirrors the goose migrations for the embedded SQLite driver used
// in local runs and tests. Keep it in step with migrations/.
var SQLiteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE COLLATE NOCASE,
		email TEXT NOT NULL UNIQUE COLLATE NOCASE,
		password_hash TEXT NOT NULL,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		phone TEXT,
		role TEXT NOT NULL DEFAULT 'customer',
		is_active BOOLEAN NOT NULL DEFAULT 1,
		last_login_at DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS plans (
		id TEXT PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		price NUMERIC NOT NULL CHECK (price >= 0),
		currency TEXT NOT NULL DEFAULT 'INR',
		features TEXT NOT NULL DEFAULT '[]',
		description TEXT NOT NULL DEFAULT '',
		is_popular BOOLEAN NOT NULL DEFAULT 0,
		is_available BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS user_plans (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		plan_id TEXT NOT NULL REFERENCES plans(id),
		category TEXT NOT NULL,
		activation_date DATETIME NOT NULL,
		renewal_date DATETIME NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		auto_renewal BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_user_plans_active_category
		ON user_plans (user_id, category) WHERE status = 'active'`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		plan_id TEXT NOT NULL REFERENCES plans(id),
		user_plan_id TEXT REFERENCES user_plans(id),
		refund_of_id TEXT REFERENCES transactions(id),
		amount NUMERIC NOT NULL,
		currency TEXT NOT NULL DEFAULT 'INR',
		payment_method TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		failure_reason TEXT,
		transaction_reference TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_transactions_refund_of
		ON transactions (refund_of_id) WHERE refund_of_id IS NOT NULL`,
}
