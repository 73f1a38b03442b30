package sqlstore

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS organization_layouts (
		organization_id TEXT PRIMARY KEY,
		instances JSONB NOT NULL DEFAULT '[]',
		status TEXT NOT NULL DEFAULT 'published',
		version BIGINT NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS organization_layout_versions (
		id BIGSERIAL PRIMARY KEY,
		organization_id TEXT NOT NULL,
		status TEXT NOT NULL,
		instances JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		created_by TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_layout_versions_org ON organization_layout_versions (organization_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS user_layout_overrides (
		organization_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		instances JSONB NOT NULL DEFAULT '[]',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (organization_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS organization_features (
		organization_id TEXT NOT NULL,
		feature TEXT NOT NULL,
		enabled BOOLEAN NOT NULL DEFAULT false,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (organization_id, feature)
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS organization_layouts (
		organization_id TEXT PRIMARY KEY,
		instances TEXT NOT NULL DEFAULT '[]',
		status TEXT NOT NULL DEFAULT 'published',
		version INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS organization_layout_versions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		organization_id TEXT NOT NULL,
		status TEXT NOT NULL,
		instances TEXT NOT NULL DEFAULT '[]',
		created_at TIMESTAMP NOT NULL,
		created_by TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_layout_versions_org ON organization_layout_versions (organization_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS user_layout_overrides (
		organization_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		instances TEXT NOT NULL DEFAULT '[]',
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (organization_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS organization_features (
		organization_id TEXT NOT NULL,
		feature TEXT NOT NULL,
		enabled BOOLEAN NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (organization_id, feature)
	)`,
}
