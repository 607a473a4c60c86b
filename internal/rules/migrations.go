package rules

// migrations are applied in order; each entry bumps schema_version.
var migrations = []struct {
	version int
	sql     string
}{
	{
		version: 1,
		sql: `
			CREATE TABLE IF NOT EXISTS schema_version (
				version INTEGER PRIMARY KEY
			);

			CREATE TABLE IF NOT EXISTS automation_records (
				id         TEXT NOT NULL,
				account_id TEXT NOT NULL,
				thread_id  TEXT NOT NULL,
				rule_id    TEXT NOT NULL,
				status     TEXT NOT NULL,
				reason     TEXT NOT NULL DEFAULT '',
				actions    TEXT NOT NULL DEFAULT '[]',
				created_at TIMESTAMP NOT NULL,
				PRIMARY KEY (account_id, id)
			);

			CREATE INDEX IF NOT EXISTS idx_records_account_thread
				ON automation_records (account_id, thread_id, status);

			CREATE TABLE IF NOT EXISTS thread_categories (
				account_id TEXT NOT NULL,
				thread_id  TEXT NOT NULL,
				value      TEXT NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				PRIMARY KEY (account_id, thread_id)
			);

			INSERT INTO schema_version (version) VALUES (1);
		`,
	},
}
