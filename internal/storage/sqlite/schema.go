package sqlite

// Schema DDL. The items table is a query cache; the JSONL file next to the
// database is the source of truth and is reloaded on every Open.
const (
	createItems = `CREATE TABLE IF NOT EXISTS items (
    id TEXT PRIMARY KEY,
    data TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	idxItemsUpdated = `CREATE INDEX IF NOT EXISTS idx_items_updated ON items(updated_at);`
)

// schemaDDL lists every statement executed on Open, in order.
var schemaDDL = []string{
	createItems,
	idxItemsUpdated,
}

// Statements used by the provider.
const (
	stmtUpsert = `INSERT INTO items (id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`
	stmtSelectData = `SELECT data FROM items WHERE id = ?`
	stmtDelete     = `DELETE FROM items WHERE id = ?`
	stmtSelectIDs  = `SELECT id FROM items ORDER BY id`
	stmtSelectAll  = `SELECT id, data, updated_at FROM items ORDER BY id`
)
