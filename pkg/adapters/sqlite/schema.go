package sqlite

// schemaSQL is the authoritative journal schema, applied on Open.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS journal (
	id          TEXT PRIMARY KEY,
	session_id  TEXT,
	operation   TEXT NOT NULL,
	kind        TEXT NOT NULL,
	name        TEXT NOT NULL,
	package     TEXT,
	parent      TEXT,
	success     INTEGER NOT NULL,
	error_kind  TEXT,
	message     TEXT NOT NULL,
	trace       TEXT,
	created_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_journal_created_at ON journal(created_at);
CREATE INDEX IF NOT EXISTS idx_journal_object ON journal(kind, name);
`

// SchemaSQL returns the journal schema.
func SchemaSQL() string {
	return schemaSQL
}
