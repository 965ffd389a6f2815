package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of SQLite schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS prompts (
	id             TEXT PRIMARY KEY,
	title          TEXT NOT NULL,
	summary        TEXT NOT NULL DEFAULT '',
	system_prompt  TEXT NOT NULL DEFAULT '',
	add_sys_prompt TEXT NOT NULL DEFAULT '[]',
	model          TEXT NOT NULL,
	inputs         TEXT NOT NULL DEFAULT '["text"]',
	persist_inputs TEXT NOT NULL DEFAULT '[]',
	created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS cards (
	id                   TEXT PRIMARY KEY,
	chat_id              INTEGER NOT NULL,
	sender               TEXT NOT NULL DEFAULT '',
	summary              TEXT NOT NULL DEFAULT '',
	urgency              TEXT NOT NULL DEFAULT 'low'
		CHECK(urgency IN ('low', 'medium', 'high')),
	suggested_action     TEXT NOT NULL DEFAULT '',
	reply_options        TEXT NOT NULL DEFAULT '[]',
	conversation_history TEXT NOT NULL DEFAULT '[]',
	timestamp            DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cards_chat_id ON cards(chat_id);
CREATE INDEX IF NOT EXISTS idx_cards_timestamp ON cards(timestamp);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS reply_log (
	id           TEXT PRIMARY KEY,
	card_id      TEXT NOT NULL,
	chat_id      INTEGER NOT NULL,
	chat_history TEXT NOT NULL DEFAULT '[]',
	chosen_reply TEXT NOT NULL DEFAULT '[]',
	metadata     TEXT NOT NULL DEFAULT '{}',
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_reply_log_created ON reply_log(created_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
	{
		version: 3,
		sql: `
ALTER TABLE cards ADD COLUMN calendar_details TEXT NOT NULL DEFAULT '';

INSERT INTO schema_version (version) VALUES (3);
`,
	},
}

// pgMigrations mirrors migrations for Postgres.
var pgMigrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS prompts (
	id             TEXT PRIMARY KEY,
	title          TEXT NOT NULL,
	summary        TEXT NOT NULL DEFAULT '',
	system_prompt  TEXT NOT NULL DEFAULT '',
	add_sys_prompt TEXT NOT NULL DEFAULT '[]',
	model          TEXT NOT NULL,
	inputs         TEXT NOT NULL DEFAULT '["text"]',
	persist_inputs TEXT NOT NULL DEFAULT '[]',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS cards (
	id                   TEXT PRIMARY KEY,
	chat_id              BIGINT NOT NULL,
	sender               TEXT NOT NULL DEFAULT '',
	summary              TEXT NOT NULL DEFAULT '',
	urgency              TEXT NOT NULL DEFAULT 'low'
		CHECK(urgency IN ('low', 'medium', 'high')),
	suggested_action     TEXT NOT NULL DEFAULT '',
	reply_options        TEXT NOT NULL DEFAULT '[]',
	conversation_history TEXT NOT NULL DEFAULT '[]',
	timestamp            TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cards_chat_id ON cards(chat_id);
CREATE INDEX IF NOT EXISTS idx_cards_timestamp ON cards(timestamp);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS reply_log (
	id           TEXT PRIMARY KEY,
	card_id      TEXT NOT NULL,
	chat_id      BIGINT NOT NULL,
	chat_history TEXT NOT NULL DEFAULT '[]',
	chosen_reply TEXT NOT NULL DEFAULT '[]',
	metadata     TEXT NOT NULL DEFAULT '{}',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_reply_log_created ON reply_log(created_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
	{
		version: 3,
		sql: `
ALTER TABLE cards ADD COLUMN calendar_details TEXT NOT NULL DEFAULT '';

INSERT INTO schema_version (version) VALUES (3);
`,
	},
}
