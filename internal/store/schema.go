package store

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	root_path   TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	archived_at TEXT
);

CREATE TABLE IF NOT EXISTS nodes (
	project        TEXT NOT NULL,
	id             TEXT NOT NULL,
	label          TEXT NOT NULL,
	qualified_name TEXT NOT NULL,
	name           TEXT NOT NULL,
	kind           TEXT NOT NULL DEFAULT '',
	signature      TEXT NOT NULL DEFAULT '',
	language       TEXT NOT NULL,
	visibility     TEXT NOT NULL DEFAULT '',
	module_id      TEXT NOT NULL DEFAULT '',
	type_id        TEXT NOT NULL DEFAULT '',
	file_path      TEXT NOT NULL DEFAULT '',
	start_line     INTEGER NOT NULL DEFAULT 0,
	end_line       INTEGER NOT NULL DEFAULT 0,
	path           TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (project, id)
);

CREATE INDEX IF NOT EXISTS idx_nodes_label ON nodes(project, label);
CREATE INDEX IF NOT EXISTS idx_nodes_qualified_name ON nodes(project, qualified_name);
CREATE INDEX IF NOT EXISTS idx_nodes_name ON nodes(project, name);

CREATE TABLE IF NOT EXISTS edges (
	project   TEXT NOT NULL,
	source_id TEXT NOT NULL,
	target_id TEXT NOT NULL,
	rel       TEXT NOT NULL,
	PRIMARY KEY (project, source_id, target_id, rel)
);

CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(project, source_id, rel);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(project, target_id, rel);
`
