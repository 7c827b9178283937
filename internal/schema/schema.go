// Package schema holds the on-disk DDL for both store variants and the
// constants that identify a file as belonging to this store family.
package schema

const (
	// ApplicationID is the fixed sqlite application_id tag ("GPLG").
	ApplicationID = 0x47504C47

	// VersionRecording is the user_version for the append-optimised schema.
	VersionRecording = 1

	// VersionAnalysis is the user_version for the filter-optimised schema.
	VersionAnalysis = 2

	// PageSize is the sqlite page size set on every newly created file.
	PageSize = 65536
)

// dictionaryDDL creates the four name dictionaries and the tag table,
// shared verbatim by both schema variants.
const dictionaryDDL = `
CREATE TABLE IF NOT EXISTS processes (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_processes_name ON processes(name);

CREATE TABLE IF NOT EXISTS applications (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_applications_name ON applications(name);

CREATE TABLE IF NOT EXISTS writers (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_writers_name ON writers(name);

CREATE TABLE IF NOT EXISTS levels (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_levels_name ON levels(name);

CREATE TABLE IF NOT EXISTS tags (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_tags_name ON tags(name);

CREATE TABLE IF NOT EXISTS message_tags (
	message_id INTEGER NOT NULL,
	tag_id     INTEGER NOT NULL,
	PRIMARY KEY (message_id, tag_id)
);
CREATE INDEX IF NOT EXISTS idx_message_tags_tag ON message_tags(tag_id);
`

// RecordingDDL is the schema for PurposeRecording (version 1): a single
// messages table optimised for a single INSERT per write, with a
// timestamp index to serve prune(min_timestamp) without a full scan.
const RecordingDDL = dictionaryDDL + `
CREATE TABLE IF NOT EXISTS messages (
	id                       INTEGER PRIMARY KEY,
	timestamp                INTEGER NOT NULL,
	timezone_offset           INTEGER NOT NULL,
	high_precision_timestamp INTEGER NOT NULL,
	lost_message_count       INTEGER NOT NULL DEFAULT 0,
	process_id               INTEGER NOT NULL,
	process_name_id          INTEGER NOT NULL REFERENCES processes(id),
	application_name_id      INTEGER NOT NULL REFERENCES applications(id),
	writer_name_id           INTEGER NOT NULL REFERENCES writers(id),
	level_name_id            INTEGER NOT NULL REFERENCES levels(id),
	has_tags                 INTEGER NOT NULL DEFAULT 0,
	text                     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp);
`

// AnalysisDDL is the schema for PurposeAnalysis (version 2): the same
// columns as RecordingDDL plus a denormalised tag_count and a composite
// index on (level_name_id, timestamp) to serve level-scoped range scans
// without a dictionary join — the query shape analysis tools favor.
const AnalysisDDL = dictionaryDDL + `
CREATE TABLE IF NOT EXISTS messages (
	id                       INTEGER PRIMARY KEY,
	timestamp                INTEGER NOT NULL,
	timezone_offset           INTEGER NOT NULL,
	high_precision_timestamp INTEGER NOT NULL,
	lost_message_count       INTEGER NOT NULL DEFAULT 0,
	process_id               INTEGER NOT NULL,
	process_name_id          INTEGER NOT NULL REFERENCES processes(id),
	application_name_id      INTEGER NOT NULL REFERENCES applications(id),
	writer_name_id           INTEGER NOT NULL REFERENCES writers(id),
	level_name_id            INTEGER NOT NULL REFERENCES levels(id),
	has_tags                 INTEGER NOT NULL DEFAULT 0,
	tag_count                INTEGER NOT NULL DEFAULT 0,
	text                     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp);
CREATE INDEX IF NOT EXISTS idx_messages_level_timestamp ON messages(level_name_id, timestamp);
`
