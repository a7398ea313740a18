package sqlitescene

// formatVersion is kept in PRAGMA user_version.
const formatVersion = 1

// sceneParent is the parent name recorded for links under the scene root.
// Datablock names are never empty, so it cannot collide.
const sceneParent = ""

const (
	kindCollection = "collection"
	kindObject     = "object"
	kindScene      = "scene"
)

const createSchema = `
CREATE TABLE IF NOT EXISTS payloads (
	name     TEXT PRIMARY KEY,
	kind     TEXT NOT NULL,
	position INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS collections (
	name     TEXT PRIMARY KEY,
	position INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS objects (
	name     TEXT PRIMARY KEY,
	payload  TEXT REFERENCES payloads(name),
	position INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS links (
	parent     TEXT NOT NULL,
	child      TEXT NOT NULL,
	child_kind TEXT NOT NULL CHECK (child_kind IN ('collection', 'object')),
	position   INTEGER NOT NULL,
	PRIMARY KEY (parent, child_kind, child)
);
CREATE TABLE IF NOT EXISTS props (
	owner      TEXT NOT NULL,
	owner_kind TEXT NOT NULL CHECK (owner_kind IN ('collection', 'object', 'scene')),
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	PRIMARY KEY (owner, owner_kind, key)
);
`

const clearTables = `
DELETE FROM links;
DELETE FROM props;
DELETE FROM objects;
DELETE FROM collections;
DELETE FROM payloads;
`
