package db

// workspaceSchemaSQL is applied to every workspace database after it is
// created. Nodes of all labels share one table; edges are a single relation
// table discriminated by rel_type, so deleting a node cascades to its edges.
// The counter table allocates the integer ids that nodes and edges are
// addressed by.
const workspaceSchemaSQL = `
    DEFINE TABLE IF NOT EXISTS node SCHEMALESS;
    DEFINE INDEX IF NOT EXISTS node_label ON node FIELDS label;
    DEFINE INDEX IF NOT EXISTS node_label_name ON node FIELDS label, name;

    DEFINE TABLE IF NOT EXISTS edge TYPE RELATION IN node OUT node SCHEMALESS;
    DEFINE INDEX IF NOT EXISTS edge_rel_type ON edge FIELDS rel_type;

    DEFINE TABLE IF NOT EXISTS counter SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS next ON counter TYPE int DEFAULT 0;
`
