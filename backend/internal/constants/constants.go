package constants

// Server defaults
const (
	// DefaultPort is the HTTP port when PORT is unset
	DefaultPort = "8080"
)

// Graph data defaults
const (
	// DefaultNamespace scopes graph and interaction data when GRAPH_NAMESPACE is unset
	DefaultNamespace = "default_graph"

	// DefaultDocumentPath is the source document loaded at startup
	DefaultDocumentPath = "data/knowledge_graph.json"

	// DefaultInteractionsFile is the local interaction log
	DefaultInteractionsFile = "data/interactions_log.json"
)

// Neo4j defaults
const (
	// DefaultNeo4jUser is used when NEO4J_USER is unset
	DefaultNeo4jUser = "neo4j"

	// DefaultConnectTimeoutSeconds bounds connectivity verification at startup
	DefaultConnectTimeoutSeconds = 5

	// DefaultQueryTimeoutSeconds bounds every statement
	DefaultQueryTimeoutSeconds = 30
)
