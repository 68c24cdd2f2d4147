// Package config resolves HippoGraph's tunables from environment
// variables layered over hard-coded defaults, the way NornicDB's
// pkg/config/dbconfig resolves its own NORNICDB_* keys: one allowed-key
// table for documentation/validation, one Config struct for everyday use.
package config

// KeyMeta describes one recognized configuration key.
type KeyMeta struct {
	Key      string
	Type     string // "string", "number", "boolean", "duration", "list"
	Category string
}

// AllowedKeys returns every HIPPOGRAPH_* environment variable this module
// recognizes, grouped by the §6 "Configuration" categories.
func AllowedKeys() []KeyMeta {
	return []KeyMeta{
		// Blend (§6 blend.*)
		{"HIPPOGRAPH_BLEND_ALPHA", "number", "Blend"},
		{"HIPPOGRAPH_BLEND_BETA", "number", "Blend"},
		{"HIPPOGRAPH_BLEND_GAMMA", "number", "Blend"},
		{"HIPPOGRAPH_BLEND_DELTA", "number", "Blend"},
		{"HIPPOGRAPH_BLEND_STRATEGY", "string", "Blend"}, // blend | rrf
		{"HIPPOGRAPH_RRF_K", "number", "Blend"},
		// Spreading activation (§6 spread.*)
		{"HIPPOGRAPH_SPREAD_ITERATIONS", "number", "Spread"},
		{"HIPPOGRAPH_SPREAD_DECAY", "number", "Spread"},
		{"HIPPOGRAPH_SPREAD_EPSILON", "number", "Spread"},
		// BM25 (§6 bm25.*)
		{"HIPPOGRAPH_BM25_K1", "number", "BM25"},
		{"HIPPOGRAPH_BM25_B", "number", "BM25"},
		{"HIPPOGRAPH_BM25_STOPWORDS_ENABLED", "boolean", "BM25"},
		// Temporal (§6 temporal.*)
		{"HIPPOGRAPH_TEMPORAL_HALF_LIFE_DAYS", "number", "Temporal"},
		{"HIPPOGRAPH_TEMPORAL_ANCHOR_CATEGORIES", "list", "Temporal"},
		// Duplicate detection (§6 dup.*)
		{"HIPPOGRAPH_DUP_BLOCK_THRESHOLD", "number", "Dup"},
		{"HIPPOGRAPH_DUP_WARN_THRESHOLD", "number", "Dup"},
		// Semantic linking at ingest (§6 semantic_link.*)
		{"HIPPOGRAPH_SEMANTIC_LINK_THRESHOLD", "number", "SemanticLink"},
		{"HIPPOGRAPH_SEMANTIC_LINK_MAX_LINKS", "number", "SemanticLink"},
		// Rerank (§6 rerank.*)
		{"HIPPOGRAPH_RERANK_ENABLED", "boolean", "Rerank"},
		{"HIPPOGRAPH_RERANK_WEIGHT", "number", "Rerank"},
		{"HIPPOGRAPH_RERANK_TOP_N", "number", "Rerank"},
		// Hub penalty (§6 hub.*)
		{"HIPPOGRAPH_HUB_THRESHOLD", "number", "Hub"},
		// Sleep scheduler (§6 sleep.*)
		{"HIPPOGRAPH_SLEEP_LIGHT_EVERY_NEW_NODES", "number", "Sleep"},
		{"HIPPOGRAPH_SLEEP_DEEP_INTERVAL", "duration", "Sleep"},
		{"HIPPOGRAPH_SLEEP_STALE_EDGE_DAYS", "number", "Sleep"},
		{"HIPPOGRAPH_SLEEP_STALE_EDGE_FACTOR", "number", "Sleep"},
		{"HIPPOGRAPH_SLEEP_DUP_SCAN_WINDOW", "number", "Sleep"},
		{"HIPPOGRAPH_SLEEP_CONSOLIDATION_SIMILARITY", "number", "Sleep"},
		{"HIPPOGRAPH_SLEEP_CONSOLIDATION_MIN_CLUSTER", "number", "Sleep"},
		{"HIPPOGRAPH_SLEEP_CHAIN_MAX_GAP_DAYS", "duration", "Sleep"},
		// ANN / HNSW
		{"HIPPOGRAPH_ANN_HNSW_M", "number", "ANN"},
		{"HIPPOGRAPH_ANN_HNSW_EF_CONSTRUCTION", "number", "ANN"},
		{"HIPPOGRAPH_ANN_HNSW_EF_SEARCH", "number", "ANN"},
		// Embeddings / vector space identity
		{"HIPPOGRAPH_EMBEDDING_DIMENSIONS", "number", "Embeddings"},
		// Entities
		{"HIPPOGRAPH_ENTITIES_REENRICH_ON_UPDATE", "boolean", "Entities"},
		// Timeouts (§5 defaults)
		{"HIPPOGRAPH_TIMEOUT_EMBED", "duration", "Timeouts"},
		{"HIPPOGRAPH_TIMEOUT_ANN", "duration", "Timeouts"},
		{"HIPPOGRAPH_TIMEOUT_BM25", "duration", "Timeouts"},
		{"HIPPOGRAPH_TIMEOUT_RERANK", "duration", "Timeouts"},
		{"HIPPOGRAPH_TIMEOUT_TOTAL", "duration", "Timeouts"},
		// Store
		{"HIPPOGRAPH_STORE_PATH", "string", "Store"},
	}
}

// AllowedKeysSet indexes AllowedKeys by key name.
func AllowedKeysSet() map[string]KeyMeta {
	set := make(map[string]KeyMeta, len(AllowedKeys()))
	for _, m := range AllowedKeys() {
		set[m.Key] = m
	}
	return set
}

// IsAllowedKey reports whether key is a recognized configuration key.
func IsAllowedKey(key string) bool {
	_, ok := AllowedKeysSet()[key]
	return ok
}
