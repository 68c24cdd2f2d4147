// Package store is the badger-backed persistence layer for a HippoGraph
// instance: memory nodes, the edges connecting them, the entities linked
// out of them, per-node version history, and the search log. Every
// mutation goes through a single writer; reads are served from badger
// snapshots directly, with no separate read cache layer.
package store

import "time"

// NodeID identifies a memory node. IDs are store-generated UUIDv4 strings.
type NodeID string

// EdgeID identifies an edge between two nodes.
type EdgeID string

// EntityID identifies a canonicalized entity.
type EntityID string

// EdgeType enumerates the kinds of edges the maintenance cycle and the
// entity linker create between nodes.
type EdgeType string

const (
	EdgeTypeAssociation   EdgeType = "association"
	EdgeTypeEntity        EdgeType = "entity"
	EdgeTypeTemporalChain EdgeType = "temporal_chain"
	EdgeTypeConsolidation EdgeType = "consolidation"
)

// Importance is one of the three discrete levels a node can carry; the
// retriever maps each to an activation multiplier.
type Importance string

const (
	ImportanceCritical Importance = "critical"
	ImportanceNormal   Importance = "normal"
	ImportanceLow      Importance = "low"
)

// ImportanceMultiplier returns the activation multiplier for a level:
// critical 2.0, normal 1.0, low 0.5. Unknown or empty levels default to
// normal.
func ImportanceMultiplier(level Importance) float64 {
	switch level {
	case ImportanceCritical:
		return 2.0
	case ImportanceLow:
		return 0.5
	default:
		return 1.0
	}
}

// LessImportant orders importance levels low < normal < critical, used by
// the anchor-boost maintenance step to decide whether a promotion applies.
func (i Importance) LessImportant(other Importance) bool {
	rank := map[Importance]int{ImportanceLow: 0, ImportanceNormal: 1, ImportanceCritical: 2}
	return rank[i] < rank[other]
}

// Node is one unit of stored memory.
type Node struct {
	ID           NodeID     `msgpack:"id"`
	Content      string     `msgpack:"content"`
	Category     string     `msgpack:"category"`
	Embedding    []float32  `msgpack:"embedding"`
	CreatedAt    time.Time  `msgpack:"created_at"`
	LastAccessed time.Time  `msgpack:"last_accessed"`
	AccessCount  int        `msgpack:"access_count"`
	Importance   Importance `msgpack:"importance"`

	EmotionalTone       string  `msgpack:"emotional_tone,omitempty"`
	EmotionalIntensity  float64 `msgpack:"emotional_intensity,omitempty"`
	EmotionalReflection string  `msgpack:"emotional_reflection,omitempty"`

	// Bi-temporal event window, independent from CreatedAt (the storage
	// timestamp). Zero value means the note has no known event time.
	TEventStart time.Time `msgpack:"t_event_start,omitempty"`
	TEventEnd   time.Time `msgpack:"t_event_end,omitempty"`

	TemporalExpressions []string `msgpack:"temporal_expressions,omitempty"`

	// Written only by the sleep cycle.
	PageRank    float64 `msgpack:"pagerank,omitempty"`
	CommunityID int     `msgpack:"community_id,omitempty"`
}

// Edge connects two nodes with a typed, weighted relationship. Each edge
// is stored as one record, indexed under both its source and its target
// for traversal. Edges are conceptually undirected except for
// EdgeTypeTemporalChain, where Source precedes Target in time.
type Edge struct {
	ID            EdgeID    `msgpack:"id"`
	Source        NodeID    `msgpack:"source_id"`
	Target        NodeID    `msgpack:"target_id"`
	Weight        float64   `msgpack:"weight"`
	Type          EdgeType  `msgpack:"edge_type"`
	CreatedAt     time.Time `msgpack:"created_at"`
	LastTouchedAt time.Time `msgpack:"last_touched_at"`
}

// Entity is a canonicalized named thing (person, place, project, ...)
// extracted from node content and shared across every node that mentions it.
type Entity struct {
	ID         EntityID `msgpack:"id"`
	Name       string   `msgpack:"name"`
	EntityType string   `msgpack:"entity_type"`
}

// NodeVersion is a single snapshot in a node's edit history. The store
// keeps at most the 5 most recent versions per node.
type NodeVersion struct {
	NodeID        NodeID    `msgpack:"node_id"`
	VersionNumber int       `msgpack:"version_number"`
	Content       string    `msgpack:"content"`
	Category      string    `msgpack:"category"`
	SavedAt       time.Time `msgpack:"saved_at"`
}

// SearchLogRecord is one completed query, recorded for offline analysis
// and p50/p95/p99 latency aggregation.
type SearchLogRecord struct {
	ID               int64     `msgpack:"id"`
	QueryHash        int64     `msgpack:"query_hash"`
	QueryCleaned     string    `msgpack:"query_cleaned"`
	IsTemporal       bool      `msgpack:"is_temporal"`
	TemporalDir      string    `msgpack:"temporal_direction,omitempty"`
	LimitRequested   int       `msgpack:"limit_requested"`
	CategoryFilter   string    `msgpack:"category_filter,omitempty"`
	ResultsCount     int       `msgpack:"results_count"`
	TotalActivated   int       `msgpack:"total_activated"`
	Top1Score        float64   `msgpack:"top1_score"`
	Top1NodeID       NodeID    `msgpack:"top1_node_id,omitempty"`
	RerankEnabled    bool      `msgpack:"rerank_enabled"`
	LatencyTotalMs   float64   `msgpack:"latency_total_ms"`
	LatencyEmbedMs   float64   `msgpack:"latency_embed_ms"`
	LatencyANNMs     float64   `msgpack:"latency_ann_ms"`
	LatencySpreadMs  float64   `msgpack:"latency_spreading_ms"`
	LatencyBM25Ms    float64   `msgpack:"latency_bm25_ms"`
	LatencyTemporal  float64   `msgpack:"latency_temporal_ms"`
	LatencyRerankMs  float64   `msgpack:"latency_rerank_ms"`
	Timestamp        time.Time `msgpack:"timestamp"`
}
