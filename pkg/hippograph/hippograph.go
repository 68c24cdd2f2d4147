// Package hippograph is the top-level façade: it wires the store, the
// derived indices (ANN, BM25, graph cache, embedding cache), the
// retriever, the maintenance scheduler, and the search logger behind the
// Ingest/Query/Maintenance operations a transport layer (HTTP, MCP — out
// of scope here) would call. Modeled on the teacher's own pkg/nornicdb.DB:
// plain Go methods guarded by a mutex and a closed flag, no framework.
package hippograph

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hippograph/core/pkg/ann"
	"github.com/hippograph/core/pkg/bm25"
	"github.com/hippograph/core/pkg/config"
	"github.com/hippograph/core/pkg/embedcache"
	"github.com/hippograph/core/pkg/graphcache"
	"github.com/hippograph/core/pkg/retriever"
	"github.com/hippograph/core/pkg/searchlog"
	"github.com/hippograph/core/pkg/sleep"
	"github.com/hippograph/core/pkg/store"
	"github.com/hippograph/core/pkg/temporal"
)

// ErrClosed is returned by every DB method once Close has run.
var ErrClosed = errors.New("hippograph: closed")

// Dependencies holds the external services §6 names as contracts only,
// plus the deep-sleep RelationExtractor. A nil Embedder, EntityExtractor
// or DateResolver gets the matching disabled/no-op implementation; a nil
// Reranker or RelationExtractor stays nil and its optional step is
// skipped. Either way a DB is constructible and exercisable without a
// single one of them wired — mirroring §4.6.3's failure-mode fallbacks.
type Dependencies struct {
	Embedder          retriever.Embedder
	EntityExtractor   EntityExtractor
	Reranker          retriever.Reranker
	DateResolver      temporal.DateResolver
	RelationExtractor sleep.RelationExtractor
}

func (d Dependencies) resolve() Dependencies {
	if d.Embedder == nil {
		d.Embedder = noopEmbedder{}
	}
	if d.EntityExtractor == nil {
		d.EntityExtractor = noopEntityExtractor{}
	}
	if d.DateResolver == nil {
		d.DateResolver = temporal.NoopDateResolver{}
	}
	// Reranker and RelationExtractor stay nil: both retriever and sleep
	// already treat a nil value as "skip this optional step".
	return d
}

// DB is one HippoGraph instance: one store file, one set of in-memory
// indices rebuilt from it on Open, one background maintenance scheduler.
type DB struct {
	mu     sync.RWMutex
	closed bool

	store      *store.Engine
	ann        *ann.Index
	bm25       *bm25.Index
	graphCache *graphcache.Cache
	embedCache *embedcache.Cache

	deps   Dependencies
	config *config.Config

	retriever *retriever.Retriever
	sleep     *sleep.Runner
	scheduler *sleep.Scheduler
	searchLog *searchlog.Logger
}

// Open opens the store at path, rebuilds every derived index from it
// (§4.2's "on version mismatch are rebuilt from the database; the
// database is the source of truth" — here applied unconditionally, since
// no auxiliary index file is persisted), and starts the background
// maintenance scheduler. Call Close when done.
func Open(path string, cfg *config.Config, deps Dependencies) (*DB, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	deps = deps.resolve()

	eng, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("hippograph: open store: %w", err)
	}

	annIndex := ann.New(cfg.EmbeddingDimensions, toANNConfig(cfg.ANN))
	bm25Index := bm25.New(toBM25Config(cfg.BM25))
	gc, err := graphcache.Rebuild(eng)
	if err != nil {
		eng.Close()
		return nil, fmt.Errorf("hippograph: rebuild graph cache: %w", err)
	}
	ec, err := embedcache.Rebuild(eng)
	if err != nil {
		eng.Close()
		return nil, fmt.Errorf("hippograph: rebuild embed cache: %w", err)
	}
	if err := rebuildSearchIndices(eng, annIndex, bm25Index); err != nil {
		eng.Close()
		return nil, fmt.Errorf("hippograph: rebuild search indices: %w", err)
	}

	db := &DB{
		store:      eng,
		ann:        annIndex,
		bm25:       bm25Index,
		graphCache: gc,
		embedCache: ec,
		deps:       deps,
		config:     cfg,
	}

	db.retriever = retriever.New(eng, annIndex, bm25Index, gc, deps.Embedder, deps.Reranker, deps.DateResolver, cfg)
	db.sleep = sleep.NewRunner(eng, annIndex, gc, deps.RelationExtractor, cfg)
	db.scheduler = sleep.NewScheduler(db.sleep, cfg.Sleep.LightEveryNewNodes, cfg.Sleep.DeepInterval)
	db.searchLog = searchlog.New(eng, 0)

	db.scheduler.Start(context.Background())
	return db, nil
}

func rebuildSearchIndices(eng *store.Engine, annIndex *ann.Index, bm25Index *bm25.Index) error {
	return eng.IterNodes(func(n *store.Node) error {
		if len(n.Embedding) > 0 {
			if err := annIndex.Add(string(n.ID), n.Embedding); err != nil {
				return err
			}
		}
		bm25Index.Add(string(n.ID), n.Content)
		return nil
	})
}

func toANNConfig(c config.ANNConfig) ann.Config {
	d := ann.DefaultConfig()
	d.M = c.M
	d.EfConstruction = c.EfConstruction
	d.EfSearch = c.EfSearch
	return d
}

func toBM25Config(c config.BM25Config) bm25.Config {
	return bm25.Config{K1: c.K1, B: c.B, StopwordsEnabled: c.StopwordsEnabled}
}

// Close stops the maintenance scheduler and closes the store.
func (db *DB) Close() error {
	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return nil
	}
	db.closed = true
	db.mu.Unlock()

	db.scheduler.Stop()
	return db.store.Close()
}

func (db *DB) ensureOpen() error {
	if db.closed {
		return ErrClosed
	}
	return nil
}

// Stats is the Query API's stats() response.
type Stats struct {
	Nodes       int
	Edges       int
	Entities    int
	Categories  map[string]int
	TopPageRank []PageRankEntry
	Communities int
}

// PageRankEntry is one node in Stats.TopPageRank.
type PageRankEntry struct {
	NodeID   store.NodeID
	PageRank float64
}

// Stats computes §6's stats() response by scanning the store.
func (db *DB) Stats() (Stats, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if err := db.ensureOpen(); err != nil {
		return Stats{}, err
	}

	stats := Stats{Categories: make(map[string]int)}
	communities := make(map[int]bool)
	var ranked []PageRankEntry

	err := db.store.IterNodes(func(n *store.Node) error {
		stats.Nodes++
		stats.Categories[n.Category]++
		if n.CommunityID >= 0 {
			communities[n.CommunityID] = true
		}
		ranked = append(ranked, PageRankEntry{NodeID: n.ID, PageRank: n.PageRank})
		return nil
	})
	if err != nil {
		return Stats{}, err
	}
	if err := db.store.IterEdges(func(*store.Edge) error { stats.Edges++; return nil }); err != nil {
		return Stats{}, err
	}
	if err := db.store.IterEntities(func(*store.Entity) error { stats.Entities++; return nil }); err != nil {
		return Stats{}, err
	}

	sortByPageRankDesc(ranked)
	if len(ranked) > 10 {
		ranked = ranked[:10]
	}
	stats.TopPageRank = ranked
	stats.Communities = len(communities)
	return stats, nil
}

func sortByPageRankDesc(entries []PageRankEntry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].PageRank > entries[j-1].PageRank; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

// GraphNeighbor is one entry in GetGraph's response.
type GraphNeighbor struct {
	NodeID store.NodeID
	Weight float64
	Type   store.EdgeType
}

// GetGraph returns id's immediate neighbors from the graph cache.
func (db *DB) GetGraph(id store.NodeID) ([]GraphNeighbor, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if err := db.ensureOpen(); err != nil {
		return nil, err
	}

	neighbors := db.graphCache.Neighbors(id)
	out := make([]GraphNeighbor, 0, len(neighbors))
	for _, n := range neighbors {
		out = append(out, GraphNeighbor{NodeID: n.ID, Weight: n.Weight, Type: n.Type})
	}
	return out, nil
}
