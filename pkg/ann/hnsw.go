// Package ann provides approximate nearest-neighbor search over node
// embeddings using the HNSW graph algorithm. It is the semantic-search
// half of the retrieval pipeline: pkg/bm25 covers keyword matching,
// pkg/graphcache covers the associative-edge half.
package ann

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/hippograph/core/pkg/vectormath"
)

var (
	ErrDimensionMismatch = errors.New("ann: vector dimension mismatch")
	ErrEmptyID           = errors.New("ann: id must not be empty")
)

// Config tunes the HNSW graph build/search tradeoff.
type Config struct {
	M               int     // max connections per node per layer
	EfConstruction  int     // candidate list size during insertion
	EfSearch        int     // candidate list size during search
	LevelMultiplier float64 // 1/ln(M), controls expected layer count
}

// DefaultConfig matches the values named throughout the retrieval spec.
func DefaultConfig() Config {
	return Config{
		M:               16,
		EfConstruction:  200,
		EfSearch:        100,
		LevelMultiplier: 1.0 / math.Log(16.0),
	}
}

// Result is one scored hit from Search. Score is cosine similarity in
// [-1, 1], not a distance.
type Result struct {
	ID    string
	Score float32
}

type node struct {
	vec       []float32 // L2-normalized
	level     int
	neighbors [][]uint32 // neighbors[level] = neighbor internal ids
	deleted   bool
}

// Index is an HNSW approximate nearest-neighbor index.
//
// Delete policy: Remove tombstones the node (deleted=true) rather than
// rewiring its neighbors' links, the same tradeoff most production HNSW
// implementations make to keep deletes cheap. The index has no in-place
// compaction: tombstones stay until the index is rebuilt from scratch (the
// hippograph package re-adds every stored embedding on Open). The entry
// point is reselected from the surviving set if the removed node held it.
type Index struct {
	mu         sync.RWMutex
	config     Config
	dimensions int

	nodes        []*node
	idToInternal map[string]uint32
	internalToID []string
	liveCount    int

	entryPoint    uint32
	hasEntryPoint bool
	maxLevel      int

	rng *rand.Rand
}

// New creates an empty index for vectors of the given dimensionality.
func New(dimensions int, config Config) *Index {
	if config.M == 0 {
		config = DefaultConfig()
	}
	return &Index{
		config:       config,
		dimensions:   dimensions,
		idToInternal: make(map[string]uint32),
		rng:          rand.New(rand.NewSource(1)),
	}
}

func (ix *Index) randomLevel() int {
	level := 0
	p := 1.0 / math.E
	if ix.config.LevelMultiplier > 0 {
		p = math.Exp(-1.0 / ix.config.LevelMultiplier)
	}
	for ix.rng.Float64() < p && level < 32 {
		level++
	}
	return level
}

// Add inserts or replaces the vector for id. An existing id is removed
// and reinserted (Remove()+Add()).
func (ix *Index) Add(id string, vec []float32) error {
	if id == "" {
		return ErrEmptyID
	}
	if len(vec) != ix.dimensions {
		return ErrDimensionMismatch
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if internalID, ok := ix.idToInternal[id]; ok && !ix.nodes[internalID].deleted {
		ix.removeLocked(internalID)
	}

	normalized := append([]float32(nil), vec...)
	vectormath.L2Normalize(normalized)

	level := ix.randomLevel()
	internalID := uint32(len(ix.nodes))
	n := &node{vec: normalized, level: level, neighbors: make([][]uint32, level+1)}
	ix.nodes = append(ix.nodes, n)
	ix.internalToID = append(ix.internalToID, id)
	ix.idToInternal[id] = internalID
	ix.liveCount++

	if !ix.hasEntryPoint {
		ix.entryPoint = internalID
		ix.hasEntryPoint = true
		ix.maxLevel = level
		return nil
	}

	ep := ix.entryPoint
	epLevel := ix.nodes[ep].level
	for l := epLevel; l > level; l-- {
		ep = ix.greedyDescend(normalized, ep, l)
	}

	for l := min(level, epLevel); l >= 0; l-- {
		candidates := ix.searchLayer(normalized, ep, ix.config.EfConstruction, l)
		neighbors := ix.selectNeighbors(normalized, candidates, ix.config.M)
		n.neighbors[l] = neighbors
		for _, nb := range neighbors {
			ix.linkLocked(nb, l, internalID)
		}
		if len(candidates) > 0 {
			ep = candidates[0]
		}
	}

	if level > ix.maxLevel {
		ix.entryPoint = internalID
		ix.maxLevel = level
	}
	return nil
}

// linkLocked adds internalID as a neighbor of nb at level l, evicting the
// nb's furthest existing neighbor if it is already at capacity.
func (ix *Index) linkLocked(nb uint32, l int, internalID uint32) {
	if int(nb) >= len(ix.nodes) || ix.nodes[nb].deleted || l >= len(ix.nodes[nb].neighbors) {
		return
	}
	cur := ix.nodes[nb].neighbors[l]
	if len(cur) < ix.config.M {
		ix.nodes[nb].neighbors[l] = append(cur, internalID)
		return
	}
	// At capacity: keep the M closest to nb's own vector.
	candidates := append(append([]uint32{}, cur...), internalID)
	kept := ix.selectNeighbors(ix.nodes[nb].vec, candidates, ix.config.M)
	ix.nodes[nb].neighbors[l] = kept
}

// Remove tombstones id, excluding it from future search results.
func (ix *Index) Remove(id string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	internalID, ok := ix.idToInternal[id]
	if !ok || ix.nodes[internalID].deleted {
		return
	}
	ix.removeLocked(internalID)
}

func (ix *Index) removeLocked(internalID uint32) {
	ix.nodes[internalID].deleted = true
	ix.liveCount--

	if ix.hasEntryPoint && ix.entryPoint == internalID {
		ix.hasEntryPoint = false
		ix.maxLevel = 0
		for i, n := range ix.nodes {
			if !n.deleted {
				ix.entryPoint = uint32(i)
				ix.hasEntryPoint = true
				if n.level > ix.maxLevel {
					ix.maxLevel = n.level
				}
			}
		}
	}
}

// Len returns the number of live (non-tombstoned) vectors.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.liveCount
}

// Search returns up to k nearest neighbors to query scoring at least
// minSimilarity, ordered by descending score.
func (ix *Index) Search(ctx context.Context, query []float32, k int, minSimilarity float64) ([]Result, error) {
	if len(query) != ix.dimensions {
		return nil, ErrDimensionMismatch
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if !ix.hasEntryPoint {
		return []Result{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	normalized := append([]float32(nil), query...)
	vectormath.L2Normalize(normalized)

	ep := ix.entryPoint
	for l := ix.maxLevel; l > 0; l-- {
		ep = ix.greedyDescend(normalized, ep, l)
	}

	ef := ix.config.EfSearch
	if ef < k {
		ef = k
	}
	candidates := ix.searchLayer(normalized, ep, ef, 0)

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		score := float32(vectormath.Dot(normalized, ix.nodes[c].vec))
		if float64(score) < minSimilarity {
			continue
		}
		results = append(results, Result{ID: ix.internalToID[c], Score: score})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// greedyDescend walks from ep toward the closest node to query at a
// single layer, stopping when no neighbor improves on the current node.
func (ix *Index) greedyDescend(query []float32, ep uint32, level int) uint32 {
	best := ep
	bestScore := vectormath.Dot(query, ix.nodes[ep].vec)
	for {
		improved := false
		for _, nb := range ix.neighborsAt(best, level) {
			if ix.nodes[nb].deleted {
				continue
			}
			score := vectormath.Dot(query, ix.nodes[nb].vec)
			if score > bestScore {
				bestScore = score
				best = nb
				improved = true
			}
		}
		if !improved {
			return best
		}
	}
}

func (ix *Index) neighborsAt(id uint32, level int) []uint32 {
	n := ix.nodes[id]
	if level >= len(n.neighbors) {
		return nil
	}
	return n.neighbors[level]
}

// searchLayer performs a beam search at level, returning up to ef
// candidate internal ids ordered by descending similarity to query.
func (ix *Index) searchLayer(query []float32, ep uint32, ef int, level int) []uint32 {
	visited := map[uint32]bool{ep: true}
	type scored struct {
		id    uint32
		score float64
	}
	candidates := []scored{{ep, vectormath.Dot(query, ix.nodes[ep].vec)}}
	frontier := []uint32{ep}

	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		for _, nb := range ix.neighborsAt(cur, level) {
			if visited[nb] || ix.nodes[nb].deleted {
				continue
			}
			visited[nb] = true
			score := vectormath.Dot(query, ix.nodes[nb].vec)
			candidates = append(candidates, scored{nb, score})
			frontier = append(frontier, nb)
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > ef {
		candidates = candidates[:ef]
	}
	out := make([]uint32, len(candidates))
	for i, c := range candidates {
		out[i] = c.id
	}
	return out
}

// selectNeighbors keeps the m candidates closest to query.
func (ix *Index) selectNeighbors(query []float32, candidates []uint32, m int) []uint32 {
	type scored struct {
		id    uint32
		score float64
	}
	scoredCands := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		scoredCands = append(scoredCands, scored{c, vectormath.Dot(query, ix.nodes[c].vec)})
	}
	sort.Slice(scoredCands, func(i, j int) bool { return scoredCands[i].score > scoredCands[j].score })
	if len(scoredCands) > m {
		scoredCands = scoredCands[:m]
	}
	out := make([]uint32, len(scoredCands))
	for i, c := range scoredCands {
		out[i] = c.id
	}
	return out
}

// persistedIndex is the on-disk shape written by Save/loaded by Load.
// formatVersion lets a future layout change fall back to an older decoder.
type persistedIndex struct {
	FormatVersion int        `msgpack:"format_version"`
	Dimensions    int        `msgpack:"dimensions"`
	Config        Config     `msgpack:"config"`
	IDs           []string   `msgpack:"ids"`
	Vectors       [][]float32 `msgpack:"vectors"`
	Levels        []int      `msgpack:"levels"`
	Neighbors     [][][]uint32 `msgpack:"neighbors"`
	Deleted       []bool     `msgpack:"deleted"`
	EntryPoint    uint32     `msgpack:"entry_point"`
	HasEntryPoint bool       `msgpack:"has_entry_point"`
	MaxLevel      int        `msgpack:"max_level"`
}

const persistedFormatVersion = 1

// Marshal serializes the index, tombstones included, so Unmarshal restores
// search results identical to the pre-save index.
func (ix *Index) Marshal() ([]byte, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	p := persistedIndex{
		FormatVersion: persistedFormatVersion,
		Dimensions:    ix.dimensions,
		Config:        ix.config,
		IDs:           append([]string{}, ix.internalToID...),
		EntryPoint:    ix.entryPoint,
		HasEntryPoint: ix.hasEntryPoint,
		MaxLevel:      ix.maxLevel,
	}
	for _, n := range ix.nodes {
		p.Vectors = append(p.Vectors, n.vec)
		p.Levels = append(p.Levels, n.level)
		p.Neighbors = append(p.Neighbors, n.neighbors)
		p.Deleted = append(p.Deleted, n.deleted)
	}
	data, err := msgpack.Marshal(&p)
	if err != nil {
		return nil, fmt.Errorf("ann: marshal failed: %w", err)
	}
	return data, nil
}

// Unmarshal loads an index previously produced by Marshal.
func Unmarshal(data []byte) (*Index, error) {
	var p persistedIndex
	if err := msgpack.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("ann: unmarshal failed: %w", err)
	}
	if p.FormatVersion != persistedFormatVersion {
		return nil, fmt.Errorf("ann: unsupported format version %d", p.FormatVersion)
	}

	ix := New(p.Dimensions, p.Config)
	ix.entryPoint = p.EntryPoint
	ix.hasEntryPoint = p.HasEntryPoint
	ix.maxLevel = p.MaxLevel
	ix.internalToID = p.IDs
	ix.idToInternal = make(map[string]uint32, len(p.IDs))
	for i, id := range p.IDs {
		ix.idToInternal[id] = uint32(i)
	}
	for i := range p.Vectors {
		n := &node{
			vec:       p.Vectors[i],
			level:     p.Levels[i],
			neighbors: p.Neighbors[i],
			deleted:   p.Deleted[i],
		}
		ix.nodes = append(ix.nodes, n)
		if !n.deleted {
			ix.liveCount++
		}
	}
	return ix, nil
}
