// Package retriever implements HippoGraph's hybrid read path: temporal
// decomposition, embedding, approximate nearest-neighbor search,
// spreading activation over the graph cache, BM25 keyword matching,
// temporal overlap scoring, weighted blend (or RRF) fusion, optional
// cross-encoder rerank, and the final recency/importance/filter/sort pass.
package retriever

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/hippograph/core/pkg/ann"
	"github.com/hippograph/core/pkg/bm25"
	"github.com/hippograph/core/pkg/config"
	"github.com/hippograph/core/pkg/graphcache"
	"github.com/hippograph/core/pkg/store"
	"github.com/hippograph/core/pkg/temporal"
	"github.com/hippograph/core/pkg/vectormath"
)

// ErrEmptyQuery is returned for a blank or whitespace-only query text.
var ErrEmptyQuery = errors.New("retriever: empty query")

// ErrTimeout is returned when the query exceeds Config.Timeouts.Total
// across the pipeline as a whole, even if every individual phase stayed
// within its own soft per-phase timeout.
var ErrTimeout = errors.New("retriever: total timeout exceeded")

// Embedder turns text into an L2-normalized vector. Implementations may
// fail transiently; the retriever degrades to BM25+temporal on error.
type Embedder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}

// Reranker cross-encodes a query against a batch of candidate texts,
// returning one score per text in the same order. Optional: a nil
// Reranker on Retriever skips step 9 entirely.
type Reranker interface {
	Score(ctx context.Context, query string, texts []string) ([]float32, error)
}

// Filters narrows results post-blend, per step 11.
type Filters struct {
	Category   string
	TimeAfter  time.Time
	TimeBefore time.Time
	EntityType string
}

// Query is one retrieval request.
type Query struct {
	Text       string
	Filters    Filters
	MaxResults int    // default 5, capped at 20
	DetailMode string // "brief" or "full"

	// Overrides, zero value means "use configured default".
	BlendOverride *config.BlendConfig
}

// Result is one scored hit, with enough diagnostic breakdown for the
// search logger and for API responses in detail_mode=full.
type Result struct {
	NodeID         store.NodeID
	Score          float64
	Semantic       float64
	Activation     float64
	BM25           float64
	Temporal       float64
	Rerank         float64
	PageRank       float64
	ContentPreview string
	Degraded       bool
}

// Diagnostics carries per-phase timing and flags for the search log.
type Diagnostics struct {
	EmbedMs       float64
	ANNMs         float64
	SpreadMs      float64
	BM25Ms        float64
	TemporalMs    float64
	RerankMs      float64
	TotalMs       float64
	ANNCandidates int
	Degraded      bool
	ZeroResults   bool
}

// Retriever wires together the read-side indices. It holds no write path:
// pkg/hippograph's ingest flow is what feeds Store/ANN/BM25/GraphCache.
type Retriever struct {
	Store      *store.Engine
	ANN        *ann.Index
	BM25       *bm25.Index
	GraphCache *graphcache.Cache
	Embedder   Embedder
	Reranker   Reranker
	DateResolver temporal.DateResolver
	Config     *config.Config
}

// New constructs a Retriever. DateResolver defaults to
// temporal.NoopDateResolver if nil.
func New(eng *store.Engine, annIndex *ann.Index, bm25Index *bm25.Index, gc *graphcache.Cache, embedder Embedder, reranker Reranker, dateResolver temporal.DateResolver, cfg *config.Config) *Retriever {
	if dateResolver == nil {
		dateResolver = temporal.NoopDateResolver{}
	}
	return &Retriever{
		Store: eng, ANN: annIndex, BM25: bm25Index, GraphCache: gc,
		Embedder: embedder, Reranker: reranker, DateResolver: dateResolver, Config: cfg,
	}
}

const annCandidates = 50

// checkBudget reports ErrTimeout once ctx's deadline (the Total timeout
// wrapping the whole Search call) has passed, distinguishing that from
// caller cancellation so diagnostics and callers can tell the two apart.
func checkBudget(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout
		}
		return err
	}
	return nil
}

// Search runs the full 12-step retrieval algorithm.
func (r *Retriever) Search(ctx context.Context, q Query) ([]Result, Diagnostics, error) {
	start := time.Now()
	var diag Diagnostics

	trimmed := q.Text
	if isBlank(trimmed) {
		return nil, diag, ErrEmptyQuery
	}

	total := r.Config.Timeouts.Total
	if total > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, total)
		defer cancel()
	}

	maxResults := q.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	if maxResults > 20 {
		maxResults = 20
	}

	// Step 1: decompose.
	decomp := temporal.Decompose(q.Text)
	queryRange := r.DateResolver.Resolve(q.Text, time.Now())
	hasTemporalRange := decomp.HasSignal && queryRange.IsKnown()

	blend := r.resolveBlend(hasTemporalRange, q.BlendOverride)

	// Step 2: embed.
	if err := checkBudget(ctx); err != nil {
		return nil, diag, err
	}
	var (
		qVec     []float32
		embedErr error
	)
	if r.Embedder != nil {
		embedStart := time.Now()
		embedCtx, cancel := context.WithTimeout(ctx, r.Config.Timeouts.Embed)
		qVec, embedErr = r.Embedder.Encode(embedCtx, decomp.Stripped)
		cancel()
		diag.EmbedMs = msSince(embedStart)
	}
	degraded := r.Embedder == nil || embedErr != nil
	if !degraded {
		qVec = vectormath.L2Normalize(qVec)
	}

	// Step 3: ANN search (skipped entirely when embedding degraded).
	var annHits []ann.Result
	if !degraded {
		if err := checkBudget(ctx); err != nil {
			return nil, diag, err
		}
		annStart := time.Now()
		annCtx, cancel := context.WithTimeout(ctx, r.Config.Timeouts.ANN)
		hits, err := r.ANN.Search(annCtx, qVec, annCandidates, 0)
		cancel()
		diag.ANNMs = msSince(annStart)
		if err == nil {
			annHits = hits
		}
	}
	diag.ANNCandidates = len(annHits)

	// Step 4: spreading activation.
	if err := checkBudget(ctx); err != nil {
		return nil, diag, err
	}
	spreadStart := time.Now()
	activation := r.spread(annHits)
	diag.SpreadMs = msSince(spreadStart)

	// Step 5: BM25.
	if err := checkBudget(ctx); err != nil {
		return nil, diag, err
	}
	bm25Start := time.Now()
	bm25Ctx, cancel := context.WithTimeout(ctx, r.Config.Timeouts.BM25)
	bm25Hits := r.searchBM25(bm25Ctx, decomp.Stripped)
	cancel()
	diag.BM25Ms = msSince(bm25Start)
	bm25Norm := minMaxNormalizeBM25(bm25Hits)

	// Union of candidate ids across the three signals.
	candidates := unionCandidateIDs(annHits, activation, bm25Norm)
	if len(candidates) == 0 {
		diag.ZeroResults = true
		diag.Degraded = degraded
		diag.TotalMs = msSince(start)
		return nil, diag, nil
	}

	// Step 6: temporal score.
	temporalStart := time.Now()
	temporalScores := make(map[store.NodeID]float64, len(candidates))
	nodes := make(map[store.NodeID]*store.Node, len(candidates))
	semantic := make(map[store.NodeID]float64, len(annHits))
	for _, h := range annHits {
		semantic[store.NodeID(h.ID)] = float64(h.Score)
	}
	for id := range candidates {
		node, err := r.Store.GetNode(id)
		if err != nil {
			continue
		}
		nodes[id] = node
		if hasTemporalRange {
			nodeRange := temporal.EventRange{Start: node.TEventStart, End: node.TEventEnd}
			temporalScores[id] = temporal.Score(queryRange, nodeRange)
		}
	}
	diag.TemporalMs = msSince(temporalStart)

	// Step 7: blend (weighted sum, or RRF by rank if configured).
	var rrfScores map[store.NodeID]float64
	if blend.Strategy == "rrf" {
		rrfScores = rrfFuse(blend.RRFK, semantic, activation, bm25Norm, temporalScores)
	}

	scored := make([]Result, 0, len(nodes))
	for id := range nodes {
		res := Result{
			NodeID:     id,
			Semantic:   semantic[id],
			Activation: activation[id],
			BM25:       bm25Norm[id],
			Temporal:   temporalScores[id],
			Degraded:   degraded,
		}
		if blend.Strategy == "rrf" {
			res.Score = rrfScores[id]
		} else {
			res.Score = blend.Alpha*res.Semantic + blend.Beta*res.Activation + blend.Gamma*res.BM25 + blend.Delta*res.Temporal
		}
		scored = append(scored, res)
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	// Step 8: top-M.
	topM := r.Config.Rerank.TopN
	if topM <= 0 {
		topM = 20
	}
	if len(scored) > topM {
		scored = scored[:topM]
	}

	// Step 9: optional rerank.
	if r.Reranker != nil && r.Config.Rerank.Enabled && len(scored) > 0 {
		if err := checkBudget(ctx); err != nil {
			return nil, diag, err
		}
		rerankStart := time.Now()
		rerankCtx, cancel := context.WithTimeout(ctx, r.Config.Timeouts.Rerank)
		r.applyRerank(rerankCtx, q.Text, scored, nodes)
		cancel()
		diag.RerankMs = msSince(rerankStart)
	}

	// Step 10: recency and importance multipliers.
	if err := checkBudget(ctx); err != nil {
		return nil, diag, err
	}
	now := time.Now()
	for i := range scored {
		node := nodes[scored[i].NodeID]
		recency := temporal.RecencyFactor(node.Category, node.CreatedAt, now, r.Config.Temporal.HalfLifeDays, r.Config.Temporal.AnchorCategories, temporal.DefaultCategoryMultipliers())
		scored[i].Score *= recency * store.ImportanceMultiplier(node.Importance)
		scored[i].PageRank = node.PageRank
	}

	// Step 11: filters, sort, tie-break.
	filtered := applyFilters(r.Store, scored, nodes, q.Filters)
	sort.Slice(filtered, func(i, j int) bool {
		// Scores within 1e-9 count as tied, so sub-second CreatedAt
		// differences in the recency factor do not hide the tie-breaks.
		if d := filtered[i].Score - filtered[j].Score; d > 1e-9 || d < -1e-9 {
			return d > 0
		}
		if filtered[i].PageRank != filtered[j].PageRank {
			return filtered[i].PageRank > filtered[j].PageRank
		}
		if before, ok := directionTieBreak(decomp.Direction, nodes[filtered[i].NodeID], nodes[filtered[j].NodeID]); ok {
			return before
		}
		return filtered[i].NodeID < filtered[j].NodeID
	})

	// Step 12: top max_results, touch access stats, build previews.
	if len(filtered) > maxResults {
		filtered = filtered[:maxResults]
	}
	for i := range filtered {
		node := nodes[filtered[i].NodeID]
		if q.DetailMode != "full" {
			filtered[i].ContentPreview = preview(node.Content)
		}
		_ = r.Store.TouchNode(filtered[i].NodeID, now)
	}

	diag.Degraded = degraded
	diag.TotalMs = msSince(start)
	return filtered, diag, nil
}

func (r *Retriever) resolveBlend(hasTemporalSignal bool, override *config.BlendConfig) config.BlendConfig {
	b := r.Config.Blend
	if override != nil {
		b = *override
	}
	if !hasTemporalSignal {
		b.Alpha += b.Delta
		b.Delta = 0
	}
	return b
}

func (r *Retriever) searchBM25(ctx context.Context, text string) []bm25.Result {
	if r.BM25 == nil {
		return nil
	}
	if ctx.Err() != nil {
		return nil
	}
	return r.BM25.Search(text, annCandidates)
}

func (r *Retriever) applyRerank(ctx context.Context, queryText string, results []Result, nodes map[store.NodeID]*store.Node) {
	texts := make([]string, len(results))
	for i, res := range results {
		texts[i] = nodes[res.NodeID].Content
	}
	scores, err := r.Reranker.Score(ctx, queryText, texts)
	if err != nil || len(scores) != len(results) {
		return // reranker unavailable: skip, not an error
	}
	normalized := minMaxNormalizeFloat32(scores)
	w := r.Config.Rerank.Weight
	for i := range results {
		results[i].Rerank = float64(normalized[i])
		results[i].Score = (1-w)*results[i].Score + w*results[i].Rerank
	}
}

// directionTieBreak breaks a score/PageRank tie using a temporally-
// decomposed query's ordering intent (§4.5's "direction tag for ordering
// tie-breaks"): before/order favors the earlier event, after favors the
// later one. DirectionWhen and the no-signal case carry no ordering
// preference, so ok is false and the caller falls through to its own
// tie-break. Event time prefers TEventStart when set, falling back to
// CreatedAt for nodes with no resolved event window.
func directionTieBreak(dir temporal.Direction, a, b *store.Node) (before bool, ok bool) {
	if a == nil || b == nil {
		return false, false
	}
	switch dir {
	case temporal.DirectionBefore, temporal.DirectionOrder:
		ta, tb := eventTime(a), eventTime(b)
		if ta.Equal(tb) {
			return false, false
		}
		return ta.Before(tb), true
	case temporal.DirectionAfter:
		ta, tb := eventTime(a), eventTime(b)
		if ta.Equal(tb) {
			return false, false
		}
		return ta.After(tb), true
	default:
		return false, false
	}
}

func eventTime(n *store.Node) time.Time {
	if !n.TEventStart.IsZero() {
		return n.TEventStart
	}
	return n.CreatedAt
}

func applyFilters(s *store.Engine, results []Result, nodes map[store.NodeID]*store.Node, f Filters) []Result {
	out := make([]Result, 0, len(results))
	for _, res := range results {
		node := nodes[res.NodeID]
		if f.Category != "" && node.Category != f.Category {
			continue
		}
		if !f.TimeAfter.IsZero() && node.CreatedAt.Before(f.TimeAfter) {
			continue
		}
		if !f.TimeBefore.IsZero() && node.CreatedAt.After(f.TimeBefore) {
			continue
		}
		if f.EntityType != "" && !nodeHasEntityType(s, res.NodeID, f.EntityType) {
			continue
		}
		out = append(out, res)
	}
	return out
}

// nodeHasEntityType reports whether nodeID is linked to at least one
// entity of the given type, joining through the node→entity link index
// rather than entity→node, since a node typically has far fewer linked
// entities than an entity type has linked nodes.
func nodeHasEntityType(s *store.Engine, nodeID store.NodeID, entityType string) bool {
	entityIDs, err := s.EntitiesForNode(nodeID)
	if err != nil {
		return false
	}
	for _, eid := range entityIDs {
		ent, err := s.GetEntity(eid)
		if err != nil {
			continue
		}
		if ent.EntityType == entityType {
			return true
		}
	}
	return false
}

func unionCandidateIDs(annHits []ann.Result, activation map[store.NodeID]float64, bm25Hits map[store.NodeID]float64) map[store.NodeID]bool {
	set := make(map[store.NodeID]bool)
	for _, h := range annHits {
		set[store.NodeID(h.ID)] = true
	}
	for id := range activation {
		set[id] = true
	}
	for id := range bm25Hits {
		set[id] = true
	}
	return set
}

func minMaxNormalizeBM25(hits []bm25.Result) map[store.NodeID]float64 {
	out := make(map[store.NodeID]float64, len(hits))
	if len(hits) == 0 {
		return out
	}
	min, max := hits[0].Score, hits[0].Score
	for _, h := range hits {
		if h.Score < min {
			min = h.Score
		}
		if h.Score > max {
			max = h.Score
		}
	}
	spread := max - min
	for _, h := range hits {
		if spread == 0 {
			out[store.NodeID(h.ID)] = 1.0
			continue
		}
		out[store.NodeID(h.ID)] = (h.Score - min) / spread
	}
	return out
}

func minMaxNormalizeFloat32(scores []float32) []float32 {
	if len(scores) == 0 {
		return scores
	}
	min, max := scores[0], scores[0]
	for _, s := range scores {
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	out := make([]float32, len(scores))
	spread := max - min
	for i, s := range scores {
		if spread == 0 {
			out[i] = 1.0
			continue
		}
		out[i] = (s - min) / spread
	}
	return out
}

func preview(content string) string {
	const maxLen = 200
	firstLine := content
	for i, c := range content {
		if c == '\n' {
			firstLine = content[:i]
			break
		}
	}
	if len(firstLine) > maxLen {
		return firstLine[:maxLen]
	}
	return firstLine
}

func isBlank(s string) bool {
	for _, c := range s {
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			return false
		}
	}
	return true
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000.0
}
