// Package sleep implements HippoGraph's background maintenance cycle:
// light-sleep (anchor boost, stale-edge decay, duplicate scan, PageRank)
// and deep-sleep (community detection, relation extraction, memory
// consolidation), both under a snapshot-and-rollback discipline so a step
// that fails partway leaves the store exactly as it was found.
package sleep

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hippograph/core/pkg/ann"
	"github.com/hippograph/core/pkg/config"
	"github.com/hippograph/core/pkg/graphcache"
	"github.com/hippograph/core/pkg/store"
	"github.com/hippograph/core/pkg/vectormath"
)

// scanWarnThreshold is the cosine similarity at which the light-sleep
// duplicate scan flags a pair. It only logs — pkg/dup's ingest-time check
// is the one with the authority to block a write.
const scanWarnThreshold = 0.95

// RelationTriple is one (subject, relation, object) fact pulled out of a
// node's content by an external extractor during deep-sleep.
type RelationTriple struct {
	Subject  string
	Relation string
	Object   string
}

// RelationExtractor pulls typed relations out of node content. Optional:
// a nil RelationExtractor on Runner skips deep-sleep's relation step
// entirely, the same way the original skips it when gliner2 isn't
// installed.
type RelationExtractor interface {
	ExtractRelations(ctx context.Context, content string) ([]RelationTriple, error)
}

// StepResult is one maintenance step's outcome, forming the diff log
// §4.9 requires for every step.
type StepResult struct {
	Name     string
	Changes  int
	Duration time.Duration
	Err      error
}

// Result is the outcome of one light-sleep or deep-sleep run.
type Result struct {
	Mode     string // "light" or "deep"
	DryRun   bool
	Steps    []StepResult
	Restored bool // true if a step failed and the pre-run snapshot was restored
}

// Runner executes maintenance steps against a single store instance.
// Callers must ensure at most one Runner drives a given store at a time;
// Runner itself does not serialize concurrent RunLight/RunDeep calls.
type Runner struct {
	Store      *store.Engine
	ANN        *ann.Index
	GraphCache *graphcache.Cache
	Relations  RelationExtractor
	Config     *config.Config

	lastDeepSleep time.Time
}

// NewRunner constructs a Runner. Relations may be nil.
func NewRunner(eng *store.Engine, annIndex *ann.Index, gc *graphcache.Cache, relations RelationExtractor, cfg *config.Config) *Runner {
	return &Runner{Store: eng, ANN: annIndex, GraphCache: gc, Relations: relations, Config: cfg}
}

// RunLight executes the light-sleep steps in order: anchor boost,
// stale-edge decay, duplicate scan, PageRank. A snapshot is taken first;
// if any step returns an unrecoverable error, the snapshot is restored
// and the run stops there.
func (r *Runner) RunLight(ctx context.Context, dryRun bool) (Result, error) {
	res := Result{Mode: "light", DryRun: dryRun}

	snapshot, err := r.takeSnapshot()
	if err != nil {
		return res, fmt.Errorf("sleep: snapshot before light-sleep: %w", err)
	}

	steps := []namedStep{
		{"boost_anchor_importance", func() (int, error) { return r.boostAnchorImportance(dryRun) }},
		{"stale_edge_decay", func() (int, error) { return r.staleEdgeDecay(dryRun) }},
		{"duplicate_scan", func() (int, error) { return r.duplicateScan(ctx, dryRun) }},
		{"pagerank", func() (int, error) { return r.recomputePageRank(dryRun) }},
	}

	if ok := r.runSteps(&res, snapshot, steps); !ok {
		return res, nil
	}
	return res, nil
}

// RunDeep executes light-sleep's steps first, then deep-sleep's
// additions: community detection, relation extraction, and memory
// consolidation (thematic clusters + temporal chains). All under the
// same single snapshot taken at the start of the light-sleep portion.
func (r *Runner) RunDeep(ctx context.Context, dryRun bool) (Result, error) {
	res := Result{Mode: "deep", DryRun: dryRun}

	snapshot, err := r.takeSnapshot()
	if err != nil {
		return res, fmt.Errorf("sleep: snapshot before deep-sleep: %w", err)
	}

	steps := []namedStep{
		{"boost_anchor_importance", func() (int, error) { return r.boostAnchorImportance(dryRun) }},
		{"stale_edge_decay", func() (int, error) { return r.staleEdgeDecay(dryRun) }},
		{"duplicate_scan", func() (int, error) { return r.duplicateScan(ctx, dryRun) }},
		{"pagerank", func() (int, error) { return r.recomputePageRank(dryRun) }},
		{"community_detection", func() (int, error) { return r.communityDetection(dryRun) }},
		{"relation_extraction", func() (int, error) { return r.relationExtraction(ctx, dryRun) }},
		{"consolidation", func() (int, error) { return r.consolidation(dryRun) }},
	}

	if ok := r.runSteps(&res, snapshot, steps); !ok {
		return res, nil
	}
	if !dryRun {
		r.lastDeepSleep = time.Now().UTC()
	}
	return res, nil
}

type namedStep struct {
	name string
	run  func() (int, error)
}

// runSteps executes steps in order, restoring snapshot and stopping on the
// first error. Returns false if a restore happened.
func (r *Runner) runSteps(res *Result, snapshot []byte, steps []namedStep) bool {
	for _, s := range steps {
		start := time.Now()
		changes, err := s.run()
		sr := StepResult{Name: s.name, Changes: changes, Duration: time.Since(start), Err: err}
		res.Steps = append(res.Steps, sr)
		if err != nil {
			log.Printf("sleep: step %q failed: %v — restoring pre-run snapshot", s.name, err)
			if restoreErr := r.Store.Restore(bytes.NewReader(snapshot)); restoreErr != nil {
				log.Printf("sleep: restore after failed step %q also failed: %v", s.name, restoreErr)
			}
			res.Restored = true
			return false
		}
	}
	return true
}

func (r *Runner) takeSnapshot() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := r.Store.Snapshot(&buf, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// boostAnchorImportance is light-sleep step 2: nodes whose category is in
// the anchor set get promoted to critical importance if they aren't
// already, per §4.5's anchor-protection guarantee.
func (r *Runner) boostAnchorImportance(dryRun bool) (int, error) {
	anchors := r.Config.Temporal.AnchorCategories
	changes := 0
	var toUpdate []*store.Node
	err := r.Store.IterNodes(func(n *store.Node) error {
		if !isAnchorCategory(n.Category, anchors) {
			return nil
		}
		if n.Importance.LessImportant(store.ImportanceCritical) {
			changes++
			if !dryRun {
				cp := *n
				cp.Importance = store.ImportanceCritical
				toUpdate = append(toUpdate, &cp)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if !dryRun {
		for _, n := range toUpdate {
			if err := r.Store.UpdateNode(n); err != nil {
				return changes, err
			}
		}
	}
	return changes, nil
}

// staleEdgeDecay is light-sleep step 3: every non-protected edge untouched
// for more than the stale threshold has its weight multiplied by the
// configured decay factor. Protected means either endpoint's node
// category is in the anchor set.
func (r *Runner) staleEdgeDecay(dryRun bool) (int, error) {
	staleAfter := time.Duration(r.Config.Sleep.StaleEdgeDays) * 24 * time.Hour
	anchors := r.Config.Temporal.AnchorCategories
	now := time.Now().UTC()

	categoryCache := make(map[store.NodeID]string)
	categoryOf := func(id store.NodeID) (string, error) {
		if c, ok := categoryCache[id]; ok {
			return c, nil
		}
		n, err := r.Store.GetNode(id)
		if err != nil {
			return "", err
		}
		categoryCache[id] = n.Category
		return n.Category, nil
	}

	changes := 0
	var toUpdate []*store.Edge
	err := r.Store.IterEdges(func(e *store.Edge) error {
		if now.Sub(e.LastTouchedAt) <= staleAfter {
			return nil
		}
		srcCat, err := categoryOf(e.Source)
		if err != nil {
			return err
		}
		tgtCat, err := categoryOf(e.Target)
		if err != nil {
			return err
		}
		if isAnchorCategory(srcCat, anchors) || isAnchorCategory(tgtCat, anchors) {
			return nil
		}
		changes++
		if !dryRun {
			cp := *e
			cp.Weight *= r.Config.Sleep.StaleEdgeFactor
			toUpdate = append(toUpdate, &cp)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if !dryRun {
		for _, e := range toUpdate {
			if err := r.Store.UpdateEdgeWeight(e.ID, e.Weight, false); err != nil {
				return changes, err
			}
			if r.GraphCache != nil {
				r.GraphCache.UpdateWeight(e.Source, e.Target, e.ID, e.Weight)
			}
		}
	}
	return changes, nil
}

// duplicateScan is light-sleep step 4: flag near-duplicate notes within a
// sliding window. Flags are logged only — nothing is deleted or blocked,
// unlike the ingest-time check in pkg/dup.
func (r *Runner) duplicateScan(ctx context.Context, dryRun bool) (int, error) {
	if r.ANN == nil {
		return 0, nil
	}
	var nodes []*store.Node
	if err := r.Store.IterNodes(func(n *store.Node) error {
		if len(n.Embedding) > 0 {
			nodes = append(nodes, n)
		}
		return nil
	}); err != nil {
		return 0, err
	}

	window := r.Config.Sleep.DupScanWindow
	if window <= 0 {
		window = 50
	}
	flagged := 0
	for i, n := range nodes {
		end := i + window
		if end > len(nodes) {
			end = len(nodes)
		}
		for j := i + 1; j < end; j++ {
			sim := vectormath.Cosine(n.Embedding, nodes[j].Embedding)
			if sim >= scanWarnThreshold {
				flagged++
				log.Printf("sleep: near-duplicate flagged: %s <-> %s similarity=%.4f", n.ID, nodes[j].ID, sim)
			}
		}
	}
	return flagged, nil
}

// recomputePageRank is light-sleep step 5.
func (r *Runner) recomputePageRank(dryRun bool) (int, error) {
	nodes, edges, err := r.loadGraph()
	if err != nil {
		return 0, err
	}
	scores := pageRank(nodes, edges, 0.85, 100, 1e-6)

	changes := 0
	for _, id := range nodes {
		n, err := r.Store.GetNode(id)
		if err != nil {
			return changes, err
		}
		score := scores[id]
		if n.PageRank == score {
			continue
		}
		changes++
		if !dryRun {
			n.PageRank = score
			if err := r.Store.UpdateNode(n); err != nil {
				return changes, err
			}
		}
	}
	return changes, nil
}

// communityDetection is deep-sleep's community-detection step.
func (r *Runner) communityDetection(dryRun bool) (int, error) {
	nodes, edges, err := r.loadGraph()
	if err != nil {
		return 0, err
	}
	communities := detectCommunities(nodes, edges)

	changes := 0
	for _, id := range nodes {
		n, err := r.Store.GetNode(id)
		if err != nil {
			return changes, err
		}
		c := communities[id]
		if n.CommunityID == c {
			continue
		}
		changes++
		if !dryRun {
			n.CommunityID = c
			if err := r.Store.UpdateNode(n); err != nil {
				return changes, err
			}
		}
	}
	return changes, nil
}

// relationExtraction is deep-sleep's typed-relation step: run the
// external extractor over nodes added since the last deep-sleep, then
// link extracted (subject, relation, object) triples to whichever nodes
// already mention those entities, the same entity-name matching
// sleep_compute.py's GLiNER2 step does.
func (r *Runner) relationExtraction(ctx context.Context, dryRun bool) (int, error) {
	if r.Relations == nil {
		return 0, nil
	}

	const limit = 200
	var candidates []*store.Node
	if err := r.Store.IterNodes(func(n *store.Node) error {
		if n.CreatedAt.After(r.lastDeepSleep) {
			candidates = append(candidates, n)
		}
		return nil
	}); err != nil {
		return 0, err
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	entityIndex, err := r.buildEntityNameIndex()
	if err != nil {
		return 0, err
	}

	created := 0
	for _, node := range candidates {
		triples, err := r.Relations.ExtractRelations(ctx, node.Content)
		if err != nil {
			log.Printf("sleep: relation extraction failed for node %s: %v", node.ID, err)
			continue
		}
		for _, t := range triples {
			subjects := entityIndex[strings.ToLower(t.Subject)]
			objects := entityIndex[strings.ToLower(t.Object)]
			if len(subjects) == 0 {
				subjects = []store.NodeID{node.ID}
			}
			if len(objects) == 0 {
				objects = []store.NodeID{node.ID}
			}
			for _, src := range capAt(subjects, 3) {
				for _, tgt := range capAt(objects, 3) {
					if src == tgt {
						continue
					}
					exists, err := r.edgeExists(src, tgt, store.EdgeType(t.Relation))
					if err != nil {
						return created, err
					}
					if exists {
						continue
					}
					created++
					if !dryRun {
						if err := r.addEdge(src, tgt, store.EdgeType(t.Relation), 0.6); err != nil {
							return created, err
						}
					}
				}
			}
		}
	}
	return created, nil
}

// consolidation is the memory-consolidation deep-sleep step, supplemented
// from memory_consolidation.py: thematic clusters become all-to-all
// consolidation edges, temporal chains become sequential temporal-chain
// edges.
func (r *Runner) consolidation(dryRun bool) (int, error) {
	var nodes []*store.Node
	if err := r.Store.IterNodes(func(n *store.Node) error {
		nodes = append(nodes, n)
		return nil
	}); err != nil {
		return 0, err
	}

	clusters := findThematicClusters(nodes, r.Config.Sleep.ConsolidationSimilarity, r.Config.Sleep.ConsolidationMinCluster)
	chains := findTemporalChains(nodes, r.Config.Sleep.ChainMaxGap)

	created := 0
	for _, cluster := range clusters {
		for i, a := range cluster {
			for _, b := range cluster[i+1:] {
				exists, err := r.edgeExists(a, b, store.EdgeTypeConsolidation)
				if err != nil {
					return created, err
				}
				if exists {
					continue
				}
				created++
				if !dryRun {
					if err := r.addEdge(a, b, store.EdgeTypeConsolidation, 0.9); err != nil {
						return created, err
					}
				}
			}
		}
	}
	for _, chain := range chains {
		for i := 0; i < len(chain)-1; i++ {
			a, b := chain[i], chain[i+1]
			exists, err := r.edgeExists(a, b, store.EdgeTypeTemporalChain)
			if err != nil {
				return created, err
			}
			if exists {
				continue
			}
			created++
			if !dryRun {
				if err := r.addEdge(a, b, store.EdgeTypeTemporalChain, 0.95); err != nil {
					return created, err
				}
			}
		}
	}
	return created, nil
}

func (r *Runner) loadGraph() ([]store.NodeID, []*store.Edge, error) {
	var nodes []store.NodeID
	if err := r.Store.IterNodes(func(n *store.Node) error {
		nodes = append(nodes, n.ID)
		return nil
	}); err != nil {
		return nil, nil, err
	}
	var edges []*store.Edge
	if err := r.Store.IterEdges(func(e *store.Edge) error {
		edges = append(edges, e)
		return nil
	}); err != nil {
		return nil, nil, err
	}
	return nodes, edges, nil
}

func (r *Runner) buildEntityNameIndex() (map[string][]store.NodeID, error) {
	index := make(map[string][]store.NodeID)
	err := r.Store.IterEntities(func(ent *store.Entity) error {
		nodeIDs, err := r.Store.NodesForEntity(ent.ID)
		if err != nil {
			return err
		}
		key := strings.ToLower(ent.Name)
		index[key] = append(index[key], nodeIDs...)
		return nil
	})
	return index, err
}

func (r *Runner) edgeExists(a, b store.NodeID, edgeType store.EdgeType) (bool, error) {
	ids, err := r.Store.NeighborEdgeIDs(a)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		e, err := r.Store.GetEdge(id)
		if err != nil {
			continue
		}
		if e.Type != edgeType {
			continue
		}
		if (e.Source == a && e.Target == b) || (e.Source == b && e.Target == a) {
			return true, nil
		}
	}
	return false, nil
}

func (r *Runner) addEdge(a, b store.NodeID, edgeType store.EdgeType, weight float64) error {
	id, err := r.Store.AddEdge(&store.Edge{Source: a, Target: b, Type: edgeType, Weight: weight})
	if err != nil {
		return err
	}
	if r.GraphCache != nil {
		e, err := r.Store.GetEdge(id)
		if err == nil {
			r.GraphCache.Upsert(e)
		}
	}
	return nil
}

func isAnchorCategory(category string, anchors []string) bool {
	for _, a := range anchors {
		if a == category {
			return true
		}
	}
	return false
}

func capAt(ids []store.NodeID, n int) []store.NodeID {
	if len(ids) <= n {
		return ids
	}
	return ids[:n]
}
