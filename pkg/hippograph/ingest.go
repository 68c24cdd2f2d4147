package hippograph

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/hippograph/core/pkg/dup"
	"github.com/hippograph/core/pkg/entitylink"
	"github.com/hippograph/core/pkg/store"
)

// ErrDuplicateBlocked is returned by Add when the new content's top ANN
// match meets the block threshold and the caller did not set Force.
var ErrDuplicateBlocked = errors.New("hippograph: duplicate blocked")

// AddRequest is the Ingest API's add() request.
type AddRequest struct {
	Content             string
	Category            string
	Importance          store.Importance
	EmotionalTone       string
	EmotionalIntensity  float64
	EmotionalReflection string
	Force               bool
}

// AddResult is the Ingest API's add() response.
type AddResult struct {
	ID               store.NodeID
	DuplicateWarning *dup.Verdict
}

// Add embeds, dedups, persists, and links a new node, in that order, so a
// blocked duplicate never reaches the store. On success every derived
// index (ANN, BM25, embed cache, entity edges) observes the node before
// Add returns, per §5's within-ingest ordering guarantee.
func (db *DB) Add(ctx context.Context, req AddRequest) (AddResult, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.ensureOpen(); err != nil {
		return AddResult{}, err
	}
	if req.Category == "" {
		req.Category = "note"
	}
	if req.Importance == "" {
		req.Importance = store.ImportanceNormal
	}

	embedding, embedErr := db.deps.Embedder.Encode(ctx, req.Content)
	if embedErr != nil {
		log.Printf("hippograph: embedding failed, storing without vector: %v", embedErr)
	}

	var warning *dup.Verdict
	if len(embedding) > 0 {
		verdict, err := dup.Check(ctx, db.ann, embedding, dup.Config{
			BlockThreshold: db.config.Dup.BlockThreshold,
			WarnThreshold:  db.config.Dup.WarnThreshold,
		})
		if err != nil {
			return AddResult{}, fmt.Errorf("hippograph: duplicate check: %w", err)
		}
		switch {
		case verdict.Blocked && !req.Force:
			return AddResult{}, fmt.Errorf("%w: similarity %.4f to %s", ErrDuplicateBlocked, verdict.Similarity, verdict.ExistingID)
		case verdict.Blocked, verdict.Warned:
			warning = &verdict
		}
	}

	node := &store.Node{
		Content:             req.Content,
		Category:            req.Category,
		Embedding:           embedding,
		Importance:          req.Importance,
		EmotionalTone:       req.EmotionalTone,
		EmotionalIntensity:  req.EmotionalIntensity,
		EmotionalReflection: req.EmotionalReflection,
		CommunityID:         -1,
	}
	id, err := db.store.InsertNode(node)
	if err != nil {
		return AddResult{}, fmt.Errorf("hippograph: insert node: %w", err)
	}

	if err := db.indexNewNode(ctx, id, node); err != nil {
		// Roll back the just-committed node so the store, ANN, and BM25
		// never disagree about which nodes exist.
		for _, n := range db.graphCache.Neighbors(id) {
			db.graphCache.RemoveEdge(&store.Edge{ID: n.EdgeID, Source: id, Target: n.ID})
		}
		db.ann.Remove(string(id))
		db.bm25.Remove(string(id))
		db.embedCache.Delete(id)
		_ = db.store.DeleteNode(id)
		return AddResult{}, fmt.Errorf("hippograph: index node %s: %w", id, err)
	}

	db.scheduler.NotifyNoteAdded(ctx)
	return AddResult{ID: id, DuplicateWarning: warning}, nil
}

func (db *DB) indexNewNode(ctx context.Context, id store.NodeID, node *store.Node) error {
	if len(node.Embedding) > 0 {
		if err := db.ann.Add(string(id), node.Embedding); err != nil {
			return err
		}
		db.embedCache.Put(id, node.Embedding)
	}
	db.bm25.Add(string(id), node.Content)

	mentions, err := db.deps.EntityExtractor.Extract(ctx, node.Content)
	if err != nil {
		log.Printf("hippograph: entity extraction failed for node %s: %v", id, err)
	} else if len(mentions) > 0 {
		linkMentions := make([]entitylink.Mention, len(mentions))
		copy(linkMentions, mentions)
		if _, err := entitylink.Link(db.store, id, linkMentions); err != nil {
			return err
		}
		if err := db.syncEntityEdges(id); err != nil {
			return err
		}
	}

	return db.linkSimilarNodes(ctx, id, node.Embedding)
}

// linkSimilarNodes creates semantic (association) edges between id and its
// nearest neighbors in ANN space, mirroring entity-edge linking: edges are
// bidirectional-by-index, weighted by raw cosine similarity, and capped at
// SemanticLink.MaxLinks so a dense neighborhood doesn't fan a single note
// out into the whole graph. Candidates are fetched at 2x MaxLinks to absorb
// the self-match that search always returns for an already-indexed vector.
func (db *DB) linkSimilarNodes(ctx context.Context, id store.NodeID, embedding []float32) error {
	if len(embedding) == 0 {
		return nil
	}
	maxLinks := db.config.SemanticLink.MaxLinks
	if maxLinks <= 0 {
		return nil
	}

	results, err := db.ann.Search(ctx, embedding, maxLinks*2, db.config.SemanticLink.Threshold)
	if err != nil {
		return err
	}

	linked := 0
	for _, r := range results {
		if linked >= maxLinks {
			break
		}
		neighborID := store.NodeID(r.ID)
		if neighborID == id {
			continue
		}
		edgeID, err := db.store.AddEdge(&store.Edge{
			Source: id,
			Target: neighborID,
			Type:   store.EdgeTypeAssociation,
			Weight: float64(r.Score),
		})
		if err != nil {
			return err
		}
		edge, err := db.store.GetEdge(edgeID)
		if err != nil {
			continue
		}
		db.graphCache.Upsert(edge)
		linked++
	}
	return nil
}

// syncEntityEdges mirrors id's current entity edges into the graph cache,
// since entitylink.Link only touches the store and doesn't know whether
// db.graphCache already tracks the edges it created or reweighted.
func (db *DB) syncEntityEdges(id store.NodeID) error {
	edgeIDs, err := db.store.NeighborEdgeIDs(id)
	if err != nil {
		return err
	}
	for _, edgeID := range edgeIDs {
		edge, err := db.store.GetEdge(edgeID)
		if err != nil {
			continue
		}
		if edge.Type == store.EdgeTypeEntity {
			db.graphCache.Upsert(edge)
		}
	}
	return nil
}

// UpdateRequest is the Ingest API's update() request. Zero-value Content
// or Category leaves that field unchanged.
type UpdateRequest struct {
	ID       store.NodeID
	Content  string
	Category string
}

// UpdateResult is the Ingest API's update() response.
type UpdateResult struct {
	Version int
}

// Update re-embeds the node's content (if it changed) and re-extracts
// entities when ReenrichOnUpdate is set, after saving the prior state as
// a version.
func (db *DB) Update(ctx context.Context, req UpdateRequest) (UpdateResult, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.ensureOpen(); err != nil {
		return UpdateResult{}, err
	}

	node, err := db.store.GetNode(req.ID)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("hippograph: get node %s: %w", req.ID, err)
	}

	version, err := db.store.SaveNodeVersion(node)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("hippograph: save version: %w", err)
	}

	contentChanged := req.Content != "" && req.Content != node.Content
	if req.Content != "" {
		node.Content = req.Content
	}
	if req.Category != "" {
		node.Category = req.Category
	}

	if contentChanged && db.config.ReenrichOnUpdate {
		if embedding, err := db.deps.Embedder.Encode(ctx, node.Content); err == nil {
			node.Embedding = embedding
			db.embedCache.Put(req.ID, embedding)
			db.ann.Remove(string(req.ID))
			if err := db.ann.Add(string(req.ID), embedding); err != nil {
				return UpdateResult{}, fmt.Errorf("hippograph: reindex embedding: %w", err)
			}
		} else {
			log.Printf("hippograph: re-embedding failed for node %s: %v", req.ID, err)
		}
	}

	if err := db.store.UpdateNode(node); err != nil {
		return UpdateResult{}, fmt.Errorf("hippograph: update node: %w", err)
	}

	db.bm25.Remove(string(req.ID))
	db.bm25.Add(string(req.ID), node.Content)

	if contentChanged && db.config.ReenrichOnUpdate {
		mentions, err := db.deps.EntityExtractor.Extract(ctx, node.Content)
		if err != nil {
			log.Printf("hippograph: entity re-extraction failed for node %s: %v", req.ID, err)
		} else if len(mentions) > 0 {
			linkMentions := make([]entitylink.Mention, len(mentions))
			copy(linkMentions, mentions)
			if _, err := entitylink.Link(db.store, req.ID, linkMentions); err != nil {
				return UpdateResult{}, fmt.Errorf("hippograph: re-link entities: %w", err)
			}
			if err := db.syncEntityEdges(req.ID); err != nil {
				return UpdateResult{}, fmt.Errorf("hippograph: sync entity edges: %w", err)
			}
		}
	}

	return UpdateResult{Version: version}, nil
}

// Delete removes a node and its derived-index entries.
func (db *DB) Delete(id store.NodeID) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.ensureOpen(); err != nil {
		return err
	}

	for _, n := range db.graphCache.Neighbors(id) {
		db.graphCache.RemoveEdge(&store.Edge{ID: n.EdgeID, Source: id, Target: n.ID})
	}
	db.ann.Remove(string(id))
	db.bm25.Remove(string(id))
	db.embedCache.Delete(id)

	if err := db.store.DeleteNode(id); err != nil {
		return fmt.Errorf("hippograph: delete node %s: %w", id, err)
	}
	return nil
}

// SetImportance updates a node's importance level in place.
func (db *DB) SetImportance(id store.NodeID, level store.Importance) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.ensureOpen(); err != nil {
		return err
	}

	node, err := db.store.GetNode(id)
	if err != nil {
		return fmt.Errorf("hippograph: get node %s: %w", id, err)
	}
	node.Importance = level
	if err := db.store.UpdateNode(node); err != nil {
		return fmt.Errorf("hippograph: update node %s: %w", id, err)
	}
	return nil
}

// SimilarNode is one entry in FindSimilar's response.
type SimilarNode struct {
	ID         store.NodeID
	Similarity float64
}

// FindSimilar embeds content and returns the limit closest existing
// nodes whose similarity is at least threshold.
func (db *DB) FindSimilar(ctx context.Context, content string, limit int, threshold float64) ([]SimilarNode, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if err := db.ensureOpen(); err != nil {
		return nil, err
	}

	embedding, err := db.deps.Embedder.Encode(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("hippograph: embed: %w", err)
	}
	results, err := db.ann.Search(ctx, embedding, limit, threshold)
	if err != nil {
		return nil, fmt.Errorf("hippograph: ann search: %w", err)
	}
	out := make([]SimilarNode, len(results))
	for i, r := range results {
		out[i] = SimilarNode{ID: store.NodeID(r.ID), Similarity: float64(r.Score)}
	}
	return out, nil
}

// GetHistory returns id's retained version history, oldest first.
func (db *DB) GetHistory(id store.NodeID) ([]*store.NodeVersion, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if err := db.ensureOpen(); err != nil {
		return nil, err
	}
	return db.store.NodeHistory(id)
}

// RestoreVersion rewrites a node's content/category from a past version
// and refreshes its BM25 entry. When ReenrichOnUpdate is set it also
// re-embeds the restored content, whether or not it differs from the
// current content; unlike Update it does not re-extract entities.
func (db *DB) RestoreVersion(ctx context.Context, id store.NodeID, version int) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.ensureOpen(); err != nil {
		return err
	}

	if err := db.store.RestoreNodeVersion(id, version); err != nil {
		return fmt.Errorf("hippograph: restore version: %w", err)
	}

	node, err := db.store.GetNode(id)
	if err != nil {
		return fmt.Errorf("hippograph: get node %s: %w", id, err)
	}

	db.bm25.Remove(string(id))
	db.bm25.Add(string(id), node.Content)

	if db.config.ReenrichOnUpdate {
		if embedding, err := db.deps.Embedder.Encode(ctx, node.Content); err == nil {
			node.Embedding = embedding
			db.embedCache.Put(id, embedding)
			db.ann.Remove(string(id))
			if err := db.ann.Add(string(id), embedding); err != nil {
				return fmt.Errorf("hippograph: reindex embedding: %w", err)
			}
			if err := db.store.UpdateNode(node); err != nil {
				return fmt.Errorf("hippograph: update node: %w", err)
			}
		} else {
			log.Printf("hippograph: re-embedding failed for node %s: %v", id, err)
		}
	}
	return nil
}
