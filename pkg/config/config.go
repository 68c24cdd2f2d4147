package config

import "time"

// BlendConfig holds the weighted-sum fusion weights for the retrieval
// pipeline, plus the optional RRF alternate strategy.
type BlendConfig struct {
	Alpha    float64 // semantic similarity weight
	Beta     float64 // spreading activation weight
	Gamma    float64 // BM25 weight
	Delta    float64 // temporal weight
	Strategy string  // "blend" or "rrf"
	RRFK     int
}

// SpreadConfig tunes graph spreading activation.
type SpreadConfig struct {
	Iterations int
	Decay      float64
	Epsilon    float64
}

// BM25Config tunes the keyword index.
type BM25Config struct {
	K1               float64
	B                float64
	StopwordsEnabled bool
}

// TemporalConfig tunes recency scoring and the anchor-category exemption.
type TemporalConfig struct {
	HalfLifeDays     float64
	AnchorCategories []string
}

// DupConfig tunes ingest-time duplicate detection thresholds.
type DupConfig struct {
	BlockThreshold float64
	WarnThreshold  float64
}

// SemanticLinkConfig tunes ingest-time creation of similarity edges
// between a new node and its nearest existing neighbors in ANN space.
type SemanticLinkConfig struct {
	Threshold float64
	MaxLinks  int
}

// RerankConfig tunes the optional cross-encoder rerank stage.
type RerankConfig struct {
	Enabled bool
	Weight  float64
	TopN    int
}

// HubConfig tunes the spreading-activation hub penalty.
type HubConfig struct {
	Threshold int
}

// SleepConfig tunes the light-sleep/deep-sleep maintenance cycle.
type SleepConfig struct {
	LightEveryNewNodes      int
	DeepInterval            time.Duration
	StaleEdgeDays           int
	StaleEdgeFactor         float64
	DupScanWindow           int
	ConsolidationSimilarity float64
	ConsolidationMinCluster int
	ChainMaxGap             time.Duration
}

// ANNConfig tunes the HNSW index.
type ANNConfig struct {
	M              int
	EfConstruction int
	EfSearch       int
}

// TimeoutConfig bounds each retrieval phase, per the §5 cancellation
// contract: a phase that exceeds its own budget is skipped, not fatal.
// Total bounds the whole search; once it passes, Search returns ErrTimeout.
type TimeoutConfig struct {
	Embed  time.Duration
	ANN    time.Duration
	BM25   time.Duration
	Rerank time.Duration
	Total  time.Duration
}

// Config is the fully resolved set of HippoGraph tunables. Zero value is
// never valid for use; always obtain one via Default() or FromEnv().
type Config struct {
	Blend               BlendConfig
	Spread              SpreadConfig
	BM25                BM25Config
	Temporal            TemporalConfig
	Dup                 DupConfig
	SemanticLink        SemanticLinkConfig
	Rerank              RerankConfig
	Hub                 HubConfig
	Sleep               SleepConfig
	ANN                 ANNConfig
	EmbeddingDimensions int
	ReenrichOnUpdate    bool
	Timeouts            TimeoutConfig
	StorePath           string
}

// Default returns the hard-coded defaults, matching the values named
// throughout the retrieval and maintenance sections.
func Default() *Config {
	return &Config{
		Blend: BlendConfig{
			Alpha:    0.6,
			Beta:     0.10,
			Gamma:    0.15,
			Delta:    0.15,
			Strategy: "blend",
			RRFK:     60,
		},
		Spread: SpreadConfig{
			Iterations: 3,
			Decay:      0.7,
			Epsilon:    1e-6,
		},
		BM25: BM25Config{
			K1:               1.5,
			B:                0.75,
			StopwordsEnabled: true,
		},
		Temporal: TemporalConfig{
			HalfLifeDays:     30,
			AnchorCategories: []string{"identity", "preference"},
		},
		Dup: DupConfig{
			BlockThreshold: 0.95,
			WarnThreshold:  0.90,
		},
		SemanticLink: SemanticLinkConfig{
			Threshold: 0.5,
			MaxLinks:  5,
		},
		Rerank: RerankConfig{
			Enabled: false,
			Weight:  0.3,
			TopN:    20,
		},
		Hub: HubConfig{
			Threshold: 20,
		},
		Sleep: SleepConfig{
			LightEveryNewNodes:      50,
			DeepInterval:            24 * time.Hour,
			StaleEdgeDays:           90,
			StaleEdgeFactor:         0.95,
			DupScanWindow:           50,
			ConsolidationSimilarity: 0.75,
			ConsolidationMinCluster: 3,
			ChainMaxGap:             7 * 24 * time.Hour,
		},
		ANN: ANNConfig{
			M:              16,
			EfConstruction: 200,
			EfSearch:       100,
		},
		EmbeddingDimensions: 768,
		ReenrichOnUpdate:    true,
		Timeouts: TimeoutConfig{
			Embed:  500 * time.Millisecond,
			ANN:    100 * time.Millisecond,
			BM25:   100 * time.Millisecond,
			Rerank: 300 * time.Millisecond,
			Total:  2 * time.Second,
		},
		StorePath: "./hippograph-data",
	}
}

// FromEnv resolves a Config by overlaying recognized HIPPOGRAPH_*
// environment variables onto Default(), the way dbconfig.Resolve layers
// per-database overrides onto global defaults.
func FromEnv() *Config {
	d := Default()
	return &Config{
		Blend: BlendConfig{
			Alpha:    getEnvFloat("HIPPOGRAPH_BLEND_ALPHA", d.Blend.Alpha),
			Beta:     getEnvFloat("HIPPOGRAPH_BLEND_BETA", d.Blend.Beta),
			Gamma:    getEnvFloat("HIPPOGRAPH_BLEND_GAMMA", d.Blend.Gamma),
			Delta:    getEnvFloat("HIPPOGRAPH_BLEND_DELTA", d.Blend.Delta),
			Strategy: getEnv("HIPPOGRAPH_BLEND_STRATEGY", d.Blend.Strategy),
			RRFK:     getEnvInt("HIPPOGRAPH_RRF_K", d.Blend.RRFK),
		},
		Spread: SpreadConfig{
			Iterations: getEnvInt("HIPPOGRAPH_SPREAD_ITERATIONS", d.Spread.Iterations),
			Decay:      getEnvFloat("HIPPOGRAPH_SPREAD_DECAY", d.Spread.Decay),
			Epsilon:    getEnvFloat("HIPPOGRAPH_SPREAD_EPSILON", d.Spread.Epsilon),
		},
		BM25: BM25Config{
			K1:               getEnvFloat("HIPPOGRAPH_BM25_K1", d.BM25.K1),
			B:                getEnvFloat("HIPPOGRAPH_BM25_B", d.BM25.B),
			StopwordsEnabled: getEnvBool("HIPPOGRAPH_BM25_STOPWORDS_ENABLED", d.BM25.StopwordsEnabled),
		},
		Temporal: TemporalConfig{
			HalfLifeDays:     getEnvFloat("HIPPOGRAPH_TEMPORAL_HALF_LIFE_DAYS", d.Temporal.HalfLifeDays),
			AnchorCategories: getEnvList("HIPPOGRAPH_TEMPORAL_ANCHOR_CATEGORIES", d.Temporal.AnchorCategories),
		},
		Dup: DupConfig{
			BlockThreshold: getEnvFloat("HIPPOGRAPH_DUP_BLOCK_THRESHOLD", d.Dup.BlockThreshold),
			WarnThreshold:  getEnvFloat("HIPPOGRAPH_DUP_WARN_THRESHOLD", d.Dup.WarnThreshold),
		},
		SemanticLink: SemanticLinkConfig{
			Threshold: getEnvFloat("HIPPOGRAPH_SEMANTIC_LINK_THRESHOLD", d.SemanticLink.Threshold),
			MaxLinks:  getEnvInt("HIPPOGRAPH_SEMANTIC_LINK_MAX_LINKS", d.SemanticLink.MaxLinks),
		},
		Rerank: RerankConfig{
			Enabled: getEnvBool("HIPPOGRAPH_RERANK_ENABLED", d.Rerank.Enabled),
			Weight:  getEnvFloat("HIPPOGRAPH_RERANK_WEIGHT", d.Rerank.Weight),
			TopN:    getEnvInt("HIPPOGRAPH_RERANK_TOP_N", d.Rerank.TopN),
		},
		Hub: HubConfig{
			Threshold: getEnvInt("HIPPOGRAPH_HUB_THRESHOLD", d.Hub.Threshold),
		},
		Sleep: SleepConfig{
			LightEveryNewNodes:      getEnvInt("HIPPOGRAPH_SLEEP_LIGHT_EVERY_NEW_NODES", d.Sleep.LightEveryNewNodes),
			DeepInterval:            getEnvDuration("HIPPOGRAPH_SLEEP_DEEP_INTERVAL", d.Sleep.DeepInterval),
			StaleEdgeDays:           getEnvInt("HIPPOGRAPH_SLEEP_STALE_EDGE_DAYS", d.Sleep.StaleEdgeDays),
			StaleEdgeFactor:         getEnvFloat("HIPPOGRAPH_SLEEP_STALE_EDGE_FACTOR", d.Sleep.StaleEdgeFactor),
			DupScanWindow:           getEnvInt("HIPPOGRAPH_SLEEP_DUP_SCAN_WINDOW", d.Sleep.DupScanWindow),
			ConsolidationSimilarity: getEnvFloat("HIPPOGRAPH_SLEEP_CONSOLIDATION_SIMILARITY", d.Sleep.ConsolidationSimilarity),
			ConsolidationMinCluster: getEnvInt("HIPPOGRAPH_SLEEP_CONSOLIDATION_MIN_CLUSTER", d.Sleep.ConsolidationMinCluster),
			ChainMaxGap:             getEnvDuration("HIPPOGRAPH_SLEEP_CHAIN_MAX_GAP_DAYS", d.Sleep.ChainMaxGap),
		},
		ANN: ANNConfig{
			M:              getEnvInt("HIPPOGRAPH_ANN_HNSW_M", d.ANN.M),
			EfConstruction: getEnvInt("HIPPOGRAPH_ANN_HNSW_EF_CONSTRUCTION", d.ANN.EfConstruction),
			EfSearch:       getEnvInt("HIPPOGRAPH_ANN_HNSW_EF_SEARCH", d.ANN.EfSearch),
		},
		EmbeddingDimensions: getEnvInt("HIPPOGRAPH_EMBEDDING_DIMENSIONS", d.EmbeddingDimensions),
		ReenrichOnUpdate:    getEnvBool("HIPPOGRAPH_ENTITIES_REENRICH_ON_UPDATE", d.ReenrichOnUpdate),
		Timeouts: TimeoutConfig{
			Embed:  getEnvDuration("HIPPOGRAPH_TIMEOUT_EMBED", d.Timeouts.Embed),
			ANN:    getEnvDuration("HIPPOGRAPH_TIMEOUT_ANN", d.Timeouts.ANN),
			BM25:   getEnvDuration("HIPPOGRAPH_TIMEOUT_BM25", d.Timeouts.BM25),
			Rerank: getEnvDuration("HIPPOGRAPH_TIMEOUT_RERANK", d.Timeouts.Rerank),
			Total:  getEnvDuration("HIPPOGRAPH_TIMEOUT_TOTAL", d.Timeouts.Total),
		},
		StorePath: getEnv("HIPPOGRAPH_STORE_PATH", d.StorePath),
	}
}
