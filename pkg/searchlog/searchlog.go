// Package searchlog records per-query diagnostics for offline analysis
// and reports sliding-window latency percentiles, grounded on
// search_logger.py's SQLite search_logs table and get_search_stats.
package searchlog

import (
	"sort"
	"strings"
	"time"

	"github.com/hippograph/core/pkg/retriever"
	"github.com/hippograph/core/pkg/store"
)

// hashOffsetBasis and hashPrime are FNV-1a's 64-bit constants, the same
// ones pkg/util.HashStringToInt64 uses for its Bolt-protocol ID hashing.
// Repurposed here to hash normalized query text instead of an ID, per
// the "any stable hash over normalized query text suffices" note.
const (
	hashOffsetBasis uint64 = 14695981039346656037
	hashPrime       uint64 = 1099511628211
)

// HashQuery returns a stable, non-negative hash of the normalized query
// text (lowercased, trimmed), used as SearchLogRecord.QueryHash.
func HashQuery(text string) int64 {
	normalized := strings.ToLower(strings.TrimSpace(text))
	hash := hashOffsetBasis
	for i := 0; i < len(normalized); i++ {
		hash ^= uint64(normalized[i])
		hash *= hashPrime
	}
	result := int64(hash)
	if result < 0 {
		result &= 0x7FFFFFFFFFFFFFFF
	}
	return result
}

// Logger appends one record per completed search and reports latency
// percentiles over a sliding window.
type Logger struct {
	Store *store.Engine

	// Window bounds how many recent records Aggregate considers.
	// search_logger.py re-scans its whole table per call; scanning a
	// fixed recent window keeps that cost bounded here.
	Window int
}

// New constructs a Logger. A window <= 0 defaults to 10000.
func New(eng *store.Engine, window int) *Logger {
	if window <= 0 {
		window = 10000
	}
	return &Logger{Store: eng, Window: window}
}

// Record builds and appends a SearchLogRecord from one completed
// search's query, results, and diagnostics.
func (l *Logger) Record(q retriever.Query, results []retriever.Result, diag retriever.Diagnostics) (int64, error) {
	rec := &store.SearchLogRecord{
		QueryHash:       HashQuery(q.Text),
		QueryCleaned:    strings.ToLower(strings.TrimSpace(q.Text)),
		LimitRequested:  q.MaxResults,
		CategoryFilter:  q.Filters.Category,
		ResultsCount:    len(results),
		RerankEnabled:   diag.RerankMs > 0,
		LatencyTotalMs:  diag.TotalMs,
		LatencyEmbedMs:  diag.EmbedMs,
		LatencyANNMs:    diag.ANNMs,
		LatencySpreadMs: diag.SpreadMs,
		LatencyBM25Ms:   diag.BM25Ms,
		LatencyTemporal: diag.TemporalMs,
		LatencyRerankMs: diag.RerankMs,
		Timestamp:       time.Now().UTC(),
	}
	if len(results) > 0 {
		rec.Top1Score = results[0].Score
		rec.Top1NodeID = results[0].NodeID
	}
	return l.Store.AppendSearchLog(rec)
}

// Stats summarizes latency and result-count behavior over a sliding
// window, mirroring get_search_stats's percentile and zero-result
// reporting.
type Stats struct {
	TotalSearches   int
	ZeroResults     int
	LatencyP50Ms    float64
	LatencyP95Ms    float64
	LatencyP99Ms    float64
	LatencyMaxMs    float64
	AvgTop1Score    float64
	AvgResultsCount float64
	RecentZero      []string // cleaned query text of the most recent zero-result searches, newest first
}

// Aggregate computes Stats over the records whose timestamp falls within
// since of now, scanning up to l.Window most recent records.
func (l *Logger) Aggregate(since time.Duration) (Stats, error) {
	records, err := l.Store.RecentSearchLogs(l.Window)
	if err != nil {
		return Stats{}, err
	}

	cutoff := time.Now().UTC().Add(-since)
	var inWindow []*store.SearchLogRecord
	for _, r := range records {
		if r.Timestamp.After(cutoff) {
			inWindow = append(inWindow, r)
		}
	}

	var stats Stats
	stats.TotalSearches = len(inWindow)
	if len(inWindow) == 0 {
		return stats, nil
	}

	latencies := make([]float64, 0, len(inWindow))
	var scoreSum, resultSum float64
	var scoredCount int
	for _, r := range inWindow {
		latencies = append(latencies, r.LatencyTotalMs)
		if r.ResultsCount == 0 {
			stats.ZeroResults++
			if len(stats.RecentZero) < 10 {
				stats.RecentZero = append(stats.RecentZero, r.QueryCleaned)
			}
		} else {
			scoreSum += r.Top1Score
			resultSum += float64(r.ResultsCount)
			scoredCount++
		}
	}

	sort.Float64s(latencies)
	stats.LatencyP50Ms = percentile(latencies, 0.50)
	stats.LatencyP95Ms = percentile(latencies, 0.95)
	stats.LatencyP99Ms = percentile(latencies, 0.99)
	stats.LatencyMaxMs = latencies[len(latencies)-1]

	if scoredCount > 0 {
		stats.AvgTop1Score = scoreSum / float64(scoredCount)
		stats.AvgResultsCount = resultSum / float64(scoredCount)
	}
	return stats, nil
}

// percentile is a nearest-rank lookup over an already-sorted slice,
// matching latencies[n // 2] / latencies[int(n * 0.95)] / ... in
// search_logger.py's get_search_stats.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	idx := int(float64(n) * p)
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}
