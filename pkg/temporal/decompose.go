// Package temporal implements HippoGraph's bi-temporal scoring: recency
// decay by category, query temporal decomposition, and interval-overlap
// scoring against a node's event window.
package temporal

import (
	"regexp"
	"strings"
)

// Direction tags how a temporally-decomposed query wants its results
// ordered, used as a tie-break signal by the retriever.
type Direction string

const (
	DirectionBefore Direction = "before"
	DirectionAfter  Direction = "after"
	DirectionOrder  Direction = "order"
	DirectionWhen   Direction = "when"
)

// signalPatterns detect temporal intent in a query. English and Russian,
// matching the bilingual surface the original extractor covers.
var signalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bwhen\s+did\b`), regexp.MustCompile(`(?i)\bwhen\s+was\b`),
	regexp.MustCompile(`(?i)\bwhen\s+is\b`), regexp.MustCompile(`(?i)\bwhen\s+will\b`),
	regexp.MustCompile(`(?i)\bhow\s+long\s+ago\b`), regexp.MustCompile(`(?i)\bhow\s+long\s+since\b`),
	regexp.MustCompile(`(?i)\bbefore\b`), regexp.MustCompile(`(?i)\bafter\b`), regexp.MustCompile(`(?i)\bduring\b`),
	regexp.MustCompile(`(?i)\bfirst\s+time\b`), regexp.MustCompile(`(?i)\blast\s+time\b`), regexp.MustCompile(`(?i)\bmost\s+recent\b`),
	regexp.MustCompile(`(?i)\bearlier\b`), regexp.MustCompile(`(?i)\blater\b`), regexp.MustCompile(`(?i)\bpreviously\b`),
	regexp.MustCompile(`(?i)\brecently\b`), regexp.MustCompile(`(?i)\blatest\b`),
	regexp.MustCompile(`(?i)\bwhat\s+happened\s+(before|after|first|next)\b`),
	regexp.MustCompile(`(?i)\bwhat\s+did\s+\w+\s+do\s+(before|after|first|next)\b`),
	regexp.MustCompile(`(?i)\bin\s+what\s+order\b`), regexp.MustCompile(`(?i)\bchronological\b`),
	regexp.MustCompile(`(?i)\bwhich\s+came\s+(first|last)\b`),
	regexp.MustCompile(`(?i)\bкогда\b`), regexp.MustCompile(`(?i)\bдо\s+того\b`), regexp.MustCompile(`(?i)\bпосле\s+того\b`),
	regexp.MustCompile(`(?i)\bсначала\b`), regexp.MustCompile(`(?i)\bпотом\b`), regexp.MustCompile(`(?i)\bнедавно\b`),
	regexp.MustCompile(`(?i)\bв\s+каком\s+порядке\b`), regexp.MustCompile(`(?i)\bраньше\b`), regexp.MustCompile(`(?i)\bпозже\b`),
}

// stripPatterns are removed from the query to produce the content-only
// text handed to the embedder and BM25.
var stripPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bwhen\s+did\b`), regexp.MustCompile(`(?i)\bwhen\s+was\b`), regexp.MustCompile(`(?i)\bwhen\s+is\b`),
	regexp.MustCompile(`(?i)\bhow\s+long\s+ago\s+did\b`), regexp.MustCompile(`(?i)\bhow\s+long\s+since\b`),
	regexp.MustCompile(`(?i)\bwhat\s+happened\s+(before|after)\b`),
	regexp.MustCompile(`(?i)\bin\s+what\s+order\s+did\b`),
	regexp.MustCompile(`(?i)\bwhich\s+came\s+(first|last)\b`),
	regexp.MustCompile(`(?i)\bbefore\s+or\s+after\b`),
	regexp.MustCompile(`(?i)\bкогда\b`),
}

var (
	directionBeforeRe = regexp.MustCompile(`(?i)\bbefore\b|до\s+того|раньше|earlier|previously|first`)
	directionAfterRe  = regexp.MustCompile(`(?i)\bafter\b|после\s+того|позже|later|next|then`)
	directionOrderRe  = regexp.MustCompile(`(?i)\border\b|порядк|chronolog|sequence`)
	whitespaceRe      = regexp.MustCompile(`\s+`)
	edgePunctRe       = regexp.MustCompile(`^[\s,?!.]+|[\s,?!.]+$`)
)

// HasTemporalSignal reports whether query carries temporal intent.
func HasTemporalSignal(query string) bool {
	lower := strings.ToLower(query)
	for _, p := range signalPatterns {
		if p.MatchString(lower) {
			return true
		}
	}
	return false
}

// Decomposition is the result of splitting a query into its content and
// temporal parts.
type Decomposition struct {
	Stripped  string
	HasSignal bool
	Direction Direction
}

// Decompose splits query into (stripped_text, direction, has_temporal_signal)
// per the retrieval pipeline's step 1. When stripping would leave fewer
// than 5 characters, the original query is kept as Stripped so the
// semantic and BM25 signals never see an empty string.
func Decompose(query string) Decomposition {
	if !HasTemporalSignal(query) {
		return Decomposition{Stripped: query, HasSignal: false}
	}

	lower := strings.ToLower(strings.TrimSpace(query))
	direction := DirectionWhen
	switch {
	case directionBeforeRe.MatchString(lower):
		direction = DirectionBefore
	case directionAfterRe.MatchString(lower):
		direction = DirectionAfter
	case directionOrderRe.MatchString(lower):
		direction = DirectionOrder
	}

	stripped := query
	for _, p := range stripPatterns {
		stripped = p.ReplaceAllString(stripped, "")
	}
	stripped = whitespaceRe.ReplaceAllString(stripped, " ")
	stripped = strings.TrimSpace(edgePunctRe.ReplaceAllString(stripped, ""))

	if len(stripped) < 5 {
		stripped = query
	}

	return Decomposition{Stripped: stripped, HasSignal: true, Direction: direction}
}
