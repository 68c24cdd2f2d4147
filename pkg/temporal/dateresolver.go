package temporal

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateResolver extracts a bi-temporal event range from free text. Notes
// with no temporal content (reflections, emotions) should resolve to a
// zero EventRange: time is a helper here, never a requirement.
type DateResolver interface {
	Resolve(text string, reference time.Time) EventRange
}

// NoopDateResolver always returns an unknown range. Used when no
// temporal extraction is configured; downstream Score calls then
// correctly fall back to 0 rather than a guessed window.
type NoopDateResolver struct{}

func (NoopDateResolver) Resolve(string, time.Time) EventRange { return EventRange{} }

var (
	isoDateRe     = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	usDateRe      = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	relativeAgoRe = regexp.MustCompile(`(?i)\b(\d+)\s+(day|days|week|weeks|month|months|year|years|hour|hours)\s+ago\b`)
	relativeDayRe = regexp.MustCompile(`(?i)\b(yesterday|today|tomorrow|tonight|вчера|сегодня|завтра)\b`)
	monthRefRe    = regexp.MustCompile(`(?i)\bin\s+(january|february|march|april|may|june|july|august|september|october|november|december)\s*(\d{4})?\b`)
)

var monthNumbers = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4, "may": 5, "june": 6,
	"july": 7, "august": 8, "september": 9, "october": 10, "november": 11, "december": 12,
}

type candidateRange struct {
	start, end time.Time
	explicit   bool
}

// DefaultDateResolver ports the highest-value subset of the original
// extractor: ISO/US explicit dates, "N <unit> ago", yesterday/today/
// tomorrow, and "in <Month> [Year]". When several expressions match, the
// explicit ones win, then the narrowest range.
type DefaultDateResolver struct{}

func (DefaultDateResolver) Resolve(text string, reference time.Time) EventRange {
	lower := strings.ToLower(text)
	var candidates []candidateRange

	for _, m := range isoDateRe.FindAllStringSubmatch(lower, -1) {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		if mo < 1 || mo > 12 || d < 1 || d > 31 {
			continue
		}
		start := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, reference.Location())
		candidates = append(candidates, candidateRange{start, dayEnd(start), true})
	}

	for _, m := range usDateRe.FindAllStringSubmatch(lower, -1) {
		mo, _ := strconv.Atoi(m[1])
		d, _ := strconv.Atoi(m[2])
		y, _ := strconv.Atoi(m[3])
		if mo < 1 || mo > 12 || d < 1 || d > 31 {
			continue
		}
		start := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, reference.Location())
		candidates = append(candidates, candidateRange{start, dayEnd(start), true})
	}

	for _, m := range relativeAgoRe.FindAllStringSubmatch(lower, -1) {
		amount, _ := strconv.Atoi(m[1])
		if start, end, ok := resolveAgo(amount, m[2], reference); ok {
			candidates = append(candidates, candidateRange{start, end, false})
		}
	}

	for _, m := range relativeDayRe.FindAllStringSubmatch(lower, -1) {
		start, end := resolveRelativeDay(m[1], reference)
		candidates = append(candidates, candidateRange{start, end, false})
	}

	for _, m := range monthRefRe.FindAllStringSubmatch(lower, -1) {
		monthNum := monthNumbers[m[1]]
		if monthNum == 0 {
			continue
		}
		year := reference.Year()
		if m[2] != "" {
			year, _ = strconv.Atoi(m[2])
		} else if monthNum > int(reference.Month()) {
			year--
		}
		start := time.Date(year, time.Month(monthNum), 1, 0, 0, 0, 0, reference.Location())
		end := start.AddDate(0, 1, 0).Add(-time.Second)
		candidates = append(candidates, candidateRange{start, end, false})
	}

	if len(candidates) == 0 {
		return EventRange{}
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if better(c, best) {
			best = c
		}
	}
	return EventRange{Start: best.start, End: best.end}
}

func better(a, b candidateRange) bool {
	if a.explicit != b.explicit {
		return a.explicit
	}
	return a.end.Sub(a.start) < b.end.Sub(b.start)
}

func dayEnd(start time.Time) time.Time {
	return start.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
}

func resolveRelativeDay(expr string, reference time.Time) (time.Time, time.Time) {
	var d time.Time
	switch expr {
	case "yesterday", "вчера":
		d = reference.AddDate(0, 0, -1)
	case "tomorrow", "завтра":
		d = reference.AddDate(0, 0, 1)
	default: // today, tonight, сегодня
		d = reference
	}
	dayStart := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
	return dayStart, dayEnd(dayStart)
}

func resolveAgo(amount int, unit string, reference time.Time) (time.Time, time.Time, bool) {
	unit = strings.TrimSuffix(unit, "s")
	switch unit {
	case "day":
		d := reference.AddDate(0, 0, -amount)
		start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
		return start, dayEnd(start), true
	case "week":
		start := reference.AddDate(0, 0, -7*amount)
		start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
		return start, start.AddDate(0, 0, 6).Add(23*time.Hour + 59*time.Minute + 59*time.Second), true
	case "month":
		start := reference.AddDate(0, -amount, 0)
		monthStart := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())
		monthEnd := monthStart.AddDate(0, 1, 0).Add(-time.Second)
		return monthStart, monthEnd, true
	case "year":
		y := reference.Year() - amount
		return time.Date(y, 1, 1, 0, 0, 0, 0, reference.Location()), time.Date(y, 12, 31, 23, 59, 59, 0, reference.Location()), true
	case "hour":
		d := reference.Add(-time.Duration(amount) * time.Hour)
		return d, d.Add(time.Hour), true
	}
	return time.Time{}, time.Time{}, false
}
