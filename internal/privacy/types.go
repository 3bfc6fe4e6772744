package privacy

import (
	"regexp"
	"time"
)

// Rule pairs a matcher with the placeholder that replaces its matches
type Rule struct {
	Name        string
	Pattern     *regexp.Regexp
	Placeholder string
}

// Finding reports how many matches a rule replaced. It never carries matched text.
type Finding struct {
	EntityType  string `json:"entityType"`
	Placeholder string `json:"placeholder"`
	Count       int    `json:"count"`
}

// Result is the outcome of a single redaction
type Result struct {
	Original   string    `json:"-"`
	Redacted   string    `json:"redacted"`
	CapturedAt time.Time `json:"capturedAt"`
	Findings   []Finding `json:"findings"`
}

// TotalMatches returns the number of placeholders inserted across all rules
func (r Result) TotalMatches() int {
	total := 0
	for _, f := range r.Findings {
		total += f.Count
	}
	return total
}

// Changed reports whether any substitution happened
func (r Result) Changed() bool {
	return r.TotalMatches() > 0
}
