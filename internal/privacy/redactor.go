package privacy

import (
	"time"
)

// Redactor replaces national IDs, mobile phones and emails with placeholders.
// It holds no mutable state and is safe for concurrent use.
type Redactor struct {
	rules []Rule
	now   func() time.Time
}

// Option configures a Redactor
type Option func(*Redactor)

// WithClock overrides the clock used for CapturedAt
func WithClock(now func() time.Time) Option {
	return func(r *Redactor) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRedactor creates a redactor over the fixed rule table
func NewRedactor(opts ...Option) *Redactor {
	r := &Redactor{
		rules: defaultRules,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var defaultRedactor = NewRedactor()

// Redact runs the default redactor over input
func Redact(input string) Result {
	return defaultRedactor.Redact(input)
}

// Redact applies every rule in order, each over the output of the previous one.
// It never fails; input without matches comes back unchanged.
func (r *Redactor) Redact(input string) Result {
	capturedAt := r.now().UTC()

	redacted := input
	findings := make([]Finding, 0, len(r.rules))

	for _, rule := range r.rules {
		matches := rule.Pattern.FindAllStringIndex(redacted, -1)
		if len(matches) == 0 {
			continue
		}

		findings = append(findings, Finding{
			EntityType:  rule.Name,
			Placeholder: rule.Placeholder,
			Count:       len(matches),
		})

		redacted = rule.Pattern.ReplaceAllLiteralString(redacted, rule.Placeholder)
	}

	return Result{
		Original:   input,
		Redacted:   redacted,
		CapturedAt: capturedAt,
		Findings:   findings,
	}
}

// ContainsSensitive reports whether any rule matches text
func (r *Redactor) ContainsSensitive(text string) bool {
	for _, rule := range r.rules {
		if rule.Pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// ContainsSensitive runs the default redactor's check
func ContainsSensitive(text string) bool {
	return defaultRedactor.ContainsSensitive(text)
}

// RuleNames returns the rule names in application order
func (r *Redactor) RuleNames() []string {
	names := make([]string, 0, len(r.rules))
	for _, rule := range r.rules {
		names = append(names, rule.Name)
	}
	return names
}
