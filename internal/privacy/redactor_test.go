package privacy

import (
	"strings"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRedactScenarios(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "dni and email",
			input:    "Mi DNI es 12345678Z y mi email es ana@example.com",
			expected: "Mi DNI es [DNI] y mi email es [EMAIL]",
		},
		{
			name:     "phone and dotted email",
			input:    "Llámame al 612345678 o escribe a test.user@mail.org",
			expected: "Llámame al [TELEFONO] o escribe a [EMAIL]",
		},
		{
			name:     "nothing sensitive",
			input:    "Sin datos sensibles aquí",
			expected: "Sin datos sensibles aquí",
		},
		{
			name:     "repeated dni",
			input:    "12345678Z y 612345678 y 12345678Z",
			expected: "[DNI] y [TELEFONO] y [DNI]",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
		{
			name:     "whitespace only",
			input:    "   ",
			expected: "   ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Redact(tt.input)
			if result.Redacted != tt.expected {
				t.Errorf("Redacted = %q, want %q", result.Redacted, tt.expected)
			}
			if result.Original != tt.input {
				t.Errorf("Original = %q, want %q", result.Original, tt.input)
			}
		})
	}
}

func TestRedactWordBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"dni lowercase letter", "12345678z", "12345678z"},
		{"dni nine digits", "123456789Z", "123456789Z"},
		{"dni glued to word", "x12345678Z", "x12345678Z"},
		{"dni with punctuation", "(12345678Z).", "([DNI])."},
		{"phone starting with 5", "512345678", "512345678"},
		{"phone starting with 9", "912345678", "[TELEFONO]"},
		{"phone ten digits", "6123456789", "6123456789"},
		{"phone eight digits", "61234567", "61234567"},
		{"phone with prefix sign", "+34 712345678", "+34 [TELEFONO]"},
		{"phone glued to letters", "tel612345678", "tel612345678"},
		{"email with hyphens", "mail: a-b@sub-dominio.es!", "mail: [EMAIL]!"},
		{"email missing tld", "user@localhost", "user@localhost"},
		{"two emails", "a@b.co, c@d.io", "[EMAIL], [EMAIL]"},
		{"accented neighbour", "é12345678Z", "é[DNI]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Redact(tt.input)
			if result.Redacted != tt.expected {
				t.Errorf("Redact(%q) = %q, want %q", tt.input, result.Redacted, tt.expected)
			}
		})
	}
}

func TestRedactFindings(t *testing.T) {
	result := Redact("12345678Z y 612345678 y 12345678Z, ana@example.com")

	want := map[string]int{
		EntityDNI:      2,
		EntityTelefono: 1,
		EntityEmail:    1,
	}
	if len(result.Findings) != len(want) {
		t.Fatalf("Expected %d findings, got %d", len(want), len(result.Findings))
	}
	for _, f := range result.Findings {
		if want[f.EntityType] != f.Count {
			t.Errorf("Finding %s count = %d, want %d", f.EntityType, f.Count, want[f.EntityType])
		}
	}
	if result.TotalMatches() != 4 {
		t.Errorf("TotalMatches = %d, want 4", result.TotalMatches())
	}
	if !result.Changed() {
		t.Error("Changed should be true")
	}

	clean := Redact("hola")
	if clean.Changed() || len(clean.Findings) != 0 {
		t.Errorf("Clean text produced findings: %+v", clean.Findings)
	}
}

func TestRedactFindingsOrder(t *testing.T) {
	result := Redact("ana@example.com 612345678 12345678Z")
	var order []string
	for _, f := range result.Findings {
		order = append(order, f.EntityType)
	}
	if strings.Join(order, ",") != "dni,telefono,email" {
		t.Errorf("Findings order = %v", order)
	}
}

func TestRedactIdempotent(t *testing.T) {
	inputs := []string{
		"Mi DNI es 12345678Z y mi email es ana@example.com",
		"Llámame al 612345678 o escribe a test.user@mail.org",
		"x@12345678Z.com 612345678-a@b.com",
		"[DNI] [TELEFONO] [EMAIL]",
		strings.Repeat("87654321X 712345678 z@z.zz ", 50),
	}

	for _, input := range inputs {
		once := Redact(input).Redacted
		twice := Redact(once)
		if twice.Redacted != once {
			t.Errorf("Not idempotent:\n  once:  %q\n  twice: %q", once, twice.Redacted)
		}
		if twice.Changed() {
			t.Errorf("Second pass replaced %d matches in %q", twice.TotalMatches(), once)
		}
		if ContainsSensitive(once) {
			t.Errorf("Redacted output still matches a rule: %q", once)
		}
	}
}

func TestRedactCapturedAt(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 30, 0, 123000000, time.FixedZone("CET", 3600))
	r := NewRedactor(WithClock(fixedClock(at)))

	result := r.Redact("texto")
	if !result.CapturedAt.Equal(at) {
		t.Errorf("CapturedAt = %v, want %v", result.CapturedAt, at)
	}
	if result.CapturedAt.Location() != time.UTC {
		t.Errorf("CapturedAt should be UTC, got %v", result.CapturedAt.Location())
	}

	before := time.Now().Add(-time.Second)
	live := Redact("texto")
	if live.CapturedAt.Before(before) || live.CapturedAt.After(time.Now().Add(time.Second)) {
		t.Errorf("CapturedAt %v not close to now", live.CapturedAt)
	}
}

func TestWithClockNil(t *testing.T) {
	r := NewRedactor(WithClock(nil))
	if r.Redact("a").CapturedAt.IsZero() {
		t.Error("nil clock should keep time.Now")
	}
}

func TestRules(t *testing.T) {
	rules := Rules()
	if len(rules) != 3 {
		t.Fatalf("Expected 3 rules, got %d", len(rules))
	}

	rules[0].Placeholder = "mutated"
	if Rules()[0].Placeholder != PlaceholderDNI {
		t.Error("Rules should return a copy")
	}

	names := NewRedactor().RuleNames()
	if strings.Join(names, ",") != "dni,telefono,email" {
		t.Errorf("RuleNames = %v", names)
	}
}

func TestContainsSensitive(t *testing.T) {
	if !ContainsSensitive("llama al 612345678") {
		t.Error("phone not detected")
	}
	if ContainsSensitive("nada que ver") {
		t.Error("false positive")
	}
}

func BenchmarkRedact(b *testing.B) {
	text := strings.Repeat("Mi DNI es 12345678Z, teléfono 612345678, correo ana@example.com. ", 100)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Redact(text)
	}
}
