package privacy

import "regexp"

// Entity names, also used as metric labels
const (
	EntityDNI      = "dni"
	EntityTelefono = "telefono"
	EntityEmail    = "email"
)

// Placeholders
const (
	PlaceholderDNI      = "[DNI]"
	PlaceholderTelefono = "[TELEFONO]"
	PlaceholderEmail    = "[EMAIL]"
)

// The three classes are disjoint: a DNI ends in a letter, a phone is digits only,
// and an email needs an '@'. None of them can match a placeholder.
var (
	dniPattern      = regexp.MustCompile(`\b\d{8}[A-Z]\b`)
	telefonoPattern = regexp.MustCompile(`\b[6-9]\d{8}\b`)
	emailPattern    = regexp.MustCompile(`\b[\w.-]+@[\w.-]+\.\w+\b`)
)

// defaultRules is applied in this order
var defaultRules = []Rule{
	{Name: EntityDNI, Pattern: dniPattern, Placeholder: PlaceholderDNI},
	{Name: EntityTelefono, Pattern: telefonoPattern, Placeholder: PlaceholderTelefono},
	{Name: EntityEmail, Pattern: emailPattern, Placeholder: PlaceholderEmail},
}

// Rules returns a copy of the fixed rule table in application order
func Rules() []Rule {
	rules := make([]Rule, len(defaultRules))
	copy(rules, defaultRules)
	return rules
}
