package analyzers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vrwarp/locus/internal/directory/models"
	healthmodels "github.com/vrwarp/locus/internal/health/models"
	"github.com/vrwarp/locus/internal/roster"
	"github.com/vrwarp/locus/pkg/platform/text"
)

// Contact validates phone numbers and, when enabled, name casing. Findings
// carry a suggested value only when one can be derived safely.
type Contact struct{}

func (Contact) Tag() healthmodels.Tag { return healthmodels.TagContact }

func (Contact) Analyze(idx *roster.Index, cfg healthmodels.Config) (healthmodels.Result, error) {
	var findings []healthmodels.Finding
	for _, p := range idx.People() {
		if f, ok := CheckPhone(p, cfg.MinPhoneDigits); ok {
			findings = append(findings, f)
		}
		if cfg.CheckNameCasing {
			if f, ok := CheckNameCasing(p); ok {
				findings = append(findings, f)
			}
		}
	}
	return healthmodels.Result{Findings: findings}, nil
}

// CheckPhone returns a finding when p's phone is missing or malformed.
func CheckPhone(p models.Person, minDigits int) (healthmodels.Finding, bool) {
	if p.Phone == nil || strings.TrimSpace(*p.Phone) == "" {
		return healthmodels.Finding{
			Tag:         healthmodels.TagContact,
			Severity:    healthmodels.SeverityInformational,
			Title:       "Missing phone",
			Subjects:    []string{p.ID},
			Explanation: fmt.Sprintf("%s has no phone number", p.Name),
			Values: map[string]string{
				"field": models.FieldPhone,
				"name":  p.Name,
			},
		}, true
	}

	value := strings.TrimSpace(*p.Phone)
	if ValidPhone(value, minDigits) {
		return healthmodels.Finding{}, false
	}

	f := healthmodels.Finding{
		Tag:         healthmodels.TagContact,
		Severity:    healthmodels.SeverityWarning,
		Title:       "Invalid phone",
		Subjects:    []string{p.ID},
		Explanation: fmt.Sprintf("%s has a malformed phone number %q", p.Name, value),
		Values: map[string]string{
			"field":      models.FieldPhone,
			"name":       p.Name,
			"current":    value,
			"min_digits": strconv.Itoa(minDigits),
		},
	}
	if digits := text.Digits(value); len(digits) >= minDigits {
		f.Suggestion = &digits
	}
	return f, true
}

// ValidPhone accepts digits with space, '-', '.', '(' or ')' separators and
// an optional leading '+', holding at least minDigits digits.
func ValidPhone(s string, minDigits int) bool {
	digits := 0
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		case r == '+' && i == 0:
		default:
			return false
		}
	}
	return digits >= minDigits
}

// CheckNameCasing flags names written entirely in one case.
func CheckNameCasing(p models.Person) (healthmodels.Finding, bool) {
	name := strings.TrimSpace(p.Name)
	if !text.IsUniformCase(name) {
		return healthmodels.Finding{}, false
	}
	fixed := text.TitleCase(name)
	return healthmodels.Finding{
		Tag:         healthmodels.TagContact,
		Severity:    healthmodels.SeverityWarning,
		Title:       "Name casing",
		Subjects:    []string{p.ID},
		Explanation: fmt.Sprintf("%q is written in a single case", name),
		Values: map[string]string{
			"field":   models.FieldName,
			"name":    p.Name,
			"current": name,
		},
		Suggestion: &fixed,
	}, true
}
