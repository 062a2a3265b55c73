package mutate

import (
	"strings"
	"unicode/utf8"

	"github.com/evanofslack/adsmutate/internal/apierr"
)

// Text limits enforced by the remote API, counted in characters.
const (
	MaxHeadline      = 30
	MaxLongHeadline  = 90
	MaxDescription   = 90
	MaxBusinessName  = 25
	MaxKeyword       = 80
	MaxPath          = 15
	MaxResourceName  = 255
	MaxLabelName     = 80
	MaxSharedSetName = 255
)

var (
	matchTypes = []string{"EXACT", "PHRASE", "BROAD"}
	statuses   = []string{"ENABLED", "PAUSED", "REMOVED"}
)

// ValidateID checks that id is a numeric resource id. Dashed customer ids
// must be normalized before the check.
func ValidateID(field, id string) error {
	if id == "" || len(id) > 20 {
		return apierr.Validationf("validate", "%s must be a numeric id, got %q", field, id)
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return apierr.Validationf("validate", "%s must be a numeric id, got %q", field, id)
		}
	}
	return nil
}

// ValidateEnum checks value against allowed. An empty allowed list only
// enforces the UPPER_SNAKE enum shape.
func ValidateEnum(field, value string, allowed ...string) error {
	if value == "" {
		return apierr.Validationf("validate", "%s is required", field)
	}
	if len(allowed) == 0 {
		for _, r := range value {
			if !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_') {
				return apierr.Validationf("validate", "%s %q is not a valid enum value", field, value)
			}
		}
		return nil
	}
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return apierr.Validationf("validate", "%s must be one of %s, got %q", field, strings.Join(allowed, ", "), value)
}

func ValidateStatus(status string) error {
	return ValidateEnum("status", status, statuses...)
}

func ValidateMatchType(matchType string) error {
	return ValidateEnum("match_type", matchType, matchTypes...)
}

// ValidateText checks that text is non-empty and at most max characters.
func ValidateText(field, text string, max int) error {
	n := utf8.RuneCountInString(text)
	if n == 0 || strings.TrimSpace(text) == "" {
		return apierr.Validationf("validate", "%s is required", field)
	}
	if n > max {
		return apierr.Validationf("validate", "%s %q is %d characters, limit is %d", field, text, n, max)
	}
	return nil
}

// ValidateTexts checks the count bounds of texts and the length of each.
func ValidateTexts(field string, texts []string, minCount, maxCount, maxLen int) error {
	if len(texts) < minCount || len(texts) > maxCount {
		return apierr.Validationf("validate", "%s needs between %d and %d entries, got %d", field, minCount, maxCount, len(texts))
	}
	for _, t := range texts {
		if err := ValidateText(field, t, maxLen); err != nil {
			return err
		}
	}
	return nil
}

// ValidateURL requires an absolute http or https URL.
func ValidateURL(field, u string) error {
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return apierr.Validationf("validate", "%s must start with http:// or https://, got %q", field, u)
	}
	return nil
}
