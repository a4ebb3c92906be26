// Package phone expands a phone number into the textual forms it may take
// in a contact sheet.
package phone

import (
	"strings"

	"contact-splitter/internal/models"
)

// GenerateVariants returns the four forms a number can appear under:
// country code + area code + local, area code + local, local, and local
// without the leading mobile "9". Input is not validated; short or
// non-digit strings degrade to shorter or empty parts.
func GenerateVariants(number string) []string {
	// cutset trim: every leading '5' goes, not just one "55"
	trimmed := []rune(strings.TrimLeft(number, models.CountryCode))

	split := min(models.AreaCodeLength, len(trimmed))
	areaCode := string(trimmed[:split])
	local := string(trimmed[split:])
	localWithoutNine := strings.TrimPrefix(local, models.MobilePrefix)

	return []string{
		models.CountryCode + areaCode + local,
		areaCode + local,
		local,
		localWithoutNine,
	}
}

// ExclusionSet unions the variants of every number into one lookup set.
func ExclusionSet(numbers []string) map[string]struct{} {
	set := make(map[string]struct{}, len(numbers)*4)
	for _, n := range numbers {
		for _, v := range GenerateVariants(n) {
			set[v] = struct{}{}
		}
	}
	return set
}
