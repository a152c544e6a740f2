// Package contact detects direct-contact signals (WhatsApp links, phone
// numbers, contact phrases) in ad text and maps phone prefixes to countries.
package contact

import (
	"sort"
	"strings"
)

type dialPrefix struct {
	prefix  string
	country string
}

// dialPrefixes is sorted longest-first at init so that "+593" wins over a
// shorter prefix sharing its leading digits.
var dialPrefixes = []dialPrefix{
	{"+56", "CL"},
	{"+51", "PE"},
	{"+52", "MX"},
	{"+54", "AR"},
	{"+57", "CO"},
	{"+593", "EC"},
	{"+591", "BO"},
	{"+34", "ES"},
	{"+1", "US"},
}

func init() {
	sort.SliceStable(dialPrefixes, func(i, j int) bool {
		return len(dialPrefixes[i].prefix) > len(dialPrefixes[j].prefix)
	})
}

var phoneCleaner = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "", "\t", "")

// CleanPhone removes spaces, dashes, dots and parentheses.
func CleanPhone(phone string) string {
	return phoneCleaner.Replace(strings.TrimSpace(phone))
}

// IsInternational reports whether phone carries a leading "+".
func IsInternational(phone string) bool {
	return strings.HasPrefix(strings.TrimSpace(phone), "+")
}

// ResolveCountry maps an internationally formatted phone number to an ISO
// country code using the longest matching dial prefix.
func ResolveCountry(phone string) (string, bool) {
	cleaned := CleanPhone(phone)
	if !strings.HasPrefix(cleaned, "+") {
		return "", false
	}
	for _, p := range dialPrefixes {
		if strings.HasPrefix(cleaned, p.prefix) {
			return p.country, true
		}
	}
	return "", false
}
