// Package relevance decides whether a formatted ad record matches the
// (country, keyword) pair it was scraped for.
package relevance

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/ad-scout/internal/contact"
	"github.com/sells-group/ad-scout/internal/model"
	"github.com/sells-group/ad-scout/internal/textnorm"
)

// Reason names the gate that produced a Decision.
type Reason string

const (
	ReasonMatched         Reason = "matched"
	ReasonCountryMismatch Reason = "country_mismatch"
	ReasonPhoneCountry    Reason = "phone_country_mismatch"
	ReasonEmptyKeyword    Reason = "empty_keyword"
	ReasonNoKeywordMatch  Reason = "no_keyword_match"
)

// Decision is the outcome of a relevance check.
type Decision struct {
	Relevant bool
	Reason   Reason
	// MatchedWords lists the keyword tokens that hit the haystack.
	MatchedWords []string
}

// Filter applies the country, contact-country and keyword gates in order.
// The zero value is ready to use.
type Filter struct{}

// IsRelevant is shorthand for Filter{}.Check(rec, country, keyword).Relevant.
func IsRelevant(rec model.AdRecord, country, keyword string) bool {
	return Filter{}.Check(rec, country, keyword).Relevant
}

// Check runs the three gates. The first failing gate decides.
func (Filter) Check(rec model.AdRecord, country, keyword string) Decision {
	if rec.CountryCode != country {
		return reject(rec, ReasonCountryMismatch)
	}

	if rec.ContactPhone != "" && contact.IsInternational(rec.ContactPhone) {
		// An unresolvable prefix is not evidence of a mismatch.
		if resolved, ok := contact.ResolveCountry(rec.ContactPhone); ok && resolved != country {
			zap.L().Debug("relevance: phone country differs",
				zap.String("phone", rec.ContactPhone),
				zap.String("resolved", resolved),
				zap.String("target", country),
			)
			return reject(rec, ReasonPhoneCountry)
		}
	}

	tokens := textnorm.TokenizeKeyword(keyword)
	if len(tokens) == 0 {
		return reject(rec, ReasonEmptyKeyword)
	}

	hay := haystack(rec)
	var matched []string
	for _, tok := range tokens {
		for _, v := range textnorm.WordVariations(tok) {
			if strings.Contains(hay, v) {
				matched = append(matched, tok)
				break
			}
		}
	}
	if len(matched) == 0 {
		return reject(rec, ReasonNoKeywordMatch)
	}
	return Decision{Relevant: true, Reason: ReasonMatched, MatchedWords: matched}
}

// haystack is the normalized ad text plus page name. The no-text placeholder
// is left out so it cannot satisfy a keyword.
func haystack(rec model.AdRecord) string {
	text := ""
	if rec.HasText() {
		text = rec.AdText
	}
	return textnorm.Normalize(text + " " + rec.PageName)
}

func reject(rec model.AdRecord, reason Reason) Decision {
	zap.L().Debug("relevance: rejected",
		zap.String("page", rec.PageName),
		zap.String("reason", string(reason)),
	)
	return Decision{Reason: reason}
}
