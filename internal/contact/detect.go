package contact

import (
	"regexp"
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

// Phrases that indicate the ad invites direct contact. Matched against
// lower-cased text.
var contactPhrases = []string{
	"whatsapp", "wa.me", "api.whatsapp.com", "chat.whatsapp.com",
	"whatssap", "whassap", "whats app", "wsp", "wsapp",
	"escríbeme", "escribeme", "escribe al", "contáctame",
	"contactame", "manda mensaje", "envía mensaje", "envia mensaje",
}

var contactEmoji = []string{"📱", "📞", "💬", "✉️"}

// phraseMatcher is immutable after construction and safe for concurrent use.
var phraseMatcher = ahocorasick.NewStringMatcher(contactPhrases)

var (
	phoneShapeRe     = regexp.MustCompile(`\+?\d{1,3}[\s-]?\d{3,4}[\s-]?\d{3,4}[\s-]?\d{0,4}`)
	internationalRe  = regexp.MustCompile(`\+\d{1,3}[\s-]?\d{3,4}[\s-]?\d{3,4}[\s-]?\d{0,4}`)
	waMeRe           = regexp.MustCompile(`wa\.me/(\+?\d+)`)
	localNumberRe    = regexp.MustCompile(`\b\d{9,12}\b`)
	phoneSeparatorRe = strings.NewReplacer(" ", "", "-", "", "\t", "", "\n", "")
)

// Signal is the outcome of contact detection.
type Signal struct {
	Present bool
	Phone   string
}

// HasSignal reports whether text contains a contact phrase, a phone-shaped
// number, or a phone/chat emoji.
func HasSignal(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	if len(phraseMatcher.Match([]byte(strings.ToLower(text)))) > 0 {
		return true
	}
	if phoneShapeRe.MatchString(text) {
		return true
	}
	for _, e := range contactEmoji {
		if strings.Contains(text, e) {
			return true
		}
	}
	return false
}

// ExtractPhone returns the best-effort phone number in text. Patterns are tried
// in priority order (international, wa.me link, bare local number) and the
// first one that matches wins.
func ExtractPhone(text string) string {
	if m := internationalRe.FindString(text); m != "" {
		return strings.TrimSpace(phoneSeparatorRe.Replace(m))
	}
	if m := waMeRe.FindStringSubmatch(text); len(m) == 2 {
		return m[1]
	}
	return localNumberRe.FindString(text)
}

// Detect inspects each surface in order (ad text first, then page name). The
// signal is present if any surface has one; the phone comes from the first
// surface that yields a number.
func Detect(surfaces ...string) Signal {
	var sig Signal
	for _, s := range surfaces {
		if !sig.Present && HasSignal(s) {
			sig.Present = true
		}
		if sig.Phone == "" {
			sig.Phone = ExtractPhone(s)
		}
	}
	return sig
}
