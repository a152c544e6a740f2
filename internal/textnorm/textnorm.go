// Package textnorm provides the accent folding, keyword tokenization and
// naive plural/singular expansion used for keyword relevance matching.
package textnorm

import (
	"regexp"
	"strings"
)

// accentReplacer is a fixed substitution table. It deliberately does not use
// Unicode normalization so results never depend on locale data.
var accentReplacer = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ñ", "n", "ü", "u",
	"Á", "A", "É", "E", "Í", "I", "Ó", "O", "Ú", "U", "Ñ", "N", "Ü", "U",
)

// stopWords are Spanish articles and prepositions ignored in keywords.
var stopWords = map[string]struct{}{
	"de": {}, "del": {}, "la": {}, "el": {}, "los": {}, "las": {}, "un": {},
	"una": {}, "en": {}, "y": {}, "o": {}, "a": {}, "para": {},
}

var punctuationRe = regexp.MustCompile(`[,;:|]+`)

// StripAccents replaces accented Spanish vowels and ñ with their ASCII base letter.
func StripAccents(s string) string {
	return accentReplacer.Replace(s)
}

// Normalize lowercases s and strips accents.
func Normalize(s string) string {
	return StripAccents(strings.ToLower(s))
}

// TokenizeKeyword splits a keyword into significant lowercase words.
//
//	"Curso de programación" -> ["curso", "programacion"]
//	"html, go, java"        -> ["html", "go", "java"]
//
// An empty result means the keyword cannot match anything.
func TokenizeKeyword(keyword string) []string {
	cleaned := punctuationRe.ReplaceAllString(keyword, " ")
	fields := strings.Fields(Normalize(cleaned))

	words := make([]string, 0, len(fields))
	for _, w := range fields {
		if len(w) < 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		words = append(words, w)
	}
	return words
}

// WordVariations returns word plus naive plural/singular forms:
//
//	"curso"   -> curso, cursos
//	"motor"   -> motor, motors, motores
//	"cursos"  -> cursos, curso
//	"clases"  -> clases, clas
//
// A trailing "es" is removed in preference to a trailing "s". This is a
// heuristic rather than a stemmer and can both under- and over-match.
func WordVariations(word string) []string {
	word = Normalize(word)
	if word == "" {
		return nil
	}

	out := []string{word}
	add := func(v string) {
		for _, existing := range out {
			if existing == v {
				return
			}
		}
		out = append(out, v)
	}

	if !strings.HasSuffix(word, "s") {
		add(word + "s")
		if !endsInVowel(word) {
			add(word + "es")
		}
	}

	switch {
	case strings.HasSuffix(word, "es") && len(word) > 4:
		add(word[:len(word)-2])
	case strings.HasSuffix(word, "s") && len(word) > 3:
		add(word[:len(word)-1])
	}

	return out
}

func endsInVowel(word string) bool {
	switch word[len(word)-1] {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}
