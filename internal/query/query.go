// Package query turns a natural-language search phrase into structured
// filters. It is a keyword heuristic, not NLP: the embedding similarity
// does the heavy lifting and these filters only narrow the result.
package query

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/kozaktomas/fotofindr/internal/database"
)

// emotionTerms maps query words to the dominant emotion they ask for.
var emotionTerms = map[string]string{
	"happy":     "happy",
	"smiling":   "happy",
	"joyful":    "happy",
	"laughing":  "happy",
	"cheerful":  "happy",
	"sad":       "sad",
	"crying":    "sad",
	"unhappy":   "sad",
	"angry":     "angry",
	"mad":       "angry",
	"furious":   "angry",
	"surprised": "surprised",
	"shocked":   "surprised",
	"scared":    "fearful",
	"afraid":    "fearful",
}

// qualityTerms flag queries that ask for the good photos only.
var qualityTerms = map[string]struct{}{
	"best":      {},
	"good":      {},
	"favorite":  {},
	"favourite": {},
	"important": {},
	"memorable": {},
}

// lowValueTerms are ignored as object keywords; a query naming them is
// explicitly asking about junk, so low-value photos stay included.
var lowValueTerms = map[string]struct{}{
	"screenshot":  {},
	"screenshots": {},
	"blurry":      {},
	"duplicate":   {},
	"duplicates":  {},
	"junk":        {},
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "of": {}, "with": {}, "and": {},
	"or": {}, "in": {}, "at": {}, "on": {}, "from": {}, "to": {},
	"me": {}, "my": {}, "our": {}, "show": {}, "find": {}, "get": {},
	"photo": {}, "photos": {}, "picture": {}, "pictures": {},
	"pic": {}, "pics": {}, "image": {}, "images": {}, "shot": {}, "shots": {},
}

// ParseFilters extracts structured filters from a query. Named profiles
// are matched by substring so "photos of Jiří" finds the "Jiri" profile.
func ParseFilters(raw string, profiles []database.PersonProfile) database.SearchFilter {
	normalized := Normalize(raw)

	var f database.SearchFilter
	consumed := make(map[string]struct{})

	for _, p := range profiles {
		if p.Name == "" {
			continue
		}
		name := Normalize(p.Name)
		if name != "" && strings.Contains(normalized, name) {
			f.PersonID = p.ID
			for _, tok := range strings.Fields(name) {
				consumed[tok] = struct{}{}
			}
			break
		}
	}

	askedForJunk := false
	var objects []string
	for _, tok := range tokenize(normalized) {
		if _, ok := consumed[tok]; ok {
			continue
		}
		if _, ok := stopwords[tok]; ok {
			continue
		}
		if emotion, ok := emotionTerms[tok]; ok {
			if f.Emotion == "" {
				f.Emotion = emotion
			}
			continue
		}
		if _, ok := qualityTerms[tok]; ok {
			f.ExcludeLowValue = true
			continue
		}
		if _, ok := lowValueTerms[tok]; ok {
			askedForJunk = true
			continue
		}
		if len(tok) < 3 {
			continue
		}
		objects = append(objects, singular(tok))
	}

	f.Objects = objects
	if askedForJunk {
		f.ExcludeLowValue = false
	}
	return f
}

// Normalize lowercases and strips diacritics (e.g. "Jiří" -> "jiri").
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, _ := transform.String(t, s)
	return strings.ToLower(strings.TrimSpace(folded))
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// singular trims a plural "s" so "dogs" matches the detector label "dog".
func singular(tok string) string {
	if len(tok) > 3 && strings.HasSuffix(tok, "s") && !strings.HasSuffix(tok, "ss") {
		return tok[:len(tok)-1]
	}
	return tok
}
