package rerank

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// tokenPattern keeps runs of letters, combining marks and digits, which
// covers Latin words as well as Thai syllable clusters.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{M}\p{N}]+`)

// stopWords are dropped from the query before lexical matching.
var stopWords = map[string]bool{
	// English
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true,
	"be": true, "to": true, "of": true, "and": true, "or": true, "in": true,
	"on": true, "for": true, "with": true, "do": true, "does": true, "i": true,
	"my": true, "me": true, "it": true, "this": true, "that": true, "what": true,
	"how": true, "can": true, "please": true,
	// Thai
	"ครับ": true, "ค่ะ": true, "คะ": true, "ครับผม": true, "นะ": true, "จ้า": true,
	"อะไร": true, "อย่างไร": true, "ยังไง": true, "ไหม": true, "มั้ย": true,
	"หรือ": true, "และ": true, "ที่": true, "ของ": true, "การ": true, "คือ": true,
	"ได้": true, "บ้าง": true, "ให้": true, "ใน": true, "จะ": true, "ต้อง": true,
	"ขอ": true, "หน่อย": true, "ทำ": true,
}

// Tokenize splits text into unique lower-cased tokens of at least two runes
// in order of first appearance, without stop words.
func Tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	seen := make(map[string]bool, len(raw))
	tokens := make([]string, 0, len(raw))
	for _, token := range raw {
		if utf8.RuneCountInString(token) < 2 || stopWords[token] || seen[token] {
			continue
		}
		seen[token] = true
		tokens = append(tokens, token)
	}
	return tokens
}

// LexicalOverlap returns the fraction of tokens found as substrings of
// content. content is expected lower-cased.
func LexicalOverlap(tokens []string, content string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	hits := 0
	for _, token := range tokens {
		if strings.Contains(content, token) {
			hits++
		}
	}
	return float64(hits) / float64(len(tokens))
}

// normalizeQuery lower-cases s and removes all whitespace.
func normalizeQuery(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "")
}
