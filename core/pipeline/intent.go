package pipeline

import (
	"context"
	"regexp"
	"strings"

	"github.com/siherrmann/kbrag/model"
)

// Word boundaries for Thai and Latin text. RE2's \b only knows ASCII words.
const (
	wordStart = `(?:^|[^\p{L}\p{M}\p{N}_])`
	wordEnd   = `(?:$|[^\p{L}\p{M}\p{N}_])`
)

// BlockWords are the off-topic word groups that are never answered:
// politics, cooking, entertainment and gambling, profanity.
var BlockWords = [][]string{
	{"การเมือง", "เลือกตั้ง", "พรรค", "นายก", "ฝ่ายค้าน", "รัฐบาล"},
	{"ทำอาหาร", "สูตร", "คุกกี้", "ทำกับข้าว"},
	{"หนัง", "ซีรีส์", "อนิเมะ", "เกม", "หวย", "เลขเด็ด"},
	{"ด่า", "เหี้ย", "สัส", "ควย", "ไอ้"},
}

// WordPattern compiles a pattern matching any of words as a whole word.
func WordPattern(words ...string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(strings.ToLower(w))
	}
	return regexp.MustCompile(wordStart + `(?:` + strings.Join(quoted, "|") + `)` + wordEnd)
}

// NewTopicClassifier blocks every question matching one of patterns.
// Matching is done on the lower-cased question.
func NewTopicClassifier(patterns ...*regexp.Regexp) ClassifyFunc {
	return func(ctx context.Context, question string) (model.Intent, error) {
		q := strings.ToLower(question)
		for _, p := range patterns {
			if p.MatchString(q) {
				return model.IntentBlock, nil
			}
		}
		return model.IntentQuery, nil
	}
}

// DefaultClassifier blocks the BlockWords groups.
func DefaultClassifier() ClassifyFunc {
	patterns := make([]*regexp.Regexp, 0, len(BlockWords))
	for _, words := range BlockWords {
		patterns = append(patterns, WordPattern(words...))
	}
	return NewTopicClassifier(patterns...)
}
