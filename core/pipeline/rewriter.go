package pipeline

import (
	"context"
	"strings"
)

// PassthroughRewriter returns the trimmed question.
func PassthroughRewriter(ctx context.Context, question string) (string, error) {
	return strings.TrimSpace(question), nil
}
