package decision

import (
	"fmt"
	"strings"

	"github.com/siherrmann/kbrag/model"
)

// Gate accepts the ranked results whose score divided by the score scale
// reaches the threshold of their type. Accepted items are rendered as
// <type>content</type> lines in rank order, rejected items are dropped.
// HasContext is true only if something was accepted and the context is
// not blank.
func Gate(results []model.RankedResult, config model.ThresholdConfig) model.GateResult {
	scale := config.ScoreScale
	if scale <= 0 {
		scale = 100
	}

	accepted := []model.RankedResult{}
	parts := []string{}
	for _, r := range results {
		if r.Score/scale < config.Threshold(r.Item.Type) {
			continue
		}
		accepted = append(accepted, r)
		parts = append(parts, fmt.Sprintf("<%s>%s</%s>", r.Item.Type, r.Item.Content, r.Item.Type))
	}

	context := strings.Join(parts, "\n")
	return model.GateResult{
		Context:    context,
		HasContext: len(accepted) > 0 && strings.TrimSpace(context) != "",
		Accepted:   accepted,
	}
}
