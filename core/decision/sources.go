package decision

import (
	"strings"

	"github.com/siherrmann/kbrag/model"
)

// SourceEntries collects the first occurrence of every distinct non-empty
// source of results in rank order.
func SourceEntries(results []model.RankedResult) []model.SourceEntry {
	seen := map[string]bool{}
	entries := []model.SourceEntry{}
	for _, r := range results {
		name := strings.TrimSpace(r.Item.Metadata.Source)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		entries = append(entries, model.SourceEntry{Name: name, Score: r.Score})
	}
	return entries
}

// DecideSources picks the sources to cite from entries in rank order.
//
//   - no entry cites nothing, a single entry is cited alone
//   - a top score of at least DominantScore or a lead of at least
//     DominantGap over the second cites only the top entry
//   - with three or more entries a gap of at least ThirdGap between the
//     second and third cites the top two, otherwise the top three
//   - two entries without a dominant leader are both cited
func DecideSources(entries []model.SourceEntry, config model.DecisionConfig) model.Decision {
	trace := model.DecisionTrace{Entries: append([]model.SourceEntry{}, entries...)}

	var n int
	switch {
	case len(entries) == 0:
		trace.Rule = model.DecisionNone
	case len(entries) == 1:
		trace.Rule = model.DecisionSingle
		trace.Top = entries[0].Score
		n = 1
	default:
		s1, s2 := entries[0].Score, entries[1].Score
		trace.Top = s1
		trace.Gap12 = s1 - s2

		switch {
		case s1 >= config.DominantScore || trace.Gap12 >= config.DominantGap:
			trace.Rule = model.DecisionDominant
			n = 1
		case len(entries) >= 3:
			trace.Gap23 = s2 - entries[2].Score
			if trace.Gap23 >= config.ThirdGap {
				trace.Rule = model.DecisionTopTwo
				n = 2
			} else {
				trace.Rule = model.DecisionTopThree
				n = 3
			}
		default:
			trace.Rule = model.DecisionBothOfTwo
			n = 2
		}
	}

	sources := make([]string, 0, n)
	for _, e := range entries[:n] {
		sources = append(sources, e.Name)
	}

	separator := config.Separator
	if separator == "" {
		separator = ", "
	}

	return model.Decision{
		Sources:  sources,
		Citation: strings.Join(sources, separator),
		Trace:    trace,
	}
}
