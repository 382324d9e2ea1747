package analyzer

import (
	"math"
	"sort"

	"github.com/ibeckermayer/narratives/internal/types"
)

// DynamicsSummary aggregates reply-chain categories
type DynamicsSummary struct {
	Counts        map[string]int     `json:"counts"`
	Percentages   map[string]float64 `json:"percentages"`
	TotalAnalyzed int                `json:"total_analyzed"`
}

// SummarizeReplyChains counts every category (including "unknown") and, when
// anything was analyzed, its share in percent rounded to two decimals.
func SummarizeReplyChains(results []types.ReplyChainResult) DynamicsSummary {
	s := DynamicsSummary{
		Counts: map[string]int{
			types.StanceReinforce: 0,
			types.StanceChallenge: 0,
			types.StanceShift:     0,
			types.StanceUnknown:   0,
		},
		Percentages:   map[string]float64{},
		TotalAnalyzed: len(results),
	}
	for _, r := range results {
		if _, ok := s.Counts[r.Category]; ok {
			s.Counts[r.Category]++
		} else {
			s.Counts[types.StanceUnknown]++
		}
	}
	if s.TotalAnalyzed > 0 {
		for c, n := range s.Counts {
			s.Percentages[c] = math.Round(float64(n)/float64(s.TotalAnalyzed)*10000) / 100
		}
	}
	return s
}

// Classification fields counted by SummarizeClassifications
const (
	FieldNarrativeFrame = "narrative_frame"
	FieldMainSubject    = "main_subject"
	FieldStance         = "stance"
	FieldTopicFocus     = "topic_focus"
)

// NarrativeSummary counts the values seen for each classification field
type NarrativeSummary map[string]map[string]int

// ValueCount is one value and how often it occurred
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// SummarizeClassifications counts non-empty field values. Unparsed responses
// contribute nothing.
func SummarizeClassifications(cs []types.Classification) NarrativeSummary {
	s := NarrativeSummary{
		FieldNarrativeFrame: {},
		FieldMainSubject:    {},
		FieldStance:         {},
		FieldTopicFocus:     {},
	}
	add := func(field, value string) {
		if value != "" {
			s[field][value]++
		}
	}
	for _, c := range cs {
		add(FieldNarrativeFrame, c.NarrativeFrame)
		add(FieldMainSubject, c.MainSubject)
		add(FieldStance, c.Stance)
		add(FieldTopicFocus, c.TopicFocus)
	}
	return s
}

// Top returns up to n of field's values, most frequent first, ties by value.
// n <= 0 returns all.
func (s NarrativeSummary) Top(field string, n int) []ValueCount {
	out := make([]ValueCount, 0, len(s[field]))
	for v, c := range s[field] {
		out = append(out, ValueCount{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
