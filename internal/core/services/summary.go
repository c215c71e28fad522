// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package services

import (
	"context"
	"log/slog"
	"sort"

	"github.com/jaycherian/gcp-go-video-catalog/internal/core/catalog"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/model"
)

// DefaultTopN is the length of the keyword and topic tables.
const DefaultTopN = 100

// SummaryProjector folds the catalog into aggregate views.
type SummaryProjector struct {
	catalog         *catalog.Catalog
	analytics       Analytics
	topN            int
	preferWarehouse bool
}

// NewSummaryProjector creates a projector. With preferWarehouse set the
// warehouse is asked first and the local fold is only a fallback.
func NewSummaryProjector(cat *catalog.Catalog, analytics Analytics, topN int, preferWarehouse bool) *SummaryProjector {
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &SummaryProjector{
		catalog:         cat,
		analytics:       analytics,
		topN:            topN,
		preferWarehouse: preferWarehouse,
	}
}

// Aggregate returns the current summary. It never fails: warehouse errors
// fall back to the catalog.
func (p *SummaryProjector) Aggregate(ctx context.Context) *model.Summary {
	if p.preferWarehouse && p.analytics != nil {
		s, err := p.analytics.Aggregate(ctx, p.topN)
		if err == nil && s != nil {
			return s
		}
		slog.WarnContext(ctx, "warehouse aggregate unavailable, using catalog", "error", err)
	}
	return Fold(p.catalog.Snapshot(), p.topN)
}

// Fold computes a summary over entries. Counts and durations cover every
// record; keywords and topics come from Indexed records only. Ties in the top
// tables keep the order in which the values were first seen.
func Fold(entries []*catalog.Entry, topN int) *model.Summary {
	s := &model.Summary{}
	keywords := newTally()
	topics := newTally()
	for _, e := range entries {
		rec := e.Record
		s.TotalVideos++
		switch rec.Status {
		case model.StatusIndexed:
			s.IndexedCount++
		case model.StatusFailed:
			s.FailedCount++
		}
		if rec.DurationSeconds != nil {
			s.TotalDurationSeconds += *rec.DurationSeconds
		}
		if rec.Status == model.StatusIndexed && e.Insights != nil {
			keywords.addAll(e.Insights.Keywords)
			topics.addAll(e.Insights.Topics)
		}
	}

	s.TopKeywords = make([]model.KeywordCount, 0)
	for _, c := range keywords.top(topN) {
		s.TopKeywords = append(s.TopKeywords, model.KeywordCount{Keyword: c.value, Count: c.count})
	}
	s.TopTopics = make([]model.TopicCount, 0)
	for _, c := range topics.top(topN) {
		s.TopTopics = append(s.TopTopics, model.TopicCount{Topic: c.value, Count: c.count})
	}
	return s
}

type counted struct {
	value string
	count int64
}

type tally struct {
	index map[string]int
	items []counted
}

func newTally() *tally {
	return &tally{index: make(map[string]int)}
}

func (t *tally) addAll(values []string) {
	for _, v := range values {
		if i, ok := t.index[v]; ok {
			t.items[i].count++
			continue
		}
		t.index[v] = len(t.items)
		t.items = append(t.items, counted{value: v, count: 1})
	}
}

func (t *tally) top(n int) []counted {
	out := append([]counted(nil), t.items...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].count > out[j].count })
	if len(out) > n {
		out = out[:n]
	}
	return out
}
