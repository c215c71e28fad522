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

package model

import "math"

// KeywordCount is one row of the keyword frequency table.
type KeywordCount struct {
	Keyword string `json:"keyword" bigquery:"keyword"`
	Count   int64  `json:"count" bigquery:"count"`
}

// TopicCount is one row of the topic frequency table.
type TopicCount struct {
	Topic string `json:"topic" bigquery:"topic"`
	Count int64  `json:"count" bigquery:"count"`
}

// Summary is the derived, on-demand aggregate view over the catalog. It is
// recomputed on every request and never stored.
type Summary struct {
	TotalVideos          int64          `json:"total_videos" bigquery:"total_videos"`
	IndexedCount         int64          `json:"indexed_videos" bigquery:"indexed_count"`
	FailedCount          int64          `json:"failed_videos" bigquery:"failed_count"`
	TotalDurationSeconds float64        `json:"total_duration" bigquery:"total_duration_seconds"`
	TopKeywords          []KeywordCount `json:"top_keywords" bigquery:"-"`
	TopTopics            []TopicCount   `json:"top_topics" bigquery:"-"`
}

// SuccessRate is the share of all videos that reached Indexed, as a percentage.
func (s *Summary) SuccessRate() float64 {
	if s.TotalVideos == 0 {
		return 0
	}
	return float64(s.IndexedCount) / float64(s.TotalVideos) * 100
}

// InsightsOverview is the condensed dashboard view of a Summary.
type InsightsOverview struct {
	TotalVideos        int64          `json:"total_videos"`
	IndexedVideos      int64          `json:"indexed_videos"`
	FailedVideos       int64          `json:"failed_videos"`
	SuccessRate        float64        `json:"success_rate"`
	TotalDurationHours float64        `json:"total_duration_hours"`
	TopKeywords        []KeywordCount `json:"top_keywords"`
	TopTopics          []TopicCount   `json:"top_topics"`
}

// Overview condenses the summary, keeping the first n keywords and topics.
func (s *Summary) Overview(n int) *InsightsOverview {
	out := &InsightsOverview{
		TotalVideos:        s.TotalVideos,
		IndexedVideos:      s.IndexedCount,
		FailedVideos:       s.FailedCount,
		SuccessRate:        math.Round(s.SuccessRate()*100) / 100,
		TotalDurationHours: math.Round(s.TotalDurationSeconds/3600*100) / 100,
		TopKeywords:        append(make([]KeywordCount, 0, n), s.TopKeywords[:min(n, len(s.TopKeywords))]...),
		TopTopics:          append(make([]TopicCount, 0, n), s.TopTopics[:min(n, len(s.TopTopics))]...),
	}
	return out
}
