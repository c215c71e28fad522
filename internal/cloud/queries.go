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
package cloud

// Warehouse statements. The %s placeholders take fully qualified table names
// (see BigQueryAnalytics.videosFQN); every value travels as a named parameter.
const (
	// QryMergeVideo upserts one video row keyed by id. Last write wins.
	QryMergeVideo = "MERGE `%s` T " +
		"USING (SELECT @id AS id) S ON T.id = S.id " +
		"WHEN MATCHED THEN UPDATE SET name = @name, object_location = @object_location, status = @status, " +
		"uploaded_at = @uploaded_at, indexed_at = @indexed_at, duration_seconds = @duration_seconds, " +
		"size_bytes = @size_bytes, content_type = @content_type, index_job_id = @index_job_id " +
		"WHEN NOT MATCHED THEN INSERT (id, name, object_location, status, uploaded_at, indexed_at, " +
		"duration_seconds, size_bytes, content_type, index_job_id) " +
		"VALUES (@id, @name, @object_location, @status, @uploaded_at, @indexed_at, " +
		"@duration_seconds, @size_bytes, @content_type, @index_job_id)"

	// QryMergeInsights upserts the insight row of one video, keyed by video_id.
	// Sentiments and faces are stored as JSON strings.
	QryMergeInsights = "MERGE `%s` T " +
		"USING (SELECT @video_id AS video_id) S ON T.video_id = S.video_id " +
		"WHEN MATCHED THEN UPDATE SET transcript = @transcript, keywords = @keywords, topics = @topics, " +
		"labels = @labels, brands = @brands, sentiments = @sentiments, faces = @faces, " +
		"language = @language, duration_seconds = @duration_seconds, updated_at = @updated_at " +
		"WHEN NOT MATCHED THEN INSERT (video_id, transcript, keywords, topics, labels, brands, sentiments, " +
		"faces, language, duration_seconds, updated_at) " +
		"VALUES (@video_id, @transcript, @keywords, @topics, @labels, @brands, @sentiments, " +
		"@faces, @language, @duration_seconds, @updated_at)"

	QryDeleteVideo    = "DELETE FROM `%s` WHERE id = @video_id"
	QryDeleteInsights = "DELETE FROM `%s` WHERE video_id = @video_id"

	QryFindInsights = "SELECT * FROM `%s` WHERE video_id = @video_id LIMIT 1"

	// QryVideoTotals counts videos by status and sums the known durations.
	QryVideoTotals = "SELECT COUNT(*) AS total_videos, " +
		"COUNTIF(status = 'indexed') AS indexed_count, " +
		"COUNTIF(status = 'failed') AS failed_count, " +
		"IFNULL(SUM(duration_seconds), 0) AS total_duration_seconds " +
		"FROM `%s`"

	// QryTopKeywords flattens the keyword arrays of indexed videos and keeps
	// the @top_n most frequent. Ties go to the value seen first, walking the
	// videos by upload time then id and each array in order.
	// Placeholders: insights table, videos table.
	QryTopKeywords = "WITH seen AS (SELECT id, ROW_NUMBER() OVER (ORDER BY uploaded_at, id) AS rn " +
		"FROM `%[2]s` WHERE status = 'indexed') " +
		"SELECT k AS keyword, COUNT(*) AS count " +
		"FROM `%[1]s` i JOIN seen s ON s.id = i.video_id CROSS JOIN UNNEST(i.keywords) AS k WITH OFFSET AS pos " +
		"GROUP BY k ORDER BY count DESC, MIN(s.rn), ARRAY_AGG(pos ORDER BY s.rn, pos LIMIT 1)[OFFSET(0)] " +
		"LIMIT @top_n"

	// QryTopTopics is QryTopKeywords over the topic arrays.
	QryTopTopics = "WITH seen AS (SELECT id, ROW_NUMBER() OVER (ORDER BY uploaded_at, id) AS rn " +
		"FROM `%[2]s` WHERE status = 'indexed') " +
		"SELECT t AS topic, COUNT(*) AS count " +
		"FROM `%[1]s` i JOIN seen s ON s.id = i.video_id CROSS JOIN UNNEST(i.topics) AS t WITH OFFSET AS pos " +
		"GROUP BY t ORDER BY count DESC, MIN(s.rn), ARRAY_AGG(pos ORDER BY s.rn, pos LIMIT 1)[OFFSET(0)] " +
		"LIMIT @top_n"
)
