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
package main

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-video-catalog/internal/core/model"
	"github.com/jaycherian/gcp-go-video-catalog/internal/core/services"
)

// statusFor maps the service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrVideoNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidUpload):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrAlreadyIndexing),
		errors.Is(err, services.ErrAlreadyIndexed),
		errors.Is(err, services.ErrNotIndexed):
		return http.StatusConflict
	case errors.Is(err, services.ErrStorageWriteFailed),
		errors.Is(err, services.ErrIndexingSubmitFailed),
		errors.Is(err, services.ErrInsightsUnavailable):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func abortWithError(c *gin.Context, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
}

// uploadContentType keeps the client's content type when it names a video;
// anything else is left to content sniffing.
func uploadContentType(header string) string {
	if strings.HasPrefix(header, "video/") {
		return header
	}
	return ""
}

// VideoRouter registers the video lifecycle routes under /videos.
func VideoRouter(r *gin.RouterGroup, svc *services.VideoService) {
	videos := r.Group("/videos")
	{
		videos.POST("", func(c *gin.Context) {
			file, err := c.FormFile("file")
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field \"file\" is required"})
				return
			}
			f, err := file.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			defer f.Close()
			data, err := io.ReadAll(f)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			rec, err := svc.Upload(c.Request.Context(), data, file.Filename, uploadContentType(file.Header.Get("Content-Type")))
			if err != nil {
				abortWithError(c, err)
				return
			}
			c.JSON(http.StatusCreated, rec)
		})

		videos.GET("", func(c *gin.Context) {
			status := model.VideoStatus(c.Query("status"))
			if status != "" && !status.IsValid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status " + string(status)})
				return
			}
			c.JSON(http.StatusOK, svc.List(c.Request.Context(), status))
		})

		videos.GET("/:id", func(c *gin.Context) {
			rec, err := svc.Get(c.Request.Context(), c.Param("id"))
			if err != nil {
				abortWithError(c, err)
				return
			}
			c.JSON(http.StatusOK, rec)
		})

		videos.DELETE("/:id", func(c *gin.Context) {
			removed, err := svc.Delete(c.Request.Context(), c.Param("id"))
			if !removed {
				if err == nil {
					err = services.ErrVideoNotFound
				}
				abortWithError(c, err)
				return
			}
			if err != nil {
				// The video is gone; some external copies may linger.
				c.JSON(http.StatusOK, gin.H{"deleted": true, "cleanup_error": err.Error()})
				return
			}
			c.Status(http.StatusNoContent)
		})

		videos.POST("/:id/index", func(c *gin.Context) {
			jobID, err := svc.SubmitIndexing(c.Request.Context(), c.Param("id"))
			if err != nil {
				abortWithError(c, err)
				return
			}
			c.JSON(http.StatusAccepted, gin.H{"video_id": c.Param("id"), "job_id": jobID})
		})

		videos.GET("/:id/insights", func(c *gin.Context) {
			insights, err := svc.GetInsights(c.Request.Context(), c.Param("id"))
			if err != nil {
				abortWithError(c, err)
				return
			}
			c.JSON(http.StatusOK, insights)
		})

		videos.GET("/:id/transcript", func(c *gin.Context) {
			insights, err := svc.GetInsights(c.Request.Context(), c.Param("id"))
			if err != nil {
				abortWithError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"video_id":   c.Param("id"),
				"transcript": insights.Transcript,
				"language":   insights.Language,
			})
		})

		videos.GET("/:id/stream", func(c *gin.Context) {
			url, err := svc.StreamingURL(c.Request.Context(), c.Param("id"))
			if err != nil {
				abortWithError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"url": url})
		})
	}
}
