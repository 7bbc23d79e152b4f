package transport

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/guyettinger/gle-vision-chat/internal/analysis"
	"github.com/guyettinger/gle-vision-chat/internal/config"
	"github.com/guyettinger/gle-vision-chat/internal/logger"
)

// BatchAnalyzer is the analysis service as seen by the HTTP layer. It never
// fails; model errors arrive as failure results.
type BatchAnalyzer interface {
	Analyze(ctx context.Context, question string, images []string) []analysis.PerImageResult
}

// AnalyzeRequest is the JSON body of POST /api/analyze.
type AnalyzeRequest struct {
	Question string   `json:"question"`
	Images   []string `json:"images"`
}

// AnalyzeResponse is the success body of POST /api/analyze.
type AnalyzeResponse struct {
	Results []analysis.PerImageResult `json:"results"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

const (
	msgNoQuestion    = "Please provide a question."
	msgNoImages      = "Please upload at least one image."
	msgTooManyImages = "You can upload up to 4 images."
	msgInternal      = "Internal server error"
)

// NewHandler builds the HTTP handler with all routes and middleware.
func NewHandler(analyzer BatchAnalyzer, cfg *config.Config) http.Handler {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		requestSizeLimiter(cfg.MaxRequestBodySize),
	)

	r.GET("/health", healthCheck)
	r.POST("/api/analyze", analyzeBatch(analyzer, cfg))

	return r
}

func analyzeBatch(analyzer BatchAnalyzer, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.AnalysisTimeout)
		defer cancel()

		var req AnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"ip": c.ClientIP(),
			}).Error("Failed to parse request body")
			c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: msgInternal})
			return
		}

		// Validate before any model call is attempted
		req.Question = strings.TrimSpace(req.Question)
		if msg, ok := validate(req); !ok {
			logger.WithFields(logrus.Fields{
				"ip":          c.ClientIP(),
				"image_count": len(req.Images),
				"reason":      msg,
			}).Warn("Rejected analysis request")
			c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: msg})
			return
		}

		logger.WithFields(logrus.Fields{
			"ip":          c.ClientIP(),
			"image_count": len(req.Images),
		}).Info("Processing analysis request")

		results := analyzer.Analyze(ctx, req.Question, req.Images)

		logger.WithFields(logrus.Fields{
			"image_count":        len(req.Images),
			"processing_time_ms": time.Since(startTime).Milliseconds(),
			"failed_images":      countFailed(results),
		}).Info("Analysis request completed")

		c.JSON(http.StatusOK, AnalyzeResponse{Results: results})
	}
}

func validate(req AnalyzeRequest) (string, bool) {
	if req.Question == "" {
		return msgNoQuestion, false
	}
	if len(req.Images) == 0 {
		return msgNoImages, false
	}
	if len(req.Images) > analysis.MaxImages {
		return msgTooManyImages, false
	}
	return "", true
}

func countFailed(results []analysis.PerImageResult) int {
	n := 0
	for _, r := range results {
		if !r.OK {
			n++
		}
	}
	return n
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
