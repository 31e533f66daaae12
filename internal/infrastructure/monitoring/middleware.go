package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware for metrics collection. Requests are
// labelled by route template so path parameters do not explode cardinality.
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		reqSize := c.Request.ContentLength
		if reqSize < 0 {
			reqSize = 0
		}

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		duration := time.Since(start)
		status := strconv.Itoa(c.Writer.Status())
		respSize := int64(c.Writer.Size())
		if respSize < 0 {
			respSize = 0
		}

		metrics.RecordHTTPRequest(method, path, status, duration, reqSize, respSize)
	}
}

// Timer measures an upstream call
type Timer struct {
	start     time.Time
	metrics   *Metrics
	service   string
	operation string
}

// NewTimer starts timing an upstream call
func NewTimer(metrics *Metrics, service, operation string) *Timer {
	return &Timer{
		start:     time.Now(),
		metrics:   metrics,
		service:   service,
		operation: operation,
	}
}

// Stop records the call with a status derived from err
func (t *Timer) Stop(err error) {
	t.metrics.RecordUpstreamCall(t.service, t.operation, statusOf(err), time.Since(t.start))
}
