package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/horizon/internal/result"
)

// Middleware creates a Gin middleware for metrics collection
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// Process request
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// Timer measures one client request.
type Timer struct {
	start   time.Time
	metrics *Metrics
	service string
	command string
}

// NewTimer creates a new timer
func NewTimer(metrics *Metrics, service, command string) *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: metrics,
		service: service,
		command: command,
	}
}

// Stop records the elapsed time with the call's outcome.
func (t *Timer) Stop(err error) {
	t.metrics.RecordClientCall(t.service, t.command, result.FromError(err), time.Since(t.start))
}
