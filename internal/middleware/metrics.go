package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tumblelab/gym-api/internal/service"
)

// Metrics records duration and count for every matched route. Requests that
// match no route share one label value so scanner noise cannot blow up
// series cardinality.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
