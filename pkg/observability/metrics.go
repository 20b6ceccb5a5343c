package observability

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PrometheusHandler exposes handler as a gin route. Without a handler the
// route answers 503 so scrapers see the exporter as down.
func PrometheusHandler(handler http.Handler) gin.HandlerFunc {
	if handler == nil {
		return func(c *gin.Context) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":   "service_unavailable",
				"message": "metrics exporter not initialized",
			})
		}
	}
	return gin.WrapH(handler)
}
