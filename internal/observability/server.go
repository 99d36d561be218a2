package observability

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServeMetrics exposes /health and /metrics on addr. It blocks; run it
// in its own goroutine. The endpoint is optional and purely for
// operators watching the link counters.
func ServeMetrics(addr, app string) error {
	RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": app,
			"pid":     os.Getpid(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r.Run(addr)
}
