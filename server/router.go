package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"report-tables/utils"
)

// NewRouter wires the routes. maxUploadMB bounds multipart memory.
func NewRouter(h *TableHandler, maxUploadMB int, logger *utils.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))
	router.MaxMultipartMemory = int64(maxUploadMB) << 20

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "report-tables",
		})
	})

	api := router.Group("/api/v1")
	{
		tables := api.Group("/tables")
		{
			tables.POST("/select", h.Select)
			tables.POST("/export", h.Export)
		}
		api.DELETE("/cache", h.PurgeCache)
	}
	return router
}

func requestLogger(logger *utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("[http] %s %s %d %v", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
