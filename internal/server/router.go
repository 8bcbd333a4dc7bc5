package server

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"finsight/internal/query"
	"finsight/internal/source"
)

// StatsSource reports per-provider fetch counters for the ops endpoint.
type StatsSource func() map[string]source.Stats

type queryRequest struct {
	Query string           `json:"query"`
	Plan  []query.ToolCall `json:"plan" binding:"required"`
}

func registerAPIRoutes(group *gin.RouterGroup, svc QueryService, cacheAdmin CacheAdmin, stats StatsSource) {
	group.POST("/query", func(c *gin.Context) {
		var req queryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
		if len(req.Plan) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "plan cannot be empty"})
			return
		}
		trail := svc.Answer(c.Request.Context(), req.Query, req.Plan)
		c.JSON(http.StatusOK, trail)
	})

	group.DELETE("/cache/:capability", func(c *gin.Context) {
		if cacheAdmin == nil {
			c.JSON(http.StatusNotImplemented, gin.H{"error": "cache administration disabled"})
			return
		}
		capability := strings.TrimSpace(c.Param("capability"))
		evicted, err := cacheAdmin.EvictCapability(c.Request.Context(), capability)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"capability": capability, "evicted": evicted})
	})

	group.GET("/sources", func(c *gin.Context) {
		if stats == nil {
			c.JSON(http.StatusOK, gin.H{})
			return
		}
		all := stats()
		names := make([]string, 0, len(all))
		for name := range all {
			names = append(names, name)
		}
		sort.Strings(names)
		out := make([]gin.H, 0, len(names))
		for _, name := range names {
			s := all[name]
			out = append(out, gin.H{
				"source":     name,
				"fetches":    s.Fetches,
				"failures":   s.Failures,
				"last_error": s.LastError,
			})
		}
		c.JSON(http.StatusOK, out)
	})
}
