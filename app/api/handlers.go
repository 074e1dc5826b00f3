package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/milestone-timeline/app/timeline"
)

func NewHandler(loader LoaderInterface, generator GeneratorInterface, filterer *timeline.Filterer, version string) *Handler {
	return &Handler{
		loader:    loader,
		generator: generator,
		filterer:  filterer,
		version:   version,
	}
}

// GetTimeline runs one load and returns the dataset. A failed load still
// answers 200 with the fallback dataset and the error message.
func (h *Handler) GetTimeline(c *gin.Context) {
	filters := filtersFromQuery(c)
	if err := h.filterer.Validate(filters); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dataset, err := h.loader.Load(c.Request.Context())

	response := timelineResponse{
		LastUpdated: dataset.LastUpdated,
		Milestones:  h.filterer.Run(dataset.Milestones, filters),
	}
	if err != nil {
		response.Fallback = true
		response.Error = err.Error()
	}

	c.Header("X-Timeline-Fallback", strconv.FormatBool(response.Fallback))
	c.Header("X-Timeline-Milestones", strconv.Itoa(len(response.Milestones)))
	c.JSON(http.StatusOK, response)
}

func (h *Handler) GetTimelineFeed(c *gin.Context) {
	dataset, err := h.loader.Load(c.Request.Context())

	rss, genErr := h.generator.Run(dataset)
	if genErr != nil {
		slog.Error("RSS generation error", "error", genErr)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Timeline-Fallback", strconv.FormatBool(err != nil))
	c.Header("X-Last-Updated", dataset.LastUpdated)

	c.String(http.StatusOK, rss)
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"version":   h.version,
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	})
}

func (h *Handler) GetInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":     "Milestone Timeline",
		"version":     h.version,
		"description": "Regulatory milestone timeline normalized from a Google Sheets feed",
		"endpoints": map[string]string{
			"timeline": "/timeline?status=<status>&type=<type>&flag=<risk|catalyst|outcome|statutory>",
			"feed":     "/timeline.xml",
			"health":   "/health",
			"metrics":  "/metrics",
		},
	})
}

// filtersFromQuery maps repeatable query parameters onto filters:
// status, type and flag include; exclude_status, exclude_type and
// exclude_flag exclude. Comma-separated values are accepted too.
func filtersFromQuery(c *gin.Context) []timeline.Filter {
	var filters []timeline.Filter

	for _, field := range []string{"status", "type", "flag"} {
		includes := queryValues(c, field)
		excludes := queryValues(c, "exclude_"+field)
		if len(includes) == 0 && len(excludes) == 0 {
			continue
		}
		filters = append(filters, timeline.Filter{
			Field:    field,
			Includes: includes,
			Excludes: excludes,
		})
	}

	return filters
}

func queryValues(c *gin.Context, key string) []string {
	var values []string
	for _, raw := range c.QueryArray(key) {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
	}
	return values
}
