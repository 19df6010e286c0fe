package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vasaviseattle/site-tools/calendar"
	drivehttp "github.com/vasaviseattle/site-tools/drive/http"
	"github.com/vasaviseattle/site-tools/logger"
	"github.com/vasaviseattle/site-tools/widget"
)

// StatusCode maps a widget state to the HTTP status it is served with.
func StatusCode(state widget.State) int {
	switch state.Status {
	case widget.StatusNotConfigured:
		return http.StatusServiceUnavailable
	case widget.StatusError:
		return http.StatusBadGateway
	default:
		return http.StatusOK
	}
}

// WidgetHandler loads kind for each request. The folder query parameter
// overrides the configured default folder.
func WidgetHandler(kind widget.Kind, client drivehttp.Client, opts widget.Options, lggr logger.Logger) func(*gin.Context) {
	return func(c *gin.Context) {
		w := widget.New(kind, client, opts, lggr)
		state := w.Load(c.Request.Context(), c.Query("folder"))

		c.JSON(StatusCode(state), state)
	}
}

func CalendarHandler(feedID, timezone string) func(*gin.Context) {
	return func(c *gin.Context) {
		embedURL, err := calendar.EmbedURL(feedID, timezone)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": widget.StatusNotConfigured, "message": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": widget.StatusReady, "embedUrl": embedURL})
	}
}

// Register mounts one route per widget kind, e.g. GET /api/gallery.
func Register(api *gin.RouterGroup, client drivehttp.Client, apiKey string, folderFor func(folderKey string) string, feedID, timezone string, lggr logger.Logger) {
	for name, kind := range widget.Kinds {
		opts := widget.Options{APIKey: apiKey, DefaultFolder: folderFor(kind.FolderKey)}
		api.GET("/"+name, WidgetHandler(kind, client, opts, lggr))
	}

	api.GET("/calendar", CalendarHandler(feedID, timezone))
}
