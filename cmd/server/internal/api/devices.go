package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/VE7LTX/echoframe/internal/audio"
)

// HandleListDevices enumerates capture-capable devices. Query parameters:
// direction=input|output (default both), match=<substring>.
func HandleListDevices(newCatalog func() (*audio.Catalog, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		catalog, err := newCatalog()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}

		var devices []audio.Device
		switch c.Query("direction") {
		case "input":
			devices = catalog.List(audio.DirectionInput)
		case "output":
			devices = catalog.List(audio.DirectionOutput)
		default:
			devices = append(catalog.List(audio.DirectionInput), catalog.List(audio.DirectionOutput)...)
		}

		if match := c.Query("match"); match != "" {
			filtered := devices[:0]
			for _, d := range devices {
				if strings.Contains(strings.ToLower(d.Name), strings.ToLower(match)) {
					filtered = append(filtered, d)
				}
			}
			devices = filtered
		}

		c.JSON(http.StatusOK, gin.H{"devices": devices})
	}
}
