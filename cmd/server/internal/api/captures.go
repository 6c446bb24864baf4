package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/VE7LTX/echoframe/internal/audio"
)

// HandleStartCapture opens a new capture session.
// POST /api/v1/captures
func HandleStartCapture(mgr *CaptureManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var p StartParams
		if err := c.ShouldBindJSON(&p); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if p.Mode == "" {
			p.Mode = audio.ModeMic
		}

		sess, err := mgr.Start(p)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, audio.ErrDeviceNotFound) || errors.Is(err, audio.ErrDeviceUnavailable) {
				status = http.StatusConflict
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, sess)
	}
}

// HandleStopCapture finalizes a recording session.
// POST /api/v1/captures/:id/stop
func HandleStopCapture(mgr *CaptureManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := mgr.Stop(c.Param("id"))
		if err != nil {
			if errors.Is(err, audio.ErrNotRecording) {
				// Stop on a finished session is a no-op, return its state.
				c.JSON(http.StatusOK, sess)
				return
			}
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, sess)
	}
}

// HandleGetCapture reports the live status of one session.
// GET /api/v1/captures/:id
func HandleGetCapture(mgr *CaptureManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := mgr.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "capture not found"})
			return
		}
		c.JSON(http.StatusOK, sess)
	}
}

// HandleListCaptures lists every session known to this server instance.
// GET /api/v1/captures
func HandleListCaptures(mgr *CaptureManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"captures": mgr.List()})
	}
}
