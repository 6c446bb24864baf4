package api

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/VE7LTX/echoframe/internal/audio"
	"github.com/VE7LTX/echoframe/internal/pipeline"
	"github.com/VE7LTX/echoframe/internal/record"
)

// SessionProcessor runs post-processing for a finalized capture.
// *pipeline.Processor satisfies it; tests use a fake.
type SessionProcessor interface {
	Process(ctx context.Context, req pipeline.Request) (*record.SessionRecord, error)
	Reprocess(ctx context.Context, req pipeline.Request) (*record.SessionRecord, error)
	EnrichRecord(ctx context.Context, recordPath string) (*record.SessionRecord, error)
}

// HandleProcessSession transcribes, diarizes and aligns a finalized
// capture. Pass ?from_store=1 to realign from stored artifacts instead of
// re-running ASR and diarization.
// POST /api/v1/sessions/:id/process
func HandleProcessSession(mgr *CaptureManager, proc SessionProcessor) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		sess, ok := mgr.Get(id)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "capture not found"})
			return
		}
		if sess.Status != audio.StatusFinalized {
			c.JSON(http.StatusConflict, gin.H{"error": "capture is not finalized", "status": sess.Status})
			return
		}

		title, sessionContext, _ := mgr.Meta(id)
		req := pipeline.Request{Session: sess, Title: title, Context: sessionContext}

		var (
			rec *record.SessionRecord
			err error
		)
		if c.Query("from_store") != "" {
			rec, err = proc.Reprocess(c.Request.Context(), req)
		} else {
			rec, err = proc.Process(c.Request.Context(), req)
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

// HandleEnrichSession attaches a summary to a processed session's record.
// Repeating the call returns the existing enrichment.
// POST /api/v1/sessions/:id/enrich
func HandleEnrichSession(mgr *CaptureManager, proc SessionProcessor) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := mgr.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "capture not found"})
			return
		}

		rec, err := proc.EnrichRecord(c.Request.Context(), pipeline.RecordPath(sess.FilePath))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				c.JSON(http.StatusNotFound, gin.H{"error": "session not processed yet"})
				return
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

// HandleGetSessionRecord returns the saved session record for a capture.
// GET /api/v1/sessions/:id
func HandleGetSessionRecord(mgr *CaptureManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := mgr.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "capture not found"})
			return
		}

		rec, err := record.Load(pipeline.RecordPath(sess.FilePath))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				c.JSON(http.StatusNotFound, gin.H{"error": "session not processed yet"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}
