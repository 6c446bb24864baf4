package api

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VE7LTX/echoframe/internal/audio"
	"github.com/VE7LTX/echoframe/internal/models"
	"github.com/VE7LTX/echoframe/internal/pipeline"
	"github.com/VE7LTX/echoframe/internal/record"
)

type fakeProcessor struct {
	rec         *record.SessionRecord
	err         error
	processed   int
	reprocessed int
	enriched    int
}

func (f *fakeProcessor) Process(ctx context.Context, req pipeline.Request) (*record.SessionRecord, error) {
	f.processed++
	if f.err != nil {
		return nil, f.err
	}
	return f.rec, nil
}

func (f *fakeProcessor) Reprocess(ctx context.Context, req pipeline.Request) (*record.SessionRecord, error) {
	f.reprocessed++
	if f.err != nil {
		return nil, f.err
	}
	return f.rec, nil
}

func (f *fakeProcessor) EnrichRecord(ctx context.Context, recordPath string) (*record.SessionRecord, error) {
	f.enriched++
	if f.err != nil {
		return nil, f.err
	}
	if _, err := record.Load(recordPath); err != nil {
		return nil, err
	}
	return f.rec, nil
}

func TestProcessSessionRoutesToProcessor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fake := &fakeCapture{}
	mgr := testManager(t, fake)
	_, err := mgr.Start(StartParams{Mode: audio.ModeMic, Title: "x"})
	require.NoError(t, err)
	_, err = mgr.Stop("fake-1")
	require.NoError(t, err)

	proc := &fakeProcessor{rec: &record.SessionRecord{
		SessionID:  "fake-1",
		Transcript: []models.AlignedSegment{},
	}}

	r := gin.New()
	r.POST("/api/v1/sessions/:id/process", HandleProcessSession(mgr, proc))

	w := doJSON(r, http.MethodPost, "/api/v1/sessions/fake-1/process", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, proc.processed)
	assert.Equal(t, 0, proc.reprocessed)

	w = doJSON(r, http.MethodPost, "/api/v1/sessions/fake-1/process?from_store=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, proc.reprocessed)
}

func TestProcessSessionRequiresFinalizedCapture(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fake := &fakeCapture{}
	mgr := testManager(t, fake)
	_, err := mgr.Start(StartParams{Mode: audio.ModeMic, Title: "x"})
	require.NoError(t, err)

	r := gin.New()
	r.POST("/api/v1/sessions/:id/process", HandleProcessSession(mgr, &fakeProcessor{}))

	w := doJSON(r, http.MethodPost, "/api/v1/sessions/fake-1/process", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestProcessSessionErrorPropagates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fake := &fakeCapture{}
	mgr := testManager(t, fake)
	_, err := mgr.Start(StartParams{Mode: audio.ModeMic, Title: "x"})
	require.NoError(t, err)
	_, err = mgr.Stop("fake-1")
	require.NoError(t, err)

	r := gin.New()
	r.POST("/api/v1/sessions/:id/process", HandleProcessSession(mgr, &fakeProcessor{err: errors.New("boom")}))

	w := doJSON(r, http.MethodPost, "/api/v1/sessions/fake-1/process", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetSessionRecord(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fake := &fakeCapture{}
	mgr := testManager(t, fake)
	sess, err := mgr.Start(StartParams{Mode: audio.ModeMic, Title: "x"})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/api/v1/sessions/:id", HandleGetSessionRecord(mgr))

	// Not processed yet: no record file on disk.
	w := doJSON(r, http.MethodGet, "/api/v1/sessions/fake-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	rec := &record.SessionRecord{SessionID: sess.ID, Transcript: []models.AlignedSegment{}}
	require.NoError(t, record.Save(rec, pipeline.RecordPath(sess.FilePath)))

	w = doJSON(r, http.MethodGet, "/api/v1/sessions/fake-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestEnrichSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fake := &fakeCapture{}
	mgr := testManager(t, fake)
	sess, err := mgr.Start(StartParams{Mode: audio.ModeMic, Title: "x"})
	require.NoError(t, err)

	proc := &fakeProcessor{rec: &record.SessionRecord{
		SessionID:  sess.ID,
		Transcript: []models.AlignedSegment{},
	}}
	r := gin.New()
	r.POST("/api/v1/sessions/:id/enrich", HandleEnrichSession(mgr, proc))

	// Not processed yet: no record file on disk.
	w := doJSON(r, http.MethodPost, "/api/v1/sessions/fake-1/enrich", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	rec := &record.SessionRecord{SessionID: sess.ID, Transcript: []models.AlignedSegment{}}
	require.NoError(t, record.Save(rec, pipeline.RecordPath(sess.FilePath)))

	w = doJSON(r, http.MethodPost, "/api/v1/sessions/fake-1/enrich", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, proc.enriched)
}

func TestRecordPathInTempDir(t *testing.T) {
	p := pipeline.RecordPath(filepath.Join(t.TempDir(), "a.wav"))
	assert.Equal(t, ".json", filepath.Ext(p))
}
