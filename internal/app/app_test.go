package app

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/large-farva/fieldline-engine/internal/config"
	"github.com/large-farva/fieldline-engine/internal/ws"
)

func newDemoApp(t *testing.T) *App {
	t.Helper()

	cfg := config.Default()
	cfg.Demo.Enabled = true
	cfg.Data.Root = t.TempDir()

	a, err := New(Options{
		Logger: log.New(io.Discard, "", 0),
		Cfg:    cfg,
	})
	require.NoError(t, err)
	return a
}

func TestHealthzPlain(t *testing.T) {
	a := newDemoApp(t)

	rec := httptest.NewRecorder()
	a.handleHealthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())
}

func TestStatusReportsDemoMode(t *testing.T) {
	a := newDemoApp(t)

	rec := httptest.NewRecorder()
	a.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "fieldline-engine", resp["name"])
	assert.Equal(t, "demo", resp["mode"])
	assert.Equal(t, "BOOTING", resp["state"])
}

func TestClassifyRejectedInDemoMode(t *testing.T) {
	a := newDemoApp(t)

	body := strings.NewReader(`{"x1":7.5,"x2":3,"x3":2,"datetime":"2017-01-01 01:00:00"}`)
	rec := httptest.NewRecorder()
	a.handleClassify(rec, httptest.NewRequest(http.MethodPost, "/api/classify", body))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "demo mode")
}

func TestClassifyRejectsGET(t *testing.T) {
	a := newDemoApp(t)

	rec := httptest.NewRecorder()
	a.handleClassify(rec, httptest.NewRequest(http.MethodGet, "/api/classify", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestResolveDataPath(t *testing.T) {
	a := newDemoApp(t)
	root := "/var/lib/fieldline"

	got, err := a.resolveDataPath(root, "orbit.txt")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/fieldline/orbit.txt", got)

	got, err = a.resolveDataPath(root, "/tmp/elsewhere/orbit.txt")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/elsewhere/orbit.txt", got)

	_, err = a.resolveDataPath(root, "../etc/passwd")
	assert.Error(t, err)
}

func TestJobRunnerSubmitAndCancel(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	r := NewJobRunner(nil, ws.NewHub(), logger, nil)

	job, err := r.Submit("in.txt", "out.txt", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, job.ID)
	assert.Equal(t, JobQueued, job.State)

	jobs := r.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "in.txt", jobs[0].Input)

	// Cancelling a queued job marks it terminal without running anything.
	require.NoError(t, r.Cancel(job.ID))
	jobs = r.Jobs()
	assert.Equal(t, JobCancelled, jobs[0].State)

	err = r.Cancel(job.ID)
	assert.ErrorContains(t, err, "already cancelled")

	err = r.Cancel(99)
	assert.ErrorContains(t, err, "no such job")
}

func TestJobRunnerOrdersNewestFirst(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	r := NewJobRunner(nil, ws.NewHub(), logger, nil)

	for i := 0; i < 3; i++ {
		_, err := r.Submit("in.txt", "out.txt", 1)
		require.NoError(t, err)
	}

	jobs := r.Jobs()
	require.Len(t, jobs, 3)
	assert.Equal(t, 3, jobs[0].ID)
	assert.Equal(t, 1, jobs[2].ID)
}
