package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/janitarr/janitarr/internal/controllers"
	"github.com/janitarr/janitarr/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (chi.Router, *models.Database) {
	t.Helper()

	db, err := models.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	issuesHandler := NewIssuesHandler(controllers.NewIssuesController(db, logger), "default", logger)
	whitelistHandler := NewWhitelistHandler(controllers.NewWhitelistController(db, logger), "default", logger)
	settingsHandler := NewSettingsHandler(controllers.NewSettingsController(db, logger), "default", logger)

	router := chi.NewRouter()
	router.Get("/api/issues", issuesHandler.List)
	router.Get("/api/whitelist/content", whitelistHandler.ListContent)
	router.Post("/api/whitelist/content", whitelistHandler.AddContent)
	router.Delete("/api/whitelist/content/{id}", whitelistHandler.RemoveContent)
	router.Get("/api/settings/thresholds", settingsHandler.GetThresholds)
	router.Put("/api/settings/thresholds", settingsHandler.UpdateThresholds)

	return router, db
}

func TestIssuesEmptyBeforeFirstSync(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/issues", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_count":0`)
}

func TestIssuesUnknownFilter(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/issues?filter=huge", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWhitelistConflictStatus(t *testing.T) {
	router, _ := newTestRouter(t)

	body := `{"jellyfin_id":"m1","name":"Movie","media_type":"movie","duration":"permanent"}`

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/whitelist/content", strings.NewReader(body)))
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/whitelist/content", strings.NewReader(body)))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestWhitelistDeleteUnknown(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/whitelist/content/999", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/whitelist/content/not-a-number", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWhitelistEntriesAreScopedByHeader(t *testing.T) {
	router, _ := newTestRouter(t)

	body := `{"jellyfin_id":"m1","name":"Movie","media_type":"movie","duration":"permanent"}`
	req := httptest.NewRequest(http.MethodPost, "/api/whitelist/content", strings.NewReader(body))
	req.Header.Set("X-Janitarr-User", "alice")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	// The default user sees no entries.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/whitelist/content", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/whitelist/content", nil)
	req.Header.Set("X-Janitarr-User", "alice")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Contains(t, rec.Body.String(), `"Movie"`)
}

func TestThresholdsValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/settings/thresholds", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"old_content_months":4`)

	bad := `{"old_content_months":0,"min_age_months":3,"large_movie_size_gb":13,"large_season_size_gb":15}`
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/settings/thresholds", strings.NewReader(bad)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	good := `{"old_content_months":6,"min_age_months":2,"large_movie_size_gb":20,"large_season_size_gb":25}`
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/settings/thresholds", strings.NewReader(good)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"large_movie_size_gb":20`)
}
