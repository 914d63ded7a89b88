package statuses

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stitchboard/stitchboard/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	statuses []models.Status
}

func (f *fakeStore) List(ctx context.Context) ([]models.Status, error) {
	return f.statuses, nil
}

func (f *fakeStore) Create(ctx context.Context, title, value string) (*models.Status, error) {
	for _, s := range f.statuses {
		if s.Value == value {
			return nil, ErrDuplicateValue
		}
	}
	maxOrd := -1
	for _, s := range f.statuses {
		if s.Ord > maxOrd {
			maxOrd = s.Ord
		}
	}
	status := models.Status{ID: "gen", Title: title, Value: value, Ord: maxOrd + 1}
	f.statuses = append(f.statuses, status)
	return &status, nil
}

func (f *fakeStore) Delete(ctx context.Context, value string) error {
	for i, s := range f.statuses {
		if s.Value == value {
			f.statuses = append(f.statuses[:i], f.statuses[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func newTestRouter(store Store) *mux.Router {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	router := mux.NewRouter()
	NewHandler(store, logger).RegisterRoutes(router)
	return router
}

func doRequest(router *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestListStatuses(t *testing.T) {
	router := newTestRouter(&fakeStore{statuses: []models.Status{
		{ID: "s1", Title: "New", Value: "new", Ord: 0},
		{ID: "s2", Title: "Completed", Value: "done", Ord: 2},
	}})

	rec := doRequest(router, http.MethodGet, "/statuses", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got []models.Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].Value)
}

func TestCreateStatusAssignsNextOrd(t *testing.T) {
	store := &fakeStore{statuses: []models.Status{
		{ID: "s1", Title: "New", Value: "new", Ord: 0},
		{ID: "s2", Title: "Completed", Value: "done", Ord: 4},
	}}
	router := newTestRouter(store)

	rec := doRequest(router, http.MethodPost, "/statuses", map[string]string{
		"title": "Alterations", "value": "alterations",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, 5, created.Ord)
}

func TestCreateStatusValidation(t *testing.T) {
	router := newTestRouter(&fakeStore{})

	rec := doRequest(router, http.MethodPost, "/statuses", map[string]string{"title": "New"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(router, http.MethodPost, "/statuses", map[string]string{"value": "new"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateStatusDuplicateConflicts(t *testing.T) {
	router := newTestRouter(&fakeStore{statuses: []models.Status{
		{ID: "s1", Title: "New", Value: "new", Ord: 0},
	}})

	rec := doRequest(router, http.MethodPost, "/statuses", map[string]string{
		"title": "New Again", "value": "new",
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Status value already exists", body["message"])
}

func TestDeleteStatus(t *testing.T) {
	store := &fakeStore{statuses: []models.Status{
		{ID: "s1", Title: "New", Value: "new", Ord: 0},
	}}
	router := newTestRouter(store)

	rec := doRequest(router, http.MethodDelete, "/statuses/new", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, store.statuses)

	rec = doRequest(router, http.MethodDelete, "/statuses/new", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
