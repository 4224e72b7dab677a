package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/guidedcook/internal/logger"
	"github.com/hammamikhairi/guidedcook/internal/metrics"
	"github.com/hammamikhairi/guidedcook/internal/recipe"
	"github.com/hammamikhairi/guidedcook/internal/storage"
)

func newTestServer(t *testing.T) (*httptest.Server, *metrics.Recorder) {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	rec := metrics.New()
	s := New(recipe.NewMemorySource(log), storage.NewMemoryStore(log), log,
		WithTokens(map[string]string{"tok": "alice"}), WithRecorder(rec))
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return ts, rec
}

func do(t *testing.T, method, url, token string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func photoForm(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	return photoFormWith(t, tinyPNG(t))
}

func photoFormWith(t *testing.T, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("photo", "dish.png")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealthIsPublic(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/health", "", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthRequired(t *testing.T) {
	ts, _ := newTestServer(t)

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"unknown", "nope", http.StatusUnauthorized},
		{"valid", "tok", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, http.MethodGet, ts.URL+"/saved-recipes", tt.token, nil, "")
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestRecipeListAndSearch(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/recipes?q=soup", "tok", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list []recipe.Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, "tomato-soup", list[0].ID)
}

func TestPhotoLimitBody(t *testing.T) {
	ts, _ := newTestServer(t)

	for i := 0; i < 3; i++ {
		body, ct := photoForm(t)
		resp := do(t, http.MethodPost, ts.URL+"/recipes/pancakes/photos", "tok", body, ct)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	body, ct := photoForm(t)
	resp := do(t, http.MethodPost, ts.URL+"/recipes/pancakes/photos", "tok", body, ct)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"photo_limit_exceeded","current":3,"max":3}`, string(raw))
}

func TestPhotoUploadRequiresField(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/recipes/pancakes/photos", "tok", strings.NewReader("{}"), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPhotoUploadRejectsNonImage(t *testing.T) {
	ts, _ := newTestServer(t)

	body, ct := photoFormWith(t, []byte("definitely not a picture"))
	resp := do(t, http.MethodPost, ts.URL+"/recipes/pancakes/photos", "tok", body, ct)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/recipes/pancakes/photos/count", "tok", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var count struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&count))
	assert.Zero(t, count.Count)
}

func TestUnknownRecipe(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/recipes/nope/complete", "tok", strings.NewReader(`{}`), "application/json")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsCountRoutes(t *testing.T) {
	ts, _ := newTestServer(t)

	do(t, http.MethodGet, ts.URL+"/recipes/pancakes", "tok", nil, "")
	do(t, http.MethodGet, ts.URL+"/recipes/steamed-rice", "tok", nil, "")

	resp := do(t, http.MethodGet, ts.URL+"/metrics", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `guidedcook_backend_requests_total{code="200",route="GET /recipes/{id}"} 2`)
}
