package photos

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func newTestHandler(t *testing.T) (*Handler, *echo.Echo, string) {
	t.Helper()
	dir := t.TempDir()
	h := NewHandler(NewDownloader(zerolog.Nop()), dir)
	return h, echo.New(), dir
}

func TestServePhoto(t *testing.T) {
	h, e, dir := newTestHandler(t)
	if err := os.WriteFile(filepath.Join(dir, "scan.jpg"), []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/?filename=scan.jpg", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ServePhoto(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "jpeg" {
		t.Errorf("unexpected body: %q", got)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, "image/jpeg") {
		t.Errorf("expected image/jpeg content type, got %s", ct)
	}
}

func TestServePhotoSanitizesPath(t *testing.T) {
	h, e, dir := newTestHandler(t)
	// A file outside the photo dir that traversal must not reach.
	outside := filepath.Join(dir, "..", "secret.txt")
	os.WriteFile(outside, []byte("secret"), 0o644)
	t.Cleanup(func() { os.Remove(outside) })

	req := httptest.NewRequest(http.MethodGet, "/?filename=..%2Fsecret.txt", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.ServePhoto(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404 for traversal attempt, got %v", err)
	}
}

func TestServePhotoMissingFile(t *testing.T) {
	h, e, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/?filename=absent.jpg", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.ServePhoto(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestServePhotoRequiresFilename(t *testing.T) {
	h, e, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.ServePhoto(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestDownloadLibraryPhotosRejectsEmptyBatch(t *testing.T) {
	h, e, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"photos":[]}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.DownloadLibraryPhotos(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestDownloadLibraryPhotosRejectsIncompleteRef(t *testing.T) {
	h, e, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"photos":[{"id":"a"}]}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.DownloadLibraryPhotos(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestDownloadLibraryPhotosProxies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("bytes"))
	}))
	defer srv.Close()

	h, e, _ := newTestHandler(t)
	body := `{"photos":[{"baseUrl":"` + srv.URL + `/p","id":"p1"}]}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.DownloadLibraryPhotos(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []Photo
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 1 || got[0].Name != "p1.jpg" {
		t.Errorf("unexpected response: %+v", got)
	}
}
