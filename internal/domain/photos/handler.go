package photos

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	downloader *Downloader
	photoDir   string
}

func NewHandler(downloader *Downloader, photoDir string) *Handler {
	return &Handler{downloader: downloader, photoDir: photoDir}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/photos/encode", h.EncodePhotos)
	api.POST("/photos/library/download", h.DownloadLibraryPhotos)
	api.GET("/photos/file", h.ServePhoto)
}

// EncodePhotos accepts a multipart upload and returns the files as uniform
// data-URI photo records, preserving upload order.
func (h *Handler) EncodePhotos(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart form required")
	}
	files := form.File["photos"]
	if len(files) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no photos in request")
	}

	records, err := FromMultipart(files)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, records)
}

type downloadRequest struct {
	Photos []RemoteRef `json:"photos"`
}

// DownloadLibraryPhotos proxies downloads from the remote photo library.
// Returns the photos that could be fetched; individual failures are dropped.
func (h *Handler) DownloadLibraryPhotos(c echo.Context) error {
	var req downloadRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.Photos) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid input")
	}
	for _, ref := range req.Photos {
		if ref.BaseURL == "" || ref.ID == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "each photo needs baseUrl and id")
		}
	}

	downloaded := h.downloader.Download(c.Request().Context(), req.Photos)
	return c.JSON(http.StatusOK, downloaded)
}

// ServePhoto streams a file from the configured photo directory. The filename
// is reduced to its base name so path traversal cannot escape the directory.
func (h *Handler) ServePhoto(c echo.Context) error {
	filename := c.QueryParam("filename")
	if filename == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "filename is required")
	}

	safeName := filepath.Base(filename)
	if safeName == "." || safeName == string(filepath.Separator) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid filename")
	}

	path := filepath.Join(h.photoDir, safeName)
	if _, err := os.Stat(path); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "file not found")
	}

	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(safeName)))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	c.Response().Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", safeName))
	c.Response().Header().Set(echo.HeaderContentType, mimeType)
	return c.File(path)
}
