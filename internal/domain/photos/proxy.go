package photos

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// RemoteRef identifies a photo in the remote photo library. BaseURL is the
// short-lived media URL handed out by the library API; the download suffix
// is appended server-side to request original-resolution bytes.
type RemoteRef struct {
	BaseURL string `json:"baseUrl"`
	ID      string `json:"id"`
}

// originalBytesSuffix requests the full-resolution download variant from the
// photo library CDN.
const originalBytesSuffix = "=d"

// Photo library CDNs refuse requests without a browser-looking agent.
const downloadUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

const maxConcurrentDownloads = 4

// Downloader fetches remote library photos server-side, keeping access
// tokens and hot-link workarounds out of the browser.
type Downloader struct {
	client *http.Client
	logger zerolog.Logger
}

func NewDownloader(logger zerolog.Logger) *Downloader {
	return &Downloader{
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// Download fetches each referenced photo and returns the successfully
// downloaded ones as data-URI Photo records, in input order. Individual
// failures are logged and dropped: a batch is useful even when one photo in
// it is gone, so partial success is not an error.
func (d *Downloader) Download(ctx context.Context, refs []RemoteRef) []Photo {
	results := make([]*Photo, len(refs))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentDownloads)

	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			photo, err := d.fetchOne(ctx, ref)
			if err != nil {
				d.logger.Warn().Err(err).Str("photo_id", ref.ID).Msg("remote photo download failed, dropping from batch")
				return nil
			}
			mu.Lock()
			results[i] = &photo
			mu.Unlock()
			return nil
		})
	}
	// Workers never return errors, so Wait only orders completion.
	_ = g.Wait()

	downloaded := make([]Photo, 0, len(refs))
	for _, p := range results {
		if p != nil {
			downloaded = append(downloaded, *p)
		}
	}
	return downloaded
}

func (d *Downloader) fetchOne(ctx context.Context, ref RemoteRef) (Photo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.BaseURL+originalBytesSuffix, nil)
	if err != nil {
		return Photo{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", downloadUserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return Photo{}, fmt.Errorf("fetch %s: %w", ref.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Photo{}, fmt.Errorf("fetch %s: status %d", ref.ID, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Photo{}, fmt.Errorf("read %s: %w", ref.ID, err)
	}

	return Photo{
		Name: ref.ID + ".jpg",
		Type: "image/jpeg",
		Data: EncodeDataURI("image/jpeg", data),
	}, nil
}
