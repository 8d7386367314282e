package gphotos

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/oauth2"
)

const (
	googleAuthURL  = "https://accounts.google.com/o/oauth2/auth"
	googleTokenURL = "https://oauth2.googleapis.com/token"

	libraryScope = "https://www.googleapis.com/auth/photoslibrary.readonly"
	apiBase      = "https://photoslibrary.googleapis.com/v1"
)

// MediaItem is one entry of the user's photo library. BaseURL is short-lived
// and must be fetched through the photo proxy before it expires.
type MediaItem struct {
	ID       string `json:"id"`
	BaseURL  string `json:"baseUrl"`
	MimeType string `json:"mimeType"`
	Filename string `json:"filename"`
}

// MediaPage is one page of library results.
type MediaPage struct {
	Items         []MediaItem `json:"mediaItems"`
	NextPageToken string      `json:"nextPageToken,omitempty"`
}

// Client talks to the Google Photos Library API on behalf of a user who
// granted read-only library access.
type Client struct {
	oauth   *oauth2.Config
	apiBase string
	http    *http.Client
}

func NewClient(clientID, clientSecret, redirectURL string) *Client {
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{libraryScope},
			Endpoint: oauth2.Endpoint{
				AuthURL:  googleAuthURL,
				TokenURL: googleTokenURL,
			},
		},
		apiBase: apiBase,
	}
}

// AuthURL builds the consent-screen URL the browser is sent to. Offline
// access is requested so the refresh token survives the session.
func (c *Client) AuthURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades the callback code for a token.
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	return tok, nil
}

// ListMediaItems fetches one page of the user's library.
func (c *Client) ListMediaItems(ctx context.Context, token *oauth2.Token, pageSize int, pageToken string) (*MediaPage, error) {
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 50
	}

	q := url.Values{}
	q.Set("pageSize", strconv.Itoa(pageSize))
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/mediaItems?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("list media items: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("photos library returned %d", resp.StatusCode)
	}

	var page MediaPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode media items: %w", err)
	}
	if page.Items == nil {
		page.Items = []MediaItem{}
	}
	return &page, nil
}

// httpClient returns an http.Client that attaches and refreshes the token.
func (c *Client) httpClient(ctx context.Context, token *oauth2.Token) *http.Client {
	if c.http != nil {
		return c.http
	}
	return c.oauth.Client(ctx, token)
}
