package gphotos

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

func TestAuthURLCarriesScopeAndState(t *testing.T) {
	c := NewClient("client-id", "secret", "https://app.example/callback")

	u := c.AuthURL("state-123")
	if !strings.HasPrefix(u, googleAuthURL) {
		t.Fatalf("auth url = %q", u)
	}
	for _, want := range []string{"state=state-123", "client_id=client-id", "access_type=offline", "photoslibrary.readonly"} {
		if !strings.Contains(u, want) {
			t.Fatalf("auth url missing %q: %s", want, u)
		}
	}
}

func TestListMediaItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mediaItems" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("pageSize"); got != "25" {
			t.Errorf("pageSize = %q, want 25", got)
		}
		if got := r.URL.Query().Get("pageToken"); got != "tok-1" {
			t.Errorf("pageToken = %q, want tok-1", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"mediaItems": [
				{"id":"m1","baseUrl":"https://lh3.example/m1","mimeType":"image/jpeg","filename":"a.jpg"},
				{"id":"m2","baseUrl":"https://lh3.example/m2","mimeType":"image/png","filename":"b.png"}
			],
			"nextPageToken": "tok-2"
		}`))
	}))
	defer srv.Close()

	c := NewClient("client-id", "secret", "https://app.example/callback")
	c.apiBase = srv.URL
	c.http = srv.Client()

	page, err := c.ListMediaItems(context.Background(), &oauth2.Token{AccessToken: "at"}, 25, "tok-1")
	if err != nil {
		t.Fatalf("ListMediaItems: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(page.Items))
	}
	if page.Items[0].ID != "m1" || page.Items[0].BaseURL != "https://lh3.example/m1" {
		t.Fatalf("unexpected first item: %+v", page.Items[0])
	}
	if page.NextPageToken != "tok-2" {
		t.Fatalf("next page token = %q", page.NextPageToken)
	}
}

func TestListMediaItemsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("client-id", "secret", "https://app.example/callback")
	c.apiBase = srv.URL
	c.http = srv.Client()

	if _, err := c.ListMediaItems(context.Background(), &oauth2.Token{AccessToken: "at"}, 10, ""); err == nil {
		t.Fatal("want error on non-200 response")
	}
}

func TestListMediaItemsEmptyLibrary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient("client-id", "secret", "https://app.example/callback")
	c.apiBase = srv.URL
	c.http = srv.Client()

	page, err := c.ListMediaItems(context.Background(), &oauth2.Token{AccessToken: "at"}, 10, "")
	if err != nil {
		t.Fatalf("ListMediaItems: %v", err)
	}
	if page.Items == nil || len(page.Items) != 0 {
		t.Fatalf("empty library must yield empty non-nil slice: %#v", page.Items)
	}
}
