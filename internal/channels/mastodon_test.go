package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/tootrelay/tootrelay/internal/config/channel"
	"github.com/tootrelay/tootrelay/internal/relay"
)

const testMastodonToken = "mastodon-secret"

// fakeMastodon records statuses and media uploads.
type fakeMastodon struct {
	mu          sync.Mutex
	statuses    []url.Values
	uploadTypes []string
	auth        []string
	rejectToken bool
}

func (f *fakeMastodon) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeMastodon) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/accounts/verify_credentials", func(w http.ResponseWriter, r *http.Request) {
		if f.rejectToken {
			w.WriteHeader(http.StatusUnauthorized)
			f.writeJSON(w, map[string]any{"error": "The access token is invalid"})
			return
		}
		f.writeJSON(w, map[string]any{"id": "1", "username": "relay", "acct": "relay"})
	})
	mux.HandleFunc("/api/v1/statuses", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.statuses = append(f.statuses, r.PostForm)
		id := fmt.Sprintf("1090%d", len(f.statuses))
		f.mu.Unlock()
		f.writeJSON(w, map[string]any{"id": id, "uri": "https://example.social/users/relay/statuses/" + id})
	})
	media := func(w http.ResponseWriter, r *http.Request) {
		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mr := multipart.NewReader(r.Body, params["boundary"])
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if part.FormName() == "file" {
				f.mu.Lock()
				f.uploadTypes = append(f.uploadTypes, part.Header.Get("Content-Type"))
				f.auth = append(f.auth, r.Header.Get("Authorization"))
				f.mu.Unlock()
			}
		}
		f.writeJSON(w, map[string]any{"id": "m-1", "type": "image"})
	}
	mux.HandleFunc("/api/v1/media", media)
	mux.HandleFunc("/api/v2/media", media)
	return mux
}

func newTestMastodon(t *testing.T, f *fakeMastodon) *MastodonChannel {
	t.Helper()
	ts := httptest.NewServer(f.handler())
	t.Cleanup(ts.Close)
	cfg := channel.DefaultMastodonConfig()
	cfg.Instance = ts.URL + "/"
	cfg.Token = testMastodonToken
	return NewMastodonChannel(&cfg, discardLogger())
}

func TestMastodon_CreatePostThread(t *testing.T) {
	f := &fakeMastodon{}
	m := newTestMastodon(t, f)
	ctx := context.Background()

	first, err := m.CreatePost(ctx, relay.Post{Text: "part one", MediaID: "m-1", Visibility: channel.VisibilityUnlisted})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if _, err := m.CreatePost(ctx, relay.Post{Text: "part two", Visibility: channel.VisibilityUnlisted, ReplyTo: first}); err != nil {
		t.Fatalf("CreatePost reply: %v", err)
	}

	if len(f.statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(f.statuses))
	}
	s0, s1 := f.statuses[0], f.statuses[1]
	if s0.Get("status") != "part one" || s0.Get("visibility") != "unlisted" {
		t.Errorf("unexpected first status: %v", s0)
	}
	if s0.Get("media_ids[]") != "m-1" {
		t.Errorf("first status media: %q", s0.Get("media_ids[]"))
	}
	if s0.Get("in_reply_to_id") != "" {
		t.Errorf("first status should not reply, got %q", s0.Get("in_reply_to_id"))
	}
	if s1.Get("in_reply_to_id") != first {
		t.Errorf("reply points to %q, want %q", s1.Get("in_reply_to_id"), first)
	}
	if len(s1["media_ids[]"]) != 0 {
		t.Errorf("reply carries media: %v", s1["media_ids[]"])
	}
}

func TestMastodon_TypedUpload(t *testing.T) {
	f := &fakeMastodon{}
	m := newTestMastodon(t, f)

	id, err := m.UploadMedia(context.Background(), relay.Upload{Data: []byte("mp4"), MimeType: "video/mp4"})
	if err != nil {
		t.Fatalf("UploadMedia: %v", err)
	}
	if id != "m-1" {
		t.Errorf("media id = %q", id)
	}
	if len(f.uploadTypes) != 1 || f.uploadTypes[0] != "video/mp4" {
		t.Errorf("part content types = %v", f.uploadTypes)
	}
	if f.auth[0] != "Bearer "+testMastodonToken {
		t.Errorf("Authorization = %q", f.auth[0])
	}
}

func TestMastodon_UntypedUpload(t *testing.T) {
	f := &fakeMastodon{}
	m := newTestMastodon(t, f)

	id, err := m.UploadMedia(context.Background(), relay.Upload{Data: []byte("?")})
	if err != nil {
		t.Fatalf("UploadMedia: %v", err)
	}
	if id != "m-1" {
		t.Errorf("media id = %q", id)
	}
	if len(f.uploadTypes) != 1 {
		t.Fatalf("expected one upload, got %d", len(f.uploadTypes))
	}
	if f.uploadTypes[0] == "video/mp4" || f.uploadTypes[0] == "image/jpeg" {
		t.Errorf("untyped upload declared %q", f.uploadTypes[0])
	}
}

func TestMastodon_TypedUploadError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"File is too large"}`, http.StatusUnprocessableEntity)
	}))
	defer ts.Close()
	cfg := channel.DefaultMastodonConfig()
	cfg.Instance = ts.URL
	cfg.Token = testMastodonToken
	m := NewMastodonChannel(&cfg, discardLogger())

	_, err := m.UploadMedia(context.Background(), relay.Upload{Data: []byte("x"), MimeType: "image/png"})
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Fatalf("expected API error with body, got %v", err)
	}
}

func TestMastodon_WhoAmI(t *testing.T) {
	f := &fakeMastodon{}
	m := newTestMastodon(t, f)
	who, err := m.WhoAmI(context.Background())
	if err != nil || who != "@relay" {
		t.Fatalf("WhoAmI() = %q, %v", who, err)
	}

	f.rejectToken = true
	if _, err := m.WhoAmI(context.Background()); err == nil {
		t.Error("expected error for a rejected token")
	}
}
