package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mmcdole/crate/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithRetryDelay(time.Millisecond)}, opts...)
	return NewClient(srv.URL, domain.StaticToken("secret"), testLogger(), opts...)
}

func TestListArtistsHeadersAndOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/artists" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		io.WriteString(w, `[{"id":"2","name":"B","imageUrl":"http://x/b.png"},{"id":"1","name":"A","imageUrl":null}]`)
	})

	artists, err := c.ListArtists(context.Background())
	if err != nil {
		t.Fatalf("ListArtists: %v", err)
	}
	if len(artists) != 2 || artists[0].ID != "2" || artists[1].ID != "1" {
		t.Fatalf("order not preserved: %+v", artists)
	}
	if artists[1].ImageURL != "" || !artists[0].HasImage() {
		t.Errorf("image urls mapped wrong: %+v", artists)
	}
}

func TestNoAuthorizationWithoutToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header["Authorization"]; ok {
			t.Errorf("Authorization header sent without a token")
		}
		io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, testLogger())
	if _, err := c.ListArtists(context.Background()); err != nil {
		t.Fatalf("ListArtists: %v", err)
	}
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    error
		message string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"bad token"}`, domain.ErrAuth, "bad token"},
		{"forbidden", http.StatusForbidden, ``, domain.ErrAuth, ""},
		{"not found", http.StatusNotFound, `{"message":"no such album"}`, domain.ErrNotFound, "no such album"},
		{"conflict", http.StatusConflict, `{"message":"name taken"}`, domain.ErrValidation, "name taken"},
		{"bad request text", http.StatusBadRequest, "title too long", domain.ErrValidation, "title too long"},
		{"server", http.StatusInternalServerError, `boom`, domain.ErrServer, "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}, WithRetries(0))

			err := c.DeleteAlbum(context.Background(), "a1")
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			var apiErr *domain.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("err is not *APIError: %T", err)
			}
			if apiErr.Status != tt.status {
				t.Errorf("Status = %d, want %d", apiErr.Status, tt.status)
			}
			if apiErr.Message != tt.message {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.message)
			}
		})
	}
}

func TestMalformedBodyIsServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"not":"a list"`)
	})
	_, err := c.ListArtists(context.Background())
	if !errors.Is(err, domain.ErrServer) {
		t.Fatalf("err = %v, want ErrServer", err)
	}
}

func TestMissingIDIsServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"name":"nameless"}]`)
	})
	_, err := c.ListArtists(context.Background())
	if !errors.Is(err, domain.ErrServer) {
		t.Fatalf("err = %v, want ErrServer", err)
	}
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(url, domain.StaticToken("t"), testLogger(), WithRetries(0))
	_, err := c.ListArtists(context.Background())
	if !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("err = %v, want ErrNetwork", err)
	}
}

func TestTimeoutIsNetworkError(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, WithTimeout(50*time.Millisecond), WithRetries(0))
	defer close(release)

	_, err := c.ListArtists(context.Background())
	if !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("err = %v, want ErrNetwork", err)
	}
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, `[]`)
	}, WithRetries(2))

	albums, err := c.ListAlbums(context.Background(), "a1")
	if err != nil {
		t.Fatalf("ListAlbums: %v", err)
	}
	if len(albums) != 0 {
		t.Errorf("albums = %v, want empty", albums)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestWritesAndAuthAreNotRetried(t *testing.T) {
	tests := []struct {
		name   string
		status int
		call   func(*Client) error
	}{
		{"create on 5xx", http.StatusInternalServerError, func(c *Client) error {
			_, err := c.CreateArtist(context.Background(), domain.NewArtist{Name: "X"})
			return err
		}},
		{"list on 401", http.StatusUnauthorized, func(c *Client) error {
			_, err := c.ListArtists(context.Background())
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}, WithRetries(3))

			if err := tt.call(c); err == nil {
				t.Fatal("expected error")
			}
			if calls.Load() != 1 {
				t.Errorf("calls = %d, want 1", calls.Load())
			}
		})
	}
}

func TestListAlbumsQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/albums" || r.URL.Query().Get("artistId") != "art 1" {
			t.Errorf("unexpected url %s", r.URL)
		}
		io.WriteString(w, `[{"id":"b1","title":"One","coverUrl":null,"artistId":"art 1"}]`)
	})

	albums, err := c.ListAlbums(context.Background(), "art 1")
	if err != nil {
		t.Fatalf("ListAlbums: %v", err)
	}
	if len(albums) != 1 || albums[0].ArtistID != "art 1" || albums[0].HasCover() {
		t.Fatalf("albums = %+v", albums)
	}
}

func TestCreateArtistMultipart(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\nrest")
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data; boundary=") {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm: %v", err)
		}
		if got := r.FormValue("name"); got != "Nina" {
			t.Errorf("name = %q", got)
		}
		file, hdr, err := r.FormFile("image")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if string(data) != string(png) || hdr.Filename != `we"ird.png` {
			t.Errorf("image part = %q (%s)", data, hdr.Filename)
		}
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"id":"n1","name":"Nina","imageUrl":"http://img/n1.png"}`)
	})

	artist, err := c.CreateArtist(context.Background(), domain.NewArtist{
		Name:  "  Nina ",
		Image: &domain.ImageUpload{Filename: `we"ird.png`, ContentType: "image/png", Data: png},
	})
	if err != nil {
		t.Fatalf("CreateArtist: %v", err)
	}
	if artist.ID != "n1" || artist.ImageURL != "http://img/n1.png" {
		t.Errorf("artist = %+v", artist)
	}
}

func TestCreateAlbumWithoutCoverOmitsImagePart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm: %v", err)
		}
		if r.FormValue("artistId") != "a1" || r.FormValue("title") != "Blue" {
			t.Errorf("fields = %v", r.MultipartForm.Value)
		}
		if len(r.MultipartForm.File) != 0 {
			t.Errorf("unexpected file parts: %v", r.MultipartForm.File)
		}
		io.WriteString(w, `{"id":"b9","title":"Blue","coverUrl":null,"artistId":"a1"}`)
	})

	album, err := c.CreateAlbum(context.Background(), domain.NewAlbum{ArtistID: "a1", Title: "Blue"})
	if err != nil {
		t.Fatalf("CreateAlbum: %v", err)
	}
	if album.ID != "b9" || album.CoverURL != "" {
		t.Errorf("album = %+v", album)
	}
}

func TestValidationBeforeDispatch(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})
	ctx := context.Background()

	checks := []struct {
		name string
		err  error
	}{
		{"empty artist name", func() error { _, err := c.CreateArtist(ctx, domain.NewArtist{Name: "  "}); return err }()},
		{"empty album title", func() error {
			_, err := c.CreateAlbum(ctx, domain.NewAlbum{ArtistID: "a", Title: ""})
			return err
		}()},
		{"empty artist id", func() error { _, err := c.ListAlbums(ctx, ""); return err }()},
		{"empty album id", c.DeleteAlbum(ctx, "")},
	}
	for _, check := range checks {
		if !errors.Is(check.err, domain.ErrValidation) {
			t.Errorf("%s: err = %v, want ErrValidation", check.name, check.err)
		}
	}
	if calls.Load() != 0 {
		t.Errorf("server received %d requests", calls.Load())
	}
}

func TestDeleteAlbumPath(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/albums/b1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	})
	if err := c.DeleteAlbum(context.Background(), "b1"); err != nil {
		t.Fatalf("DeleteAlbum: %v", err)
	}
}
