package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmcdole/crate/internal/adapter/source/catalog"
	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/fakeapi"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newService(t *testing.T) (*CatalogService, *fakeapi.Server) {
	t.Helper()
	api := fakeapi.New("test-secret", quiet)
	api.Seed()
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	token, err := api.IssueToken("tester", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	client := catalog.NewClient(srv.URL+"/api", domain.StaticToken(token), quiet,
		catalog.WithRetryDelay(time.Millisecond))
	return NewCatalogService(client, quiet), api
}

func TestFindArtists(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"Queen", "Björk", "Nina Simone", "Boards of Canada"}},
		{"queen", []string{"Queen"}},
		{"nina", []string{"Nina Simone"}},
		{"bc", []string{"Boards of Canada"}},
		{"zzz", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := svc.FindArtists(ctx, tt.query)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d artists %v, want %v", len(got), got, tt.want)
			}
			for i, a := range got {
				if a.Name != tt.want[i] {
					t.Errorf("[%d] = %q, want %q", i, a.Name, tt.want[i])
				}
			}
		})
	}
}

func TestRankArtistsPrefersPrefix(t *testing.T) {
	artists := []domain.Artist{
		{ID: "1", Name: "The Queen Is Dead"},
		{ID: "2", Name: "Queen"},
		{ID: "3", Name: "Queens of the Stone Age"},
	}
	got := rankArtists(artists, "queen")
	want := []string{"2", "3", "1"}
	for i, a := range got {
		if a.ID != want[i] {
			t.Fatalf("order = %v, want ids %v", got, want)
		}
	}
}

func TestSnapshot(t *testing.T) {
	svc, _ := newService(t)
	svc.SetConcurrency(2)

	summaries, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	counts := map[string]int{}
	for _, s := range summaries {
		counts[s.Artist.Name] = len(s.Albums)
		for _, al := range s.Albums {
			if al.ArtistID != s.Artist.ID {
				t.Errorf("album %s attributed to %s", al.ID, s.Artist.Name)
			}
		}
	}
	want := map[string]int{"Queen": 2, "Björk": 2, "Nina Simone": 1, "Boards of Canada": 0}
	for name, n := range want {
		if counts[name] != n {
			t.Errorf("%s has %d albums, want %d", name, counts[name], n)
		}
	}
	if summaries[0].Artist.Name != "Queen" {
		t.Errorf("snapshot order changed: first is %s", summaries[0].Artist.Name)
	}
}

func TestSnapshotFailsOnAlbumError(t *testing.T) {
	svc, api := newService(t)
	artists, err := svc.ListArtists(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	api.FailNext(http.MethodGet, "/albums", http.StatusNotFound)

	_, err = svc.Snapshot(context.Background())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound (artists: %d)", err, len(artists))
	}
}

func TestCreateAndDeleteRoundTrip(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	a, err := svc.CreateArtist(ctx, domain.NewArtist{Name: "Aphex Twin"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateArtist(ctx, domain.NewArtist{Name: "aphex twin"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("duplicate name err = %v, want ErrValidation", err)
	}

	al, err := svc.CreateAlbum(ctx, domain.NewAlbum{ArtistID: a.ID, Title: "Drukqs"})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteAlbum(ctx, al.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteAlbum(ctx, al.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
	if err := svc.DeleteArtist(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ListAlbums(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
}

func TestBadTokenIsAuthError(t *testing.T) {
	api := fakeapi.New("test-secret", quiet)
	srv := httptest.NewServer(api.Handler())
	defer srv.Close()

	other := fakeapi.New("another-secret", quiet)
	token, err := other.IssueToken("mallory", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	client := catalog.NewClient(srv.URL+"/api", domain.StaticToken(token), quiet)
	_, err = NewCatalogService(client, quiet).ListArtists(context.Background())
	if !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("err = %v, want ErrAuth", err)
	}
}
