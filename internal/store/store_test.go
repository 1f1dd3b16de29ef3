package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"

	"github.com/mmcdole/crate/internal/domain"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// memRepo is an in-memory catalog with injectable failures
type memRepo struct {
	mu      sync.Mutex
	nextID  int
	artists []domain.Artist
	albums  []domain.Album
	listErr error
	// albumGate, when set, blocks ListAlbums for an artist until released
	albumGate map[string]chan struct{}
}

func (r *memRepo) id(prefix string) string {
	r.nextID++
	return fmt.Sprintf("%s%d", prefix, r.nextID)
}

func (r *memRepo) ListArtists(ctx context.Context) ([]domain.Artist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	return slices.Clone(r.artists), nil
}

func (r *memRepo) CreateArtist(ctx context.Context, in domain.NewArtist) (domain.Artist, error) {
	if err := in.Validate(); err != nil {
		return domain.Artist{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a := domain.Artist{ID: r.id("ar"), Name: in.Name}
	r.artists = append(r.artists, a)
	return a, nil
}

func (r *memRepo) DeleteArtist(ctx context.Context, id string) error {
	return errors.New("not implemented")
}

func (r *memRepo) ListAlbums(ctx context.Context, artistID string) ([]domain.Album, error) {
	r.mu.Lock()
	gate := r.albumGate[artistID]
	r.mu.Unlock()
	if gate != nil {
		<-gate
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.Album
	for _, a := range r.albums {
		if a.ArtistID == artistID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memRepo) CreateAlbum(ctx context.Context, in domain.NewAlbum) (domain.Album, error) {
	if err := in.Validate(); err != nil {
		return domain.Album{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a := domain.Album{ID: r.id("al"), Title: in.Title, ArtistID: in.ArtistID}
	r.albums = append(r.albums, a)
	return a, nil
}

func (r *memRepo) DeleteAlbum(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, a := range r.albums {
		if a.ID == id {
			r.albums = slices.Delete(r.albums, i, i+1)
			return nil
		}
	}
	return &domain.APIError{Kind: domain.ErrNotFound, Op: "delete album", Status: 404}
}

func ids[T domain.Entity](items []T) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.GetID()
	}
	return out
}

func TestCreateThenRefreshHasExactlyOne(t *testing.T) {
	ctx := context.Background()
	for _, name := range []string{"Queen", "Björk", "a"} {
		t.Run(name, func(t *testing.T) {
			repo := &memRepo{}
			s := NewArtistStore(repo, quiet)
			if err := s.Refresh(ctx); err != nil {
				t.Fatal(err)
			}

			created, err := s.Create(ctx, domain.NewArtist{Name: name})
			if err != nil {
				t.Fatal(err)
			}
			if err := s.Refresh(ctx); err != nil {
				t.Fatal(err)
			}

			state := s.State()
			count := 0
			for _, a := range state.Items {
				if a.Name == name {
					count++
					if a.ID != created.ID {
						t.Errorf("ID = %q, want %q", a.ID, created.ID)
					}
				}
			}
			if count != 1 {
				t.Errorf("found %d artists named %q, want 1", count, name)
			}
		})
	}
}

func TestEmptyThenCreateBecomesPopulated(t *testing.T) {
	ctx := context.Background()
	s := NewArtistStore(&memRepo{}, quiet)
	if err := s.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if got := s.State().Kind; got != domain.ViewEmpty {
		t.Fatalf("Kind = %v, want empty", got)
	}

	if _, err := s.Create(ctx, domain.NewArtist{Name: "Queen"}); err != nil {
		t.Fatal(err)
	}
	state := s.State()
	if state.Kind != domain.ViewPopulated || len(state.Items) != 1 || state.Items[0].Name != "Queen" {
		t.Fatalf("state = %+v", state)
	}
}

func TestLastDispatchedRefreshWins(t *testing.T) {
	s := New[domain.Artist]("artists", "", nil, quiet)
	first := s.Begin()
	second := s.Begin()

	if !s.Settle(second, []domain.Artist{{ID: "new"}}, nil) {
		t.Fatal("latest ticket was rejected")
	}
	if s.Settle(first, []domain.Artist{{ID: "old"}}, nil) {
		t.Fatal("superseded ticket was applied")
	}

	if got := ids(s.State().Items); !slices.Equal(got, []string{"new"}) {
		t.Fatalf("items = %v, want [new]", got)
	}
}

func TestSupersededRefreshKeepsLoading(t *testing.T) {
	s := New[domain.Artist]("artists", "", nil, quiet)
	first := s.Begin()
	_ = s.Begin()

	s.Settle(first, []domain.Artist{{ID: "old"}}, nil)
	if got := s.State().Kind; got != domain.ViewLoading {
		t.Fatalf("Kind = %v, want loading while the latest refresh is in flight", got)
	}
}

func TestRefreshFailureThenRetry(t *testing.T) {
	ctx := context.Background()
	repo := &memRepo{
		albums:  []domain.Album{{ID: "b1", Title: "One", ArtistID: "A1"}},
		listErr: &domain.APIError{Kind: domain.ErrNetwork, Op: "list albums", Err: errors.New("dial tcp: refused")},
	}
	s := NewAlbumStore(repo, quiet)

	if _, err := s.Fetch(ctx, s.Open("A1")); !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("err = %v, want ErrNetwork", err)
	}
	state := s.State()
	if state.Kind != domain.ViewError || state.Message != domain.Describe(domain.ErrNetwork) {
		t.Fatalf("state = %+v", state)
	}

	repo.listErr = nil
	if err := s.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if got := ids(s.State().Items); !slices.Equal(got, []string{"b1"}) {
		t.Fatalf("items = %v", got)
	}
}

func TestDeleteMissingAlbumLeavesCollection(t *testing.T) {
	ctx := context.Background()
	repo := &memRepo{albums: []domain.Album{{ID: "b1", ArtistID: "A1"}, {ID: "b2", ArtistID: "A1"}}}
	s := NewAlbumStore(repo, quiet)
	if _, err := s.Fetch(ctx, s.Open("A1")); err != nil {
		t.Fatal(err)
	}
	before := s.State()

	err := s.Delete(ctx, "nope")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	after := s.State()
	if after.Kind != before.Kind || !slices.Equal(ids(after.Items), ids(before.Items)) {
		t.Fatalf("state changed: %+v -> %+v", before, after)
	}
}

func TestDeleteRemovesAlbum(t *testing.T) {
	ctx := context.Background()
	repo := &memRepo{albums: []domain.Album{{ID: "b1", ArtistID: "A1"}}}
	s := NewAlbumStore(repo, quiet)
	if _, err := s.Fetch(ctx, s.Open("A1")); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "b1"); err != nil {
		t.Fatal(err)
	}
	if got := s.State().Kind; got != domain.ViewEmpty {
		t.Fatalf("Kind = %v, want empty", got)
	}
}

func TestReopenDifferentArtistNeverShowsPreviousAlbums(t *testing.T) {
	ctx := context.Background()
	gate := make(chan struct{})
	repo := &memRepo{
		albums: []domain.Album{
			{ID: "a-1", ArtistID: "A"},
			{ID: "b-1", ArtistID: "B"},
		},
		albumGate: map[string]chan struct{}{"A": gate},
	}
	s := NewAlbumStore(repo, quiet)

	var seen [][]string
	var mu sync.Mutex
	s.Subscribe(func(v domain.ViewState[domain.Album]) {
		mu.Lock()
		seen = append(seen, ids(v.Items))
		mu.Unlock()
	})

	// Artist A's read hangs until after the modal moved on to B
	ticketA := s.Open("A")
	doneA := make(chan struct{})
	var appliedA bool
	go func() {
		appliedA, _ = s.Fetch(ctx, ticketA)
		close(doneA)
	}()

	s.Close()
	if _, err := s.Fetch(ctx, s.Open("B")); err != nil {
		t.Fatal(err)
	}
	close(gate)
	<-doneA
	if appliedA {
		t.Error("Fetch() reported a superseded read as applied")
	}

	if got := ids(s.State().Items); !slices.Equal(got, []string{"b-1"}) {
		t.Fatalf("items = %v, want [b-1]", got)
	}
	mu.Lock()
	defer mu.Unlock()
	for _, items := range seen {
		if slices.Contains(items, "a-1") {
			t.Fatalf("artist A's album was published: %v", seen)
		}
	}
}

func TestWriteAfterCloseIsDropped(t *testing.T) {
	s := New[domain.Album]("albums", "A", nil, quiet)
	s.Settle(s.Begin(), nil, nil)
	w := s.BeginWrite()

	s.Rescope("B")
	s.Settle(s.Begin(), []domain.Album{{ID: "b-1", ArtistID: "B"}}, nil)
	s.Inserted(w, domain.Album{ID: "a-2", ArtistID: "A"})

	if got := ids(s.State().Items); !slices.Equal(got, []string{"b-1"}) {
		t.Fatalf("items = %v", got)
	}
}

func TestCreateDuringRefreshVisibleOnce(t *testing.T) {
	tests := []struct {
		name  string
		stale []domain.Artist // What the in-flight read returns
	}{
		{"read missed the create", []domain.Artist{{ID: "1"}}},
		{"read saw the create", []domain.Artist{{ID: "1"}, {ID: "2"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New[domain.Artist]("artists", "", nil, quiet)
			s.Settle(s.Begin(), []domain.Artist{{ID: "1"}}, nil)

			ticket := s.Begin()
			w := s.BeginWrite()
			s.Inserted(w, domain.Artist{ID: "2"})
			if got := s.State().Kind; got != domain.ViewLoading {
				t.Fatalf("Kind = %v, want loading", got)
			}
			s.Settle(ticket, tt.stale, nil)

			if got := ids(s.State().Items); !slices.Equal(got, []string{"1", "2"}) {
				t.Fatalf("items = %v, want [1 2]", got)
			}
		})
	}
}

func TestDeleteDuringRefreshNotResurrected(t *testing.T) {
	s := New[domain.Album]("albums", "A", nil, quiet)
	s.Settle(s.Begin(), []domain.Album{{ID: "x"}, {ID: "y"}}, nil)

	ticket := s.Begin()
	s.Removed(s.BeginWrite(), "x")
	s.Settle(ticket, []domain.Album{{ID: "x"}, {ID: "y"}}, nil)

	if got := ids(s.State().Items); !slices.Equal(got, []string{"y"}) {
		t.Fatalf("items = %v, want [y]", got)
	}
}

func TestJournalSurvivesSupersededRefresh(t *testing.T) {
	s := New[domain.Artist]("artists", "", nil, quiet)
	s.Settle(s.Begin(), nil, nil)

	first := s.Begin()
	s.Inserted(s.BeginWrite(), domain.Artist{ID: "n"})
	second := s.Begin()

	s.Settle(first, nil, nil)
	s.Settle(second, nil, nil)

	if got := ids(s.State().Items); !slices.Equal(got, []string{"n"}) {
		t.Fatalf("items = %v, want [n]", got)
	}
}

func TestCreateInErrorStateRefreshes(t *testing.T) {
	ctx := context.Background()
	repo := &memRepo{listErr: &domain.APIError{Kind: domain.ErrServer, Status: 500}}
	s := NewArtistStore(repo, quiet)
	_ = s.Refresh(ctx)
	if s.State().Kind != domain.ViewError {
		t.Fatalf("Kind = %v, want error", s.State().Kind)
	}

	repo.listErr = nil
	if _, err := s.Create(ctx, domain.NewArtist{Name: "Queen"}); err != nil {
		t.Fatal(err)
	}
	state := s.State()
	if state.Kind != domain.ViewPopulated || len(state.Items) != 1 {
		t.Fatalf("state = %+v", state)
	}
}

func TestCreateFailureLeavesState(t *testing.T) {
	ctx := context.Background()
	s := NewArtistStore(&memRepo{artists: []domain.Artist{{ID: "1", Name: "A"}}}, quiet)
	if err := s.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(ctx, domain.NewArtist{Name: " "}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if got := ids(s.State().Items); !slices.Equal(got, []string{"1"}) {
		t.Fatalf("items = %v", got)
	}
}

func TestAlbumCreateRequiresOpenScope(t *testing.T) {
	s := NewAlbumStore(&memRepo{}, quiet)
	if _, err := s.Create(context.Background(), "Title", nil); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestSubscribeSeesTransitions(t *testing.T) {
	ctx := context.Background()
	s := NewArtistStore(&memRepo{artists: []domain.Artist{{ID: "1"}}}, quiet)
	var kinds []domain.ViewKind
	s.Subscribe(func(v domain.ViewState[domain.Artist]) { kinds = append(kinds, v.Kind) })

	if err := s.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	want := []domain.ViewKind{domain.ViewLoading, domain.ViewPopulated}
	if !slices.Equal(kinds, want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
}
