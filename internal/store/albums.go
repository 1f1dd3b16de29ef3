package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmcdole/crate/internal/domain"
)

// AlbumStore holds the albums of the artist whose modal is open.
// An empty scope means no artist is open.
type AlbumStore struct {
	*Store[domain.Album]
	repo domain.AlbumRepository
}

// NewAlbumStore creates a closed album store
func NewAlbumStore(repo domain.AlbumRepository, logger *slog.Logger) *AlbumStore {
	fetch := func(ctx context.Context, artistID string) ([]domain.Album, error) {
		return repo.ListAlbums(ctx, artistID)
	}
	return &AlbumStore{
		Store: New[domain.Album]("albums", "", fetch, logger),
		repo:  repo,
	}
}

// Open scopes the store to artistID and dispatches its first refresh.
// Results of reads for any previous artist are discarded from here on.
func (s *AlbumStore) Open(artistID string) Ticket {
	s.Rescope(artistID)
	return s.Begin()
}

// Close discards the scoped collection and abandons in-flight reads
func (s *AlbumStore) Close() {
	s.Rescope("")
}

// IsOpen reports whether an artist is in scope
func (s *AlbumStore) IsOpen() bool {
	return s.Scope() != ""
}

// Create creates an album for the artist in scope
func (s *AlbumStore) Create(ctx context.Context, title string, cover *domain.ImageUpload) (domain.Album, error) {
	w := s.BeginWrite()
	if w.Scope == "" {
		return domain.Album{}, domain.Validation("create album", "no artist is open")
	}

	album, err := s.repo.CreateAlbum(ctx, domain.NewAlbum{ArtistID: w.Scope, Title: title, Cover: cover})
	if err != nil {
		return domain.Album{}, err
	}
	if album.ArtistID != w.Scope {
		return album, fmt.Errorf("created album %s belongs to artist %s, not %s", album.ID, album.ArtistID, w.Scope)
	}
	if !s.Inserted(w, album) {
		_ = s.Refresh(ctx)
	}
	return album, nil
}

// Delete deletes an album and removes it from the collection on success.
// On failure (including not found) the collection is left unchanged.
func (s *AlbumStore) Delete(ctx context.Context, albumID string) error {
	w := s.BeginWrite()
	if err := s.repo.DeleteAlbum(ctx, albumID); err != nil {
		return err
	}
	s.Removed(w, albumID)
	return nil
}
