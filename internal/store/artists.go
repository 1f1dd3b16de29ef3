package store

import (
	"context"
	"log/slog"

	"github.com/mmcdole/crate/internal/domain"
)

// ArtistStore holds the global artist collection
type ArtistStore struct {
	*Store[domain.Artist]
	repo domain.ArtistRepository
}

// NewArtistStore creates the artist store. Call Refresh to load it.
func NewArtistStore(repo domain.ArtistRepository, logger *slog.Logger) *ArtistStore {
	fetch := func(ctx context.Context, _ string) ([]domain.Artist, error) {
		return repo.ListArtists(ctx)
	}
	return &ArtistStore{
		Store: New[domain.Artist]("artists", "", fetch, logger),
		repo:  repo,
	}
}

// Create creates an artist and inserts it into the collection.
// On failure the collection is untouched and the error is returned.
func (s *ArtistStore) Create(ctx context.Context, in domain.NewArtist) (domain.Artist, error) {
	w := s.BeginWrite()
	artist, err := s.repo.CreateArtist(ctx, in)
	if err != nil {
		return domain.Artist{}, err
	}
	if !s.Inserted(w, artist) {
		// The list is in an error state; a successful refresh shows the new artist
		_ = s.Refresh(ctx)
	}
	return artist, nil
}
