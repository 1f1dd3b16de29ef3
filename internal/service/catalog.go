package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mmcdole/crate/internal/domain"
	"golang.org/x/sync/errgroup"
)

// defaultConcurrency bounds album fetches during a snapshot
const defaultConcurrency = 4

// ArtistSummary pairs an artist with its albums
type ArtistSummary struct {
	Artist domain.Artist
	Albums []domain.Album
}

// CatalogService exposes catalog operations for headless callers (the CLI).
// The TUI goes through the stores instead.
type CatalogService struct {
	repo        domain.CatalogRepository
	logger      *slog.Logger
	concurrency int
}

// NewCatalogService creates a catalog service
func NewCatalogService(repo domain.CatalogRepository, logger *slog.Logger) *CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogService{repo: repo, logger: logger, concurrency: defaultConcurrency}
}

// SetConcurrency changes how many album lists a snapshot fetches at once
func (s *CatalogService) SetConcurrency(n int) {
	if n > 0 {
		s.concurrency = n
	}
}

// ListArtists returns every artist in server order
func (s *CatalogService) ListArtists(ctx context.Context) ([]domain.Artist, error) {
	return s.repo.ListArtists(ctx)
}

// FindArtists returns artists whose names fuzzily match query, best first.
// An empty query returns every artist in server order.
func (s *CatalogService) FindArtists(ctx context.Context, query string) ([]domain.Artist, error) {
	artists, err := s.repo.ListArtists(ctx)
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return artists, nil
	}
	return rankArtists(artists, query), nil
}

// rankArtists keeps fuzzy matches of query and orders them by match score
func rankArtists(artists []domain.Artist, query string) []domain.Artist {
	query = strings.ToLower(query)

	names := make([]string, len(artists))
	for i, a := range artists {
		names[i] = a.Name
	}

	type rankedArtist struct {
		artist domain.Artist
		score  int
	}

	matches := fuzzy.RankFindFold(query, names)
	ranked := make([]rankedArtist, 0, len(matches))
	for _, m := range matches {
		a := artists[m.OriginalIndex]
		ranked = append(ranked, rankedArtist{artist: a, score: matchScore(strings.ToLower(a.Name), query)})
	}

	// Stable so equal scores keep server order
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score < ranked[j].score
	})

	results := make([]domain.Artist, len(ranked))
	for i, r := range ranked {
		results[i] = r.artist
	}
	return results
}

// matchScore ranks a name against a query. Lower is better.
func matchScore(name, query string) int {
	if name == query {
		return 0
	}
	if strings.HasPrefix(name, query) {
		return 10
	}
	if strings.Contains(name, query) {
		return 50
	}
	return 100 + fuzzy.LevenshteinDistance(query, name)
}

// CreateArtist creates an artist
func (s *CatalogService) CreateArtist(ctx context.Context, in domain.NewArtist) (domain.Artist, error) {
	return s.repo.CreateArtist(ctx, in)
}

// DeleteArtist deletes an artist
func (s *CatalogService) DeleteArtist(ctx context.Context, artistID string) error {
	return s.repo.DeleteArtist(ctx, artistID)
}

// ListAlbums returns the albums of one artist
func (s *CatalogService) ListAlbums(ctx context.Context, artistID string) ([]domain.Album, error) {
	return s.repo.ListAlbums(ctx, artistID)
}

// CreateAlbum creates an album
func (s *CatalogService) CreateAlbum(ctx context.Context, in domain.NewAlbum) (domain.Album, error) {
	return s.repo.CreateAlbum(ctx, in)
}

// DeleteAlbum deletes an album
func (s *CatalogService) DeleteAlbum(ctx context.Context, albumID string) error {
	return s.repo.DeleteAlbum(ctx, albumID)
}

// Snapshot fetches every artist and their albums. Album lists are fetched
// concurrently; the first failure cancels the rest. Result order follows
// the artist list.
func (s *CatalogService) Snapshot(ctx context.Context) ([]ArtistSummary, error) {
	artists, err := s.repo.ListArtists(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]ArtistSummary, len(artists))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, artist := range artists {
		summaries[i].Artist = artist
		g.Go(func() error {
			albums, err := s.repo.ListAlbums(gctx, artist.ID)
			if err != nil {
				return fmt.Errorf("albums of %s: %w", artist.Name, err)
			}
			summaries[i].Albums = albums
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Error("catalog snapshot failed", "error", err)
		return nil, err
	}

	s.logger.Debug("catalog snapshot complete", "artists", len(artists))
	return summaries, nil
}
