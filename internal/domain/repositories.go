package domain

import "context"

// ArtistRepository is the artist half of the remote catalog API
type ArtistRepository interface {
	// ListArtists returns the whole artist collection in server order
	ListArtists(ctx context.Context) ([]Artist, error)

	// CreateArtist creates an artist and returns the canonical server copy
	CreateArtist(ctx context.Context, in NewArtist) (Artist, error)

	// DeleteArtist removes an artist and, server-side, its albums
	DeleteArtist(ctx context.Context, artistID string) error
}

// AlbumRepository is the album half of the remote catalog API
type AlbumRepository interface {
	// ListAlbums returns the albums of one artist in server order
	ListAlbums(ctx context.Context, artistID string) ([]Album, error)

	// CreateAlbum creates an album under an artist
	CreateAlbum(ctx context.Context, in NewAlbum) (Album, error)

	// DeleteAlbum removes an album; a missing album yields ErrNotFound
	DeleteAlbum(ctx context.Context, albumID string) error
}

// CatalogRepository combines everything the gateway implements
type CatalogRepository interface {
	ArtistRepository
	AlbumRepository
}

// CredentialSource yields the bearer token attached to outgoing calls.
// Implementations are written by an external authentication collaborator;
// the gateway only reads.
type CredentialSource interface {
	Token() string
}

// StaticToken is a CredentialSource with a fixed token
type StaticToken string

// Token returns the fixed token
func (t StaticToken) Token() string { return string(t) }

// AuthResult is the outcome of a successful login
type AuthResult struct {
	Token   string // Bearer token for API calls
	Subject string // Account name from the token, empty for opaque tokens
}

// AuthFlow obtains a credential interactively.
// Implementations handle their own prompting.
type AuthFlow interface {
	Run(ctx context.Context, serverURL string) (*AuthResult, error)
}
