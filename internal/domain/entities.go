package domain

import "strings"

// Artist is a catalog artist as returned by the API
type Artist struct {
	ID       string // Server-assigned, immutable
	Name     string // Display name (uniqueness enforced server-side)
	ImageURL string // Resolved image URL, empty when the artist has no photo
}

// GetID returns the artist identifier
func (a Artist) GetID() string { return a.ID }

// GetTitle returns the display name
func (a Artist) GetTitle() string { return a.Name }

// HasImage reports whether the server resolved a photo for the artist
func (a Artist) HasImage() bool { return a.ImageURL != "" }

// Album is an album owned by exactly one artist
type Album struct {
	ID       string // Server-assigned, immutable
	Title    string // Display title
	CoverURL string // Resolved cover URL, empty when absent
	ArtistID string // Owning artist, never changes after creation
}

// GetID returns the album identifier
func (a Album) GetID() string { return a.ID }

// GetTitle returns the album title
func (a Album) GetTitle() string { return a.Title }

// HasCover reports whether the server resolved a cover for the album
func (a Album) HasCover() bool { return a.CoverURL != "" }

// ImageUpload is the binary payload sent with a create call
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Size returns the payload size in bytes
func (u *ImageUpload) Size() int {
	if u == nil {
		return 0
	}
	return len(u.Data)
}

// IsImage reports whether the payload's content type is an image type
func (u *ImageUpload) IsImage() bool {
	return u != nil && strings.HasPrefix(u.ContentType, "image/")
}

// NewArtist is the input for creating an artist
type NewArtist struct {
	Name  string
	Image *ImageUpload // Optional
}

// Validate rejects input that must never reach the API
func (n NewArtist) Validate() error {
	if strings.TrimSpace(n.Name) == "" {
		return Validation("create artist", "name is required")
	}
	return nil
}

// NewAlbum is the input for creating an album under an artist
type NewAlbum struct {
	ArtistID string
	Title    string
	Cover    *ImageUpload // Optional
}

// Validate rejects input that must never reach the API
func (n NewAlbum) Validate() error {
	if n.ArtistID == "" {
		return Validation("create album", "artist is required")
	}
	if strings.TrimSpace(n.Title) == "" {
		return Validation("create album", "title is required")
	}
	return nil
}
