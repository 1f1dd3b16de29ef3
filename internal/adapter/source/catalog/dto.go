package catalog

// ArtistDTO is the wire shape of an artist: {id, name, imageUrl}
type ArtistDTO struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	ImageURL *string `json:"imageUrl"` // null when the artist has no photo
}

// AlbumDTO is the wire shape of an album: {id, title, coverUrl, artistId}
type AlbumDTO struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	CoverURL *string `json:"coverUrl"` // null when the album has no cover
	ArtistID string  `json:"artistId"`
}

// ErrorDTO covers the error bodies the API is known to return
// (Spring's default {"error": "...", "message": "..."}).
type ErrorDTO struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
