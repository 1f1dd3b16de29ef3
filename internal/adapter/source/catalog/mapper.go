package catalog

import (
	"fmt"

	"github.com/mmcdole/crate/internal/domain"
)

// MapArtist converts a wire artist to a domain artist
func MapArtist(dto ArtistDTO) (domain.Artist, error) {
	if dto.ID == "" {
		return domain.Artist{}, fmt.Errorf("artist without id")
	}
	return domain.Artist{
		ID:       dto.ID,
		Name:     dto.Name,
		ImageURL: deref(dto.ImageURL),
	}, nil
}

// MapArtists converts a wire artist list, preserving server order
func MapArtists(dtos []ArtistDTO) ([]domain.Artist, error) {
	artists := make([]domain.Artist, 0, len(dtos))
	for i, dto := range dtos {
		artist, err := MapArtist(dto)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		artists = append(artists, artist)
	}
	return artists, nil
}

// MapAlbum converts a wire album to a domain album
func MapAlbum(dto AlbumDTO) (domain.Album, error) {
	if dto.ID == "" {
		return domain.Album{}, fmt.Errorf("album without id")
	}
	if dto.ArtistID == "" {
		return domain.Album{}, fmt.Errorf("album %s without artistId", dto.ID)
	}
	return domain.Album{
		ID:       dto.ID,
		Title:    dto.Title,
		CoverURL: deref(dto.CoverURL),
		ArtistID: dto.ArtistID,
	}, nil
}

// MapAlbums converts a wire album list, preserving server order
func MapAlbums(dtos []AlbumDTO) ([]domain.Album, error) {
	albums := make([]domain.Album, 0, len(dtos))
	for i, dto := range dtos {
		album, err := MapAlbum(dto)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		albums = append(albums, album)
	}
	return albums, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
