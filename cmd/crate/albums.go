package main

import (
	"context"
	"fmt"

	"github.com/mmcdole/crate/internal/domain"
	"github.com/spf13/cobra"
)

var albumsCmd = &cobra.Command{
	Use:   "albums",
	Short: "List, create and delete albums of an artist",
}

var albumsListCmd = &cobra.Command{
	Use:   "list ARTIST_ID",
	Short: "List an artist's albums in server order",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlbumsList,
}

var albumsCreateCmd = &cobra.Command{
	Use:   "create ARTIST_ID TITLE",
	Short: "Create an album under an artist",
	Args:  cobra.ExactArgs(2),
	RunE:  runAlbumsCreate,
}

var albumsDeleteCmd = &cobra.Command{
	Use:   "delete ALBUM_ID",
	Short: "Delete an album",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlbumsDelete,
}

var albumCover string

func init() {
	albumsCreateCmd.Flags().StringVar(&albumCover, "cover", "", "path to a cover image to upload")

	albumsCmd.AddCommand(albumsListCmd, albumsCreateCmd, albumsDeleteCmd)
	rootCmd.AddCommand(albumsCmd)
}

func runAlbumsList(cmd *cobra.Command, args []string) error {
	svc, err := newCatalogService()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	albums, err := svc.ListAlbums(ctx, args[0])
	if err != nil {
		return userError(err)
	}
	if len(albums) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No albums.")
		return nil
	}

	t := newTable("ID", "TITLE", "COVER")
	for _, a := range albums {
		t.Row(a.ID, a.Title, a.CoverURL)
	}
	fmt.Fprintln(cmd.OutOrStdout(), t.String())
	return nil
}

func runAlbumsCreate(cmd *cobra.Command, args []string) error {
	in := domain.NewAlbum{ArtistID: args[0], Title: args[1]}
	if err := in.Validate(); err != nil {
		return userError(err)
	}

	cover, release, err := loadImage(albumCover)
	if err != nil {
		return userError(err)
	}
	defer release()
	in.Cover = cover

	svc, err := newCatalogService()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	album, err := svc.CreateAlbum(ctx, in)
	if err != nil {
		return userError(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created album %s (%s)\n", album.Title, album.ID)
	return nil
}

func runAlbumsDelete(cmd *cobra.Command, args []string) error {
	svc, err := newCatalogService()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	if err := svc.DeleteAlbum(ctx, args[0]); err != nil {
		return userError(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted album %s\n", args[0])
	return nil
}
