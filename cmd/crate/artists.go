package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/preview"
	"github.com/spf13/cobra"
)

const commandTimeout = 60 * time.Second

var artistsCmd = &cobra.Command{
	Use:   "artists",
	Short: "List, create and delete artists",
}

var artistsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List artists in server order",
	Args:  cobra.NoArgs,
	RunE:  runArtistsList,
}

var artistsCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create an artist",
	Args:  cobra.ExactArgs(1),
	RunE:  runArtistsCreate,
}

var artistsDeleteCmd = &cobra.Command{
	Use:   "delete ARTIST_ID",
	Short: "Delete an artist and its albums",
	Args:  cobra.ExactArgs(1),
	RunE:  runArtistsDelete,
}

var (
	artistMatch string
	artistImage string
)

func init() {
	artistsListCmd.Flags().StringVar(&artistMatch, "match", "", "only show artists fuzzily matching this text, best first")
	artistsCreateCmd.Flags().StringVar(&artistImage, "image", "", "path to a photo to upload")

	artistsCmd.AddCommand(artistsListCmd, artistsCreateCmd, artistsDeleteCmd)
	rootCmd.AddCommand(artistsCmd)
}

func runArtistsList(cmd *cobra.Command, args []string) error {
	svc, err := newCatalogService()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	artists, err := svc.FindArtists(ctx, artistMatch)
	if err != nil {
		return userError(err)
	}
	if len(artists) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No artists.")
		return nil
	}

	t := newTable("ID", "NAME", "IMAGE")
	for _, a := range artists {
		t.Row(a.ID, a.Name, a.ImageURL)
	}
	fmt.Fprintln(cmd.OutOrStdout(), t.String())
	return nil
}

func runArtistsCreate(cmd *cobra.Command, args []string) error {
	in := domain.NewArtist{Name: args[0]}
	if err := in.Validate(); err != nil {
		return userError(err)
	}

	image, release, err := loadImage(artistImage)
	if err != nil {
		return userError(err)
	}
	defer release()
	in.Image = image

	svc, err := newCatalogService()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	artist, err := svc.CreateArtist(ctx, in)
	if err != nil {
		return userError(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created artist %s (%s)\n", artist.Name, artist.ID)
	return nil
}

func runArtistsDelete(cmd *cobra.Command, args []string) error {
	svc, err := newCatalogService()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	if err := svc.DeleteArtist(ctx, args[0]); err != nil {
		return userError(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted artist %s\n", args[0])
	return nil
}

// loadImage validates an image file the same way the TUI form does.
// An empty path yields no upload.
func loadImage(path string) (*domain.ImageUpload, func(), error) {
	if path == "" {
		return nil, func() {}, nil
	}
	previews := preview.NewManager(preview.NewMemoryBlobStore(), app.cfg.Upload.MaxBytes, app.logger)
	if _, err := previews.Select(path); err != nil {
		previews.Close()
		return nil, nil, err
	}
	return previews.Upload(), previews.Close, nil
}

// userError maps a catalog error to its stable message, keeping the cause in the log
func userError(err error) error {
	app.logger.Error("command failed", "error", err)
	return errors.New(domain.Describe(err))
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderColumn(false).
		BorderLeft(false).
		BorderRight(false).
		BorderTop(false).
		BorderBottom(false).
		Headers(headers...)
}
