package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var catalogConcurrency int

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Summarize every artist with its album count",
	Args:  cobra.NoArgs,
	RunE:  runCatalog,
}

func init() {
	catalogCmd.Flags().IntVar(&catalogConcurrency, "concurrency", 4, "album lists fetched at once")
	rootCmd.AddCommand(catalogCmd)
}

func runCatalog(cmd *cobra.Command, args []string) error {
	svc, err := newCatalogService()
	if err != nil {
		return err
	}
	svc.SetConcurrency(catalogConcurrency)

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	start := time.Now()
	summaries, err := svc.Snapshot(ctx)
	if err != nil {
		return userError(err)
	}

	total := 0
	t := newTable("ARTIST", "ALBUMS", "IMAGE")
	for _, s := range summaries {
		total += len(s.Albums)
		image := "no"
		if s.Artist.HasImage() {
			image = "yes"
		}
		t.Row(s.Artist.Name, strconv.Itoa(len(s.Albums)), image)
	}
	if len(summaries) > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), t.String())
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s artists, %s albums (fetched in %s)\n",
		humanize.Comma(int64(len(summaries))),
		humanize.Comma(int64(total)),
		time.Since(start).Round(time.Millisecond))
	return nil
}
