package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/crate/internal/adapter"
	"github.com/mmcdole/crate/internal/adapter/source"
	"github.com/mmcdole/crate/internal/preview"
	"github.com/mmcdole/crate/internal/service"
	"github.com/mmcdole/crate/internal/store"
	"github.com/mmcdole/crate/internal/tui"
	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags
var Version = "dev"

// app holds what every command needs once flags are parsed
var app struct {
	configFile string
	cfg        *adapter.Config
	logger     *slog.Logger
	logCloser  io.Closer
}

var rootCmd = &cobra.Command{
	Use:   "crate",
	Short: "Manage a music catalog from the terminal",
	Long: `crate manages the artists and albums of a catalog server.

Run without arguments to browse the catalog interactively. The subcommands
cover the same operations for scripts.`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app.logCloser != nil {
			app.logCloser.Close()
		}
	},
	RunE: runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&app.configFile, "config", "", "config file (default ~/.config/crate/config.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and the logger
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := adapter.LoadConfig(app.configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.cfg = cfg

	logger, closer, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger, closer = adapter.NullLogger(), nil
	}
	slog.SetDefault(logger)
	app.logger = logger
	app.logCloser = closer

	logger.Info("starting crate", "version", Version, "command", cmd.Name())
	return nil
}

// newCatalogService builds the gateway and the headless service on top of it
func newCatalogService() (*service.CatalogService, error) {
	creds := adapter.NewCredentials(app.cfg.Server.Token)
	repo, err := source.NewClientFromConfig(app.cfg, creds, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog client: %w", err)
	}
	return service.NewCatalogService(repo, app.logger), nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, logger := app.cfg, app.logger

	creds := adapter.NewCredentials(cfg.Server.Token)
	adapter.WatchToken(creds, logger)

	repo, err := source.NewClientFromConfig(cfg, creds, logger)
	if err != nil {
		return fmt.Errorf("failed to create catalog client: %w", err)
	}

	blobs, err := preview.OpenBlobStore(cfg.Cache.Dir)
	if err != nil {
		logger.Warn("preview cache unavailable, using memory", "error", err)
		blobs = preview.NewMemoryBlobStore()
	}
	defer blobs.Close()

	model := tui.NewModel(tui.Deps{
		Artists:        store.NewArtistStore(repo, logger),
		Albums:         store.NewAlbumStore(repo, logger),
		ArtistPreviews: preview.NewManager(blobs, cfg.Upload.MaxBytes, logger),
		AlbumPreviews:  preview.NewManager(blobs, cfg.Upload.MaxBytes, logger),
		Opener:         adapter.NewLauncher(cfg.Viewer.Command, cfg.Viewer.Args, logger),
		Credentials:    creds,
		Logger:         logger,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())

	logger.Info("starting TUI", "server", cfg.Server.URL)

	final, err := p.Run()
	if m, ok := final.(tui.Model); ok {
		m.Close()
	} else {
		model.Close()
	}
	if err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	logger.Info("shutting down")
	return nil
}
