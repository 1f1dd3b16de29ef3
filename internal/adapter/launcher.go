package adapter

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
)

// Launcher opens image URLs in an external viewer
type Launcher struct {
	command string   // configured viewer command, empty for system default
	args    []string // additional arguments for the viewer
	logger  *slog.Logger

	// start runs a command without waiting; replaced in tests
	start func(name string, args ...string) error
}

// NewLauncher creates a launcher for the configured viewer
func NewLauncher(command string, args []string, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{
		command: strings.TrimSpace(command),
		args:    args,
		logger:  logger,
		start:   startCommand,
	}
}

func startCommand(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// Launch opens url in the configured viewer or the system default handler
func (l *Launcher) Launch(url string) error {
	if url == "" {
		return fmt.Errorf("nothing to open")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return fmt.Errorf("refusing to open non-http url %q", url)
	}

	if l.command != "" {
		args := append(append([]string{}, l.args...), url)
		l.logger.Info("launching viewer", "command", l.command, "args", args)
		return l.start(l.command, args...)
	}

	name, args := defaultOpener(runtime.GOOS, url)
	l.logger.Info("launching with system default", "os", runtime.GOOS, "url", url)
	return l.start(name, args...)
}

// defaultOpener returns the platform's "open this URL" command
func defaultOpener(goos, url string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		// Not cmd /c start: cmd.exe treats & in query strings as a command separator
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	default:
		// Linux and other Unix-like systems
		return "xdg-open", []string{url}
	}
}
