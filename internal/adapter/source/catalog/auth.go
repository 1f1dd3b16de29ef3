package catalog

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/mmcdole/crate/internal/domain"
	"golang.org/x/term"
)

// AuthFlow implements domain.AuthFlow by prompting for a bearer token and
// verifying it with a cheap authenticated read.
type AuthFlow struct {
	logger *slog.Logger
	in     io.Reader
	out    io.Writer
	token  string // Preset token, skips the prompt
}

// AuthOption customizes an AuthFlow
type AuthOption func(*AuthFlow)

// WithToken supplies the token up front (non-interactive login)
func WithToken(token string) AuthOption {
	return func(f *AuthFlow) { f.token = strings.TrimSpace(token) }
}

// WithIO replaces stdin/stdout, used by tests
func WithIO(in io.Reader, out io.Writer) AuthOption {
	return func(f *AuthFlow) {
		f.in = in
		f.out = out
	}
}

// NewAuthFlow creates a token login flow
func NewAuthFlow(logger *slog.Logger, opts ...AuthOption) *AuthFlow {
	if logger == nil {
		logger = slog.Default()
	}
	f := &AuthFlow{logger: logger, in: os.Stdin, out: os.Stdout}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run asks for a token (hidden when stdin is a terminal) and checks it
// against the server before returning it.
func (f *AuthFlow) Run(ctx context.Context, serverURL string) (*domain.AuthResult, error) {
	token := f.token
	if token == "" {
		fmt.Fprintln(f.out)
		fmt.Fprintln(f.out, "Catalog Authentication")
		fmt.Fprintln(f.out, "━━━━━━━━━━━━━━━━━━━━━━")
		fmt.Fprintf(f.out, "Server: %s\n", serverURL)

		var err error
		token, err = f.readToken()
		if err != nil {
			return nil, err
		}
	}
	if token == "" {
		return nil, domain.Validation("login", "token is required")
	}

	fmt.Fprintln(f.out, "Verifying...")

	client := NewClient(serverURL, domain.StaticToken(token), f.logger, WithRetries(0))
	if _, err := client.ListArtists(ctx); err != nil {
		if errors.Is(err, domain.ErrAuth) {
			f.logger.Warn("login rejected", "server", serverURL)
		}
		return nil, err
	}

	result := &domain.AuthResult{Token: token}
	if tok, err := jwt.ParseInsecure([]byte(token)); err == nil {
		if sub, ok := tok.Subject(); ok {
			result.Subject = sub
		}
	}

	fmt.Fprintln(f.out, "Authentication successful!")
	return result, nil
}

func (f *AuthFlow) readToken() (string, error) {
	fmt.Fprint(f.out, "Token: ")

	if file, ok := f.in.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		raw, err := term.ReadPassword(int(file.Fd()))
		fmt.Fprintln(f.out) // Newline after hidden input
		if err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	line, err := bufio.NewReader(f.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}
