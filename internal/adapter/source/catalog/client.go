package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/crate/internal/domain"
)

const (
	defaultTimeout = 10 * time.Second
	defaultRetries = 2
	baseRetryDelay = 500 * time.Millisecond
	maxMessageLen  = 200
)

// Client implements domain.CatalogRepository over the catalog HTTP API
type Client struct {
	baseURL    string
	creds      domain.CredentialSource
	httpClient *http.Client
	retries    int
	retryDelay time.Duration
	logger     *slog.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (its Timeout is kept as-is)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRetries sets how many times idempotent reads are retried on 5xx
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithRetryDelay sets the base backoff delay between retries
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

// NewClient creates a catalog API client. creds may be nil for anonymous access.
func NewClient(baseURL string, creds domain.CredentialSource, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if creds == nil {
		creds = domain.StaticToken("")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		retries:    defaultRetries,
		retryDelay: baseRetryDelay,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// request describes one API call
type request struct {
	op          string // Operation name used in errors and logs
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string // Empty means application/json
}

// do performs an authenticated request and returns the response body.
// Only GETs are retried (exponential backoff on 5xx); writes fail fast so a
// create is never sent twice.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	reqURL := c.baseURL + r.path
	if len(r.query) > 0 {
		reqURL += "?" + r.query.Encode()
	}

	attempts := 1
	if r.method == http.MethodGet {
		attempts += c.retries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<(attempt-1)) // 500ms, 1s, 2s
			c.logger.Debug("retrying request", "op", r.op, "attempt", attempt, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, &domain.APIError{Kind: domain.ErrNetwork, Op: r.op, Err: ctx.Err()}
			}
		}

		body, err := c.attempt(ctx, reqURL, r)
		if err == nil {
			return body, nil
		}
		lastErr = err

		// Retry on 5xx only
		if !errors.Is(err, domain.ErrServer) {
			return nil, err
		}
		c.logger.Warn("catalog server error", "op", r.op, "attempt", attempt, "error", err)
	}

	c.logger.Error("catalog request failed after retries", "op", r.op, "url", reqURL, "error", lastErr)
	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, reqURL string, r request) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, r.method, reqURL, r.body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	} else {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.creds.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.Debug("catalog request", "op", r.op, "method", r.method, "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("catalog request failed", "op", r.op, "error", err)
		return nil, &domain.APIError{Kind: domain.ErrNetwork, Op: r.op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.APIError{Kind: domain.ErrNetwork, Op: r.op, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}
	return nil, classify(r.op, resp.StatusCode, body)
}

// classify maps a non-2xx response onto the error taxonomy
func classify(op string, status int, body []byte) error {
	e := &domain.APIError{Op: op, Status: status, Message: serverMessage(body)}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = domain.ErrAuth
	case status == http.StatusNotFound:
		e.Kind = domain.ErrNotFound
	case status >= 500:
		e.Kind = domain.ErrServer
	default:
		e.Kind = domain.ErrValidation
	}
	return e
}

// serverMessage extracts a short human message from an error body
func serverMessage(body []byte) string {
	var dto ErrorDTO
	if err := json.Unmarshal(body, &dto); err == nil {
		if dto.Message != "" {
			return truncate(dto.Message)
		}
		if dto.Error != "" {
			return truncate(dto.Error)
		}
		return ""
	}
	return truncate(strings.TrimSpace(string(body)))
}

func truncate(s string) string {
	if len(s) <= maxMessageLen {
		return s
	}
	return s[:maxMessageLen-3] + "..."
}

// decode parses a JSON body; malformed 2xx bodies are a server fault
func decode(op string, body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return &domain.APIError{Kind: domain.ErrServer, Op: op, Message: "malformed response", Err: err}
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// multipartBody encodes form fields plus an optional "image" file part
func multipartBody(fields [][2]string, image *domain.ImageUpload) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", f[0], err)
		}
	}

	if image != nil && len(image.Data) > 0 {
		contentType := image.ContentType
		if contentType == "" {
			contentType = http.DetectContentType(image.Data)
		}
		filename := image.Filename
		if filename == "" {
			filename = "image"
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="image"; filename="%s"`, quoteEscaper.Replace(filename)))
		h.Set("Content-Type", contentType)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create image part: %w", err)
		}
		if _, err := part.Write(image.Data); err != nil {
			return nil, "", fmt.Errorf("failed to write image part: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// ListArtists returns every artist in server order
func (c *Client) ListArtists(ctx context.Context) ([]domain.Artist, error) {
	const op = "list artists"
	body, err := c.do(ctx, request{op: op, method: http.MethodGet, path: "/artists"})
	if err != nil {
		return nil, err
	}

	var dtos []ArtistDTO
	if err := decode(op, body, &dtos); err != nil {
		return nil, err
	}
	artists, err := MapArtists(dtos)
	if err != nil {
		return nil, &domain.APIError{Kind: domain.ErrServer, Op: op, Message: "malformed response", Err: err}
	}
	return artists, nil
}

// CreateArtist creates an artist with an optional photo
func (c *Client) CreateArtist(ctx context.Context, in domain.NewArtist) (domain.Artist, error) {
	const op = "create artist"
	if err := in.Validate(); err != nil {
		return domain.Artist{}, err
	}

	body, contentType, err := multipartBody([][2]string{{"name", strings.TrimSpace(in.Name)}}, in.Image)
	if err != nil {
		return domain.Artist{}, err
	}

	resp, err := c.do(ctx, request{
		op:          op,
		method:      http.MethodPost,
		path:        "/artists",
		body:        body,
		contentType: contentType,
	})
	if err != nil {
		return domain.Artist{}, err
	}

	var dto ArtistDTO
	if err := decode(op, resp, &dto); err != nil {
		return domain.Artist{}, err
	}
	artist, err := MapArtist(dto)
	if err != nil {
		return domain.Artist{}, &domain.APIError{Kind: domain.ErrServer, Op: op, Message: "malformed response", Err: err}
	}

	c.logger.Info("created artist", "id", artist.ID, "name", artist.Name)
	return artist, nil
}

// DeleteArtist removes an artist
func (c *Client) DeleteArtist(ctx context.Context, artistID string) error {
	const op = "delete artist"
	if artistID == "" {
		return domain.Validation(op, "artist id is required")
	}
	_, err := c.do(ctx, request{op: op, method: http.MethodDelete, path: "/artists/" + url.PathEscape(artistID)})
	if err != nil {
		return err
	}
	c.logger.Info("deleted artist", "id", artistID)
	return nil
}

// ListAlbums returns the albums of one artist in server order
func (c *Client) ListAlbums(ctx context.Context, artistID string) ([]domain.Album, error) {
	const op = "list albums"
	if artistID == "" {
		return nil, domain.Validation(op, "artist id is required")
	}

	query := url.Values{}
	query.Set("artistId", artistID)

	body, err := c.do(ctx, request{op: op, method: http.MethodGet, path: "/albums", query: query})
	if err != nil {
		return nil, err
	}

	var dtos []AlbumDTO
	if err := decode(op, body, &dtos); err != nil {
		return nil, err
	}
	albums, err := MapAlbums(dtos)
	if err != nil {
		return nil, &domain.APIError{Kind: domain.ErrServer, Op: op, Message: "malformed response", Err: err}
	}
	return albums, nil
}

// CreateAlbum creates an album under an artist with an optional cover
func (c *Client) CreateAlbum(ctx context.Context, in domain.NewAlbum) (domain.Album, error) {
	const op = "create album"
	if err := in.Validate(); err != nil {
		return domain.Album{}, err
	}

	body, contentType, err := multipartBody([][2]string{
		{"artistId", in.ArtistID},
		{"title", strings.TrimSpace(in.Title)},
	}, in.Cover)
	if err != nil {
		return domain.Album{}, err
	}

	resp, err := c.do(ctx, request{
		op:          op,
		method:      http.MethodPost,
		path:        "/albums",
		body:        body,
		contentType: contentType,
	})
	if err != nil {
		return domain.Album{}, err
	}

	var dto AlbumDTO
	if err := decode(op, resp, &dto); err != nil {
		return domain.Album{}, err
	}
	album, err := MapAlbum(dto)
	if err != nil {
		return domain.Album{}, &domain.APIError{Kind: domain.ErrServer, Op: op, Message: "malformed response", Err: err}
	}

	c.logger.Info("created album", "id", album.ID, "artistID", album.ArtistID, "title", album.Title)
	return album, nil
}

// DeleteAlbum removes an album. Deleting a missing album returns ErrNotFound.
func (c *Client) DeleteAlbum(ctx context.Context, albumID string) error {
	const op = "delete album"
	if albumID == "" {
		return domain.Validation(op, "album id is required")
	}
	_, err := c.do(ctx, request{op: op, method: http.MethodDelete, path: "/albums/" + url.PathEscape(albumID)})
	if err != nil {
		return err
	}
	c.logger.Info("deleted album", "id", albumID)
	return nil
}
