package preview

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/mmcdole/crate/internal/domain"
)

const refPrefix = "preview:"

// Preview describes the active pending image selection
type Preview struct {
	Ref         string // preview:<uuid>, valid until released
	Filename    string
	ContentType string
	Size        int
	Dimensions  image.Point
}

// Label renders a short description, e.g. "cover.png · 1.2 MB · 600×600"
func (p *Preview) Label() string {
	return fmt.Sprintf("%s · %s · %d×%d", p.Filename, humanize.Bytes(uint64(p.Size)),
		p.Dimensions.X, p.Dimensions.Y)
}

// Stats counts preview reference lifecycle events
type Stats struct {
	Created  int
	Released int
	Invalid  int // Release attempts on a reference that was already released
}

// Manager owns at most one pending image selection for one form.
// Every reference it creates is released exactly once: by the next
// Select, by Clear, or by Close.
type Manager struct {
	blobs       BlobStore
	maxBytes    int64
	thumbWidth  int
	thumbHeight int
	logger      *slog.Logger

	mu       sync.Mutex
	active   *Preview
	upload   *domain.ImageUpload
	released map[string]bool
	stats    Stats
	closed   bool
}

// Option customizes a Manager
type Option func(*Manager)

// WithThumbnailWidth sets the thumbnail width in cells
func WithThumbnailWidth(w int) Option {
	return func(m *Manager) { m.thumbWidth = w }
}

// WithThumbnailHeight sets the thumbnail height in pixels
func WithThumbnailHeight(h int) Option {
	return func(m *Manager) { m.thumbHeight = h }
}

// NewManager creates a manager staging blobs in blobs. maxBytes <= 0 disables the size check.
func NewManager(blobs BlobStore, maxBytes int64, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if blobs == nil {
		blobs = NewMemoryBlobStore()
	}
	m := &Manager{
		blobs:      blobs,
		maxBytes:   maxBytes,
		thumbWidth:  DefaultThumbnailWidth,
		thumbHeight: DefaultThumbnailHeight,
		logger:      logger,
		released:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Select reads path and makes it the active selection.
// An invalid file leaves the previous selection active.
func (m *Manager) Select(path string) (*Preview, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, domain.Validation("select image", fmt.Sprintf("cannot read %s", filepath.Base(path)))
	}
	if info.IsDir() {
		return nil, domain.Validation("select image", filepath.Base(path)+" is a directory")
	}
	if err := m.checkSize(info.Size()); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.Validation("select image", fmt.Sprintf("cannot read %s", filepath.Base(path)))
	}
	return m.SelectData(filepath.Base(path), data)
}

// SelectData makes an in-memory file the active selection
func (m *Manager) SelectData(filename string, data []byte) (*Preview, error) {
	if err := m.checkSize(int64(len(data))); err != nil {
		return nil, err
	}

	contentType := http.DetectContentType(data)
	upload := &domain.ImageUpload{Filename: filename, ContentType: contentType, Data: data}
	if !upload.IsImage() {
		return nil, domain.Validation("select image", filename+" is not an image")
	}

	thumb, dims, err := Thumbnail(data, m.thumbWidth, m.thumbHeight)
	if errors.Is(err, ErrImageTooLarge) {
		return nil, domain.Validation("select image", fmt.Sprintf("%s is %dx%d pixels, too large to preview", filename, dims.X, dims.Y))
	}
	if err != nil {
		return nil, domain.Validation("select image", filename+" is not a readable image")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("preview manager is closed")
	}

	ref := refPrefix + uuid.NewString()
	if err := m.blobs.Put(ref, thumb); err != nil {
		return nil, fmt.Errorf("failed to stage preview: %w", err)
	}
	m.stats.Created++

	// The previous reference goes away before the new one becomes visible
	m.releaseLocked()

	m.active = &Preview{
		Ref:         ref,
		Filename:    filename,
		ContentType: contentType,
		Size:        len(data),
		Dimensions:  dims,
	}
	m.upload = upload
	m.logger.Debug("preview selected", "ref", ref, "file", filename, "size", len(data))

	p := *m.active
	return &p, nil
}

func (m *Manager) checkSize(size int64) error {
	if m.maxBytes > 0 && size > m.maxBytes {
		return domain.Validation("select image", fmt.Sprintf("image is %s, limit is %s",
			humanize.Bytes(uint64(size)), humanize.Bytes(uint64(m.maxBytes))))
	}
	return nil
}

// Clear releases the active selection, if any
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseLocked()
}

// Close releases the active selection and rejects further selections
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseLocked()
	m.closed = true
}

// Active returns the current selection, or nil
func (m *Manager) Active() *Preview {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	p := *m.active
	return &p
}

// Upload returns the payload for the active selection, or nil
func (m *Manager) Upload() *domain.ImageUpload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upload
}

// Render draws the thumbnail behind ref. Released references render nothing.
func (m *Manager) Render(ref string) string {
	m.mu.Lock()
	if m.released[ref] {
		m.mu.Unlock()
		m.logger.Error("render of released preview", "ref", ref)
		return ""
	}
	m.mu.Unlock()

	thumb, err := m.blobs.Get(ref)
	if err != nil {
		return ""
	}
	out, err := RenderHalfBlocks(thumb)
	if err != nil {
		m.logger.Warn("failed to render preview", "ref", ref, "error", err)
		return ""
	}
	return out
}

// Stats returns lifecycle counters
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

func (m *Manager) releaseLocked() {
	if m.active == nil {
		return
	}
	ref := m.active.Ref
	m.active = nil
	m.upload = nil

	if m.released[ref] {
		m.stats.Invalid++
		m.logger.Error("preview released twice", "ref", ref)
		return
	}
	m.released[ref] = true
	m.stats.Released++

	if err := m.blobs.Delete(ref); err != nil {
		m.logger.Warn("failed to delete preview blob", "ref", ref, "error", err)
	}
	m.logger.Debug("preview released", "ref", ref)
}
