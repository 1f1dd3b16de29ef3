package preview

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/mmcdole/crate/internal/domain"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestReselectReleasesPreviousExactlyOnce(t *testing.T) {
	blobs := NewMemoryBlobStore()
	m := NewManager(blobs, 0, quiet)

	a, err := m.SelectData("a.png", testPNG(t, 40, 40))
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.SelectData("b.png", testPNG(t, 20, 10))
	if err != nil {
		t.Fatal(err)
	}

	if got := m.Active().Ref; got != b.Ref {
		t.Fatalf("active = %s, want %s", got, b.Ref)
	}
	if _, err := blobs.Get(a.Ref); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("blob for %s still staged", a.Ref)
	}
	if out := m.Render(a.Ref); out != "" {
		t.Errorf("released preview still renders")
	}

	m.Close()
	st := m.Stats()
	if st.Created != 2 || st.Released != 2 || st.Invalid != 0 {
		t.Fatalf("stats = %+v, want 2 created, 2 released, 0 invalid", st)
	}
	if refs := blobs.Refs(); len(refs) != 0 {
		t.Errorf("leaked blobs: %v", refs)
	}
}

func TestClearIsIdempotent(t *testing.T) {
	m := NewManager(nil, 0, quiet)
	if _, err := m.SelectData("a.png", testPNG(t, 8, 8)); err != nil {
		t.Fatal(err)
	}

	m.Clear()
	m.Clear()
	m.Close()

	st := m.Stats()
	if st.Released != 1 || st.Invalid != 0 {
		t.Fatalf("stats = %+v", st)
	}
	if m.Active() != nil || m.Upload() != nil {
		t.Fatal("selection survived Clear")
	}
}

func TestInvalidSelectionKeepsPrevious(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"not an image", []byte("hello, world")},
		{"too large", testPNG(t, 200, 200)},
		{"truncated png", testPNG(t, 8, 8)[:20]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(nil, 2048, quiet)
			first, err := m.SelectData("ok.png", testPNG(t, 8, 8))
			if err != nil {
				t.Fatal(err)
			}

			_, err = m.SelectData("bad", tt.data)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
			if got := m.Active(); got == nil || got.Ref != first.Ref {
				t.Fatalf("active = %+v, want %s", got, first.Ref)
			}
			if st := m.Stats(); st.Released != 0 {
				t.Fatalf("stats = %+v", st)
			}
		})
	}
}

func TestSelectFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cover.png")
	if err := os.WriteFile(path, testPNG(t, 30, 60), 0644); err != nil {
		t.Fatal(err)
	}

	m := NewManager(nil, 0, quiet, WithThumbnailWidth(10))
	p, err := m.Select(path)
	if err != nil {
		t.Fatal(err)
	}
	if p.Filename != "cover.png" || p.ContentType != "image/png" || p.Dimensions != image.Pt(30, 60) {
		t.Fatalf("preview = %+v", p)
	}
	if !strings.HasPrefix(p.Ref, "preview:") {
		t.Errorf("ref = %q", p.Ref)
	}
	if !strings.Contains(p.Label(), "cover.png") {
		t.Errorf("label = %q", p.Label())
	}

	out := m.Render(p.Ref)
	if lines := strings.Count(out, "\n") + 1; lines != 10 {
		t.Errorf("rendered %d rows, want 10", lines)
	}

	up := m.Upload()
	if up == nil || up.Size() != p.Size || !up.IsImage() {
		t.Fatalf("upload = %+v", up)
	}

	if _, err := m.Select(dir); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("directory select err = %v", err)
	}
	if _, err := m.Select(filepath.Join(dir, "missing.png")); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("missing file err = %v", err)
	}
}

func TestBoltBlobStorePurgesOnOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := OpenBlobStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put("preview:left-over", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := s.Put("preview:kept", []byte("y")); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("preview:kept"); err != nil {
		t.Fatal(err)
	}
	if got := s.Refs(); !slices.Equal(got, []string{"preview:left-over"}) {
		t.Fatalf("refs = %v", got)
	}
	s.Close()

	s, err = OpenBlobStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if got := s.Refs(); len(got) != 0 {
		t.Fatalf("refs after reopen = %v, want none", got)
	}
	if _, err := s.Get("preview:left-over"); !errors.Is(err, ErrBlobNotFound) {
		t.Fatalf("err = %v, want ErrBlobNotFound", err)
	}
}

func TestClosedManagerRejectsSelect(t *testing.T) {
	m := NewManager(nil, 0, quiet)
	m.Close()
	if _, err := m.SelectData("a.png", testPNG(t, 4, 4)); err == nil {
		t.Fatal("expected error after Close")
	}
}

func TestThumbnailFitsBox(t *testing.T) {
	tests := []struct {
		name  string
		w, h  int
		wantW int
		wantH int
	}{
		{"square", 40, 40, 24, 24},
		{"wide", 96, 24, 24, 6},
		{"tall", 20, 4000, 1, 24},
		{"small", 6, 4, 6, 4},
		{"one pixel", 1, 1, 1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			thumb, size, err := Thumbnail(testPNG(t, tt.w, tt.h), DefaultThumbnailWidth, DefaultThumbnailHeight)
			if err != nil {
				t.Fatal(err)
			}
			if size != image.Pt(tt.w, tt.h) {
				t.Errorf("size = %v", size)
			}
			cfg, err := png.DecodeConfig(bytes.NewReader(thumb))
			if err != nil {
				t.Fatal(err)
			}
			if cfg.Width != tt.wantW || cfg.Height != tt.wantH {
				t.Errorf("thumbnail = %dx%d, want %dx%d", cfg.Width, cfg.Height, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestTallImageRendersBoundedRows(t *testing.T) {
	m := NewManager(nil, 0, quiet)
	defer m.Close()

	p, err := m.SelectData("strip.png", testPNG(t, 20, 4000))
	if err != nil {
		t.Fatal(err)
	}
	out := m.Render(p.Ref)
	if rows := strings.Count(out, "\n") + 1; rows != DefaultThumbnailHeight/2 {
		t.Errorf("rendered %d rows, want %d", rows, DefaultThumbnailHeight/2)
	}
}

// pngHeader builds a PNG holding only a signature and an IHDR chunk,
// enough for image.DecodeConfig to report its dimensions.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 2 // truecolor

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestOversizedImageRejectedBeforeDecode(t *testing.T) {
	m := NewManager(nil, 0, quiet)
	defer m.Close()

	if _, err := m.SelectData("ok.png", testPNG(t, 8, 8)); err != nil {
		t.Fatal(err)
	}

	_, err := m.SelectData("bomb.png", pngHeader(50000, 50000))
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if !strings.Contains(domain.Describe(err), "too large") {
		t.Errorf("message = %q", domain.Describe(err))
	}
	if p := m.Active(); p == nil || p.Filename != "ok.png" {
		t.Errorf("Active() = %+v, want ok.png kept", p)
	}
	if _, _, err := Thumbnail(pngHeader(50000, 50000), 0, 0); !errors.Is(err, ErrImageTooLarge) {
		t.Errorf("Thumbnail err = %v, want ErrImageTooLarge", err)
	}
}
