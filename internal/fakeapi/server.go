// Package fakeapi is an in-memory implementation of the catalog HTTP API,
// used by tests and by `crate dev-server`.
package fakeapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

const (
	// MaxUploadBytes caps multipart bodies
	MaxUploadBytes = 10 << 20

	tokenIssuer = "crate-dev-server"
)

type artist struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	ImageURL *string `json:"imageUrl"`
}

type album struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	CoverURL *string `json:"coverUrl"`
	ArtistID string  `json:"artistId"`
}

type image struct {
	contentType string
	data        []byte
}

// Server holds the catalog in memory
type Server struct {
	auth   *jwtauth.JWTAuth
	logger *slog.Logger

	mu      sync.Mutex
	nextID  int
	artists []artist
	albums  []album
	images  map[string]image

	// Test hooks
	delay  time.Duration
	failOn map[string]int // "METHOD /path" -> status to answer with
}

// New creates an empty catalog. Tokens are HS256 JWTs signed with secret.
func New(secret string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		auth:   jwtauth.New("HS256", []byte(secret), nil),
		logger: logger,
		images: make(map[string]image),
		failOn: make(map[string]int),
	}
}

// IssueToken signs a bearer token for subject valid for ttl
func (s *Server) IssueToken(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	_, signed, err := s.auth.Encode(map[string]interface{}{
		jwt.SubjectKey:    subject,
		jwt.IssuerKey:     tokenIssuer,
		jwt.IssuedAtKey:   now.Unix(),
		jwt.ExpirationKey: now.Add(ttl),
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// SetDelay makes every API response wait d
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
}

// FailNext makes the next request matching method and path answer status
func (s *Server) FailNext(method, path string, status int) {
	s.mu.Lock()
	s.failOn[method+" "+path] = status
	s.mu.Unlock()
}

// Seed adds demo data
func (s *Server) Seed() {
	s.mu.Lock()
	defer s.mu.Unlock()

	catalog := []struct {
		name   string
		albums []string
	}{
		{"Queen", []string{"A Night at the Opera", "News of the World"}},
		{"Björk", []string{"Homogenic", "Vespertine"}},
		{"Nina Simone", []string{"Pastel Blues"}},
		{"Boards of Canada", nil},
	}
	for _, c := range catalog {
		a := artist{ID: s.newID("ar"), Name: c.name}
		s.artists = append(s.artists, a)
		for _, title := range c.albums {
			s.albums = append(s.albums, album{ID: s.newID("al"), Title: title, ArtistID: a.ID})
		}
	}
}

func (s *Server) newID(prefix string) string {
	s.nextID++
	return prefix + "_" + strconv.Itoa(s.nextID)
}

// Handler returns the HTTP surface, rooted at /api
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/images/{id}", s.getImage)

		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(s.auth))
			r.Use(s.mustAuthenticated)
			r.Use(s.faults)

			r.Get("/artists", s.listArtists)
			r.Post("/artists", s.createArtist)
			r.Delete("/artists/{id}", s.deleteArtist)

			r.Get("/albums", s.listAlbums)
			r.Post("/albums", s.createAlbum)
			r.Delete("/albums/{id}", s.deleteAlbum)
		})
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request", "method", r.Method, "path", r.URL.Path,
			"status", ww.Status(), "duration", time.Since(start))
	})
}

func (s *Server) mustAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, _, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		if iss, _ := token.Issuer(); iss != tokenIssuer {
			writeError(w, http.StatusForbidden, "token was not issued by this server")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) faults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + strings.TrimPrefix(r.URL.Path, "/api")

		s.mu.Lock()
		delay := s.delay
		status, fail := s.failOn[key]
		delete(s.failOn, key)
		s.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if fail {
			writeError(w, status, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) listArtists(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := append([]artist{}, s.artists...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createArtist(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "expected a multipart form")
		return
	}
	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	img, err := formImage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.artists {
		if strings.EqualFold(a.Name, name) {
			writeError(w, http.StatusConflict, "an artist named "+name+" already exists")
			return
		}
	}

	a := artist{ID: s.newID("ar"), Name: name}
	if img != nil {
		url := s.storeImage(r, a.ID, *img)
		a.ImageURL = &url
	}
	s.artists = append(s.artists, a)
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) deleteArtist(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.artists {
		if a.ID != id {
			continue
		}
		s.artists = append(s.artists[:i], s.artists[i+1:]...)
		delete(s.images, a.ID)

		kept := s.albums[:0]
		for _, al := range s.albums {
			if al.ArtistID == id {
				delete(s.images, al.ID)
				continue
			}
			kept = append(kept, al)
		}
		s.albums = kept
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeError(w, http.StatusNotFound, "artist not found")
}

func (s *Server) listAlbums(w http.ResponseWriter, r *http.Request) {
	artistID := r.URL.Query().Get("artistId")
	if artistID == "" {
		writeError(w, http.StatusBadRequest, "artistId is required")
		return
	}

	s.mu.Lock()
	out := []album{}
	for _, al := range s.albums {
		if al.ArtistID == artistID {
			out = append(out, al)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createAlbum(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "expected a multipart form")
		return
	}
	artistID := r.FormValue("artistId")
	title := strings.TrimSpace(r.FormValue("title"))
	if artistID == "" || title == "" {
		writeError(w, http.StatusBadRequest, "artistId and title are required")
		return
	}
	img, err := formImage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for _, a := range s.artists {
		if a.ID == artistID {
			found = true
			break
		}
	}
	if !found {
		writeError(w, http.StatusBadRequest, "unknown artist "+artistID)
		return
	}

	al := album{ID: s.newID("al"), Title: title, ArtistID: artistID}
	if img != nil {
		url := s.storeImage(r, al.ID, *img)
		al.CoverURL = &url
	}
	s.albums = append(s.albums, al)
	writeJSON(w, http.StatusCreated, al)
}

func (s *Server) deleteAlbum(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, al := range s.albums {
		if al.ID == id {
			s.albums = append(s.albums[:i], s.albums[i+1:]...)
			delete(s.images, id)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, http.StatusNotFound, "album not found")
}

func (s *Server) getImage(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	img, ok := s.images[chi.URLParam(r, "id")]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "image not found")
		return
	}
	w.Header().Set("Content-Type", img.contentType)
	w.Write(img.data)
}

// storeImage keeps an upload and returns its public URL. Caller holds s.mu.
func (s *Server) storeImage(r *http.Request, id string, img image) string {
	s.images[id] = img
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/api/images/%s", scheme, r.Host, id)
}

// formImage reads the optional "image" part
func formImage(r *http.Request) (*image, error) {
	file, hdr, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unreadable image: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("unreadable image: %w", err)
	}
	contentType := hdr.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%s is not an image", hdr.Filename)
	}
	return &image{contentType: contentType, data: data}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
