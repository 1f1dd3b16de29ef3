package preview

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketPreviews = []byte("previews")

// ErrBlobNotFound is returned for a reference that was never staged or was released
var ErrBlobNotFound = errors.New("preview blob not found")

// BlobStore stages preview thumbnails until their reference is released
type BlobStore interface {
	Put(ref string, data []byte) error
	Get(ref string) ([]byte, error)
	Delete(ref string) error
	Refs() []string
	Close() error
}

// BoltBlobStore keeps blobs in a small BoltDB file with an in-memory
// read-through cache. Without a directory it runs memory-only.
type BoltBlobStore struct {
	db *bolt.DB
	mu sync.RWMutex

	cache map[string][]byte
}

// NewMemoryBlobStore returns a store with no persistence
func NewMemoryBlobStore() *BoltBlobStore {
	return &BoltBlobStore{cache: make(map[string][]byte)}
}

// OpenBlobStore opens (or creates) the blob database under dir.
// Blobs left behind by a previous session are purged: their references
// died with that session's forms.
func OpenBlobStore(dir string) (*BoltBlobStore, error) {
	if dir == "" {
		return NewMemoryBlobStore(), nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "previews.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketPreviews); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(bucketPreviews)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltBlobStore{db: db, cache: make(map[string][]byte)}, nil
}

// Close closes the database, if any
func (s *BoltBlobStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put stages a blob
func (s *BoltBlobStore) Put(ref string, data []byte) error {
	data = slices.Clone(data)

	if s.db != nil {
		err := s.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(bucketPreviews).Put([]byte(ref), data)
		})
		if err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.cache[ref] = data
	s.mu.Unlock()
	return nil
}

// Get returns a staged blob
func (s *BoltBlobStore) Get(ref string) ([]byte, error) {
	s.mu.RLock()
	if data, ok := s.cache[ref]; ok {
		s.mu.RUnlock()
		return data, nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrBlobNotFound
	}

	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketPreviews).Get([]byte(ref))
		if v == nil {
			return ErrBlobNotFound
		}
		data = slices.Clone(v) // bbolt memory is only valid inside the tx
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[ref] = data
	s.mu.Unlock()
	return data, nil
}

// Delete removes a staged blob; deleting a missing ref is not an error
func (s *BoltBlobStore) Delete(ref string) error {
	s.mu.Lock()
	delete(s.cache, ref)
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPreviews).Delete([]byte(ref))
	})
}

// Refs lists every staged reference
func (s *BoltBlobStore) Refs() []string {
	if s.db == nil {
		s.mu.RLock()
		defer s.mu.RUnlock()
		refs := make([]string, 0, len(s.cache))
		for ref := range s.cache {
			refs = append(refs, ref)
		}
		slices.Sort(refs)
		return refs
	}

	var refs []string
	s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPreviews).ForEach(func(k, _ []byte) error {
			refs = append(refs, string(k))
			return nil
		})
	})
	return refs
}
