// Package document implements the document set (spec.md §6.1): the
// core's persistence collaborator, mapping document_id to
// (TextBlock, Encoding, newline style, upstream URI?). Adapted from the
// teacher's pkg/database (SQLite load/store/migrate) and
// pkg/server.getOrCreateDocument/persister, generalized from one flat
// text blob per document id to the richer Handle.
package document

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/sloked-go/sloked/internal/buffer"
	"github.com/sloked-go/sloked/internal/encoding"
	"github.com/sloked-go/sloked/pkg/logger"
)

// Set is the process-wide collection of open documents. Persistence is
// optional: a Set constructed without a SQLite DSN behaves as an
// in-memory-only store.
type Set struct {
	db *sql.DB

	mu           sync.Mutex
	cache        *lru.Cache[int64, *Handle]
	lastAccessed map[int64]time.Time
	nextID       int64
}

// New opens (and migrates) the SQLite database at dsn, or runs purely
// in-memory if dsn is "". cacheSize bounds how many documents stay
// warm; evicted documents are persisted first.
func New(dsn string, cacheSize int) (*Set, error) {
	s := &Set{lastAccessed: make(map[int64]time.Time)}

	if dsn != "" {
		db, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := migrate(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		s.db = db

		var maxID sql.NullInt64
		db.QueryRow("SELECT MAX(id) FROM document").Scan(&maxID)
		s.nextID = maxID.Int64 + 1
	}

	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.NewWithEvict[int64, *Handle](cacheSize, func(id int64, h *Handle) {
		if err := s.persist(h); err != nil {
			logger.Error("evicting document %d: persist failed: %v", id, err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("allocate document cache: %w", err)
	}
	s.cache = cache
	return s, nil
}

// Close persists every warm document and closes the database
// connection, if any.
func (s *Set) Close() error {
	s.mu.Lock()
	ids := s.cache.Keys()
	s.mu.Unlock()
	for _, id := range ids {
		if h, ok := s.cache.Get(id); ok {
			if err := s.persist(h); err != nil {
				logger.Error("closing document %d: persist failed: %v", id, err)
			}
		}
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// NewDocument creates a fresh, empty document with the given encoding
// and newline style.
func (s *Set) NewDocument(encodingName, newlineName string) (*Handle, error) {
	codec, err := encoding.ByName(encodingName)
	if err != nil {
		return nil, err
	}
	nl, err := ParseNewline(newlineName)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.mu.Unlock()

	h := &Handle{id: id, block: buffer.Empty(), codec: codec, newline: nl}
	s.touch(h)
	return h, nil
}

// Open creates a document from upstream file content already read by
// the caller (the core owns no persisted binary format itself, per
// spec.md §6), tagging it with path for later Save; the upstream is
// left unset.
func (s *Set) Open(content, path, encodingName, newlineName string) (*Handle, error) {
	codec, err := encoding.ByName(encodingName)
	if err != nil {
		return nil, err
	}
	nl, err := ParseNewline(newlineName)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.mu.Unlock()

	h := &Handle{
		id:      id,
		block:   buffer.New(splitLines(content, nl)),
		codec:   codec,
		newline: nl,
		path:    path,
	}
	s.touch(h)
	return h, nil
}

// OpenByID returns the cached handle for id, loading it from the
// database if it isn't currently warm.
func (s *Set) OpenByID(id int64) (*Handle, error) {
	if h, ok := s.cache.Get(id); ok {
		s.touch(h)
		return h, nil
	}
	if s.db == nil {
		return nil, fmt.Errorf("document %d not found", id)
	}
	var path, upstream sql.NullString
	var encodingName, newlineName, content string
	var hash int64
	err := s.db.QueryRow(
		"SELECT path, upstream, encoding, newline, content, content_hash FROM document WHERE id = ?", id,
	).Scan(&path, &upstream, &encodingName, &newlineName, &content, &hash)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load document %d: %w", id, err)
	}

	codec, err := encoding.ByName(encodingName)
	if err != nil {
		return nil, err
	}
	nl, err := ParseNewline(newlineName)
	if err != nil {
		return nil, err
	}
	h := &Handle{
		id:       id,
		block:    buffer.New(splitLines(content, nl)),
		codec:    codec,
		newline:  nl,
		path:     path.String,
		upstream: upstream.String,
		lastHash: uint64(hash),
	}
	s.touch(h)
	return h, nil
}

// Save persists h to the database if its content changed since the
// last save (xxhash dedup, avoiding a write for an untouched document).
func (s *Set) Save(h *Handle) error {
	return s.persist(h)
}

// SaveAs persists h under a new path, updating its identity.
func (s *Set) SaveAs(h *Handle, path string) error {
	h.setPath(path)
	h.lastHash = 0 // force a write even if content is unchanged
	return s.persist(h)
}

// CloseDocument evicts id from the warm cache, persisting it first.
func (s *Set) CloseDocument(id int64) error {
	h, ok := s.cache.Get(id)
	if !ok {
		return nil
	}
	if err := s.persist(h); err != nil {
		return err
	}
	s.cache.Remove(id)
	s.mu.Lock()
	delete(s.lastAccessed, id)
	s.mu.Unlock()
	return nil
}

// GetID returns h's persistence identifier.
func (s *Set) GetID(h *Handle) int64 { return h.ID() }

// GetUpstream returns h's upstream URI, if any.
func (s *Set) GetUpstream(h *Handle) (string, bool) { return h.Upstream() }

// Count returns the number of documents persisted to the database.
func (s *Set) Count() (int, error) {
	if s.db == nil {
		return 0, nil
	}
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM document").Scan(&count); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return count, nil
}

func (s *Set) touch(h *Handle) {
	s.cache.Add(h.id, h)
	s.mu.Lock()
	s.lastAccessed[h.id] = time.Now()
	s.mu.Unlock()
}

func (s *Set) persist(h *Handle) error {
	if s.db == nil {
		return nil
	}
	content := h.content()
	hash := xxhash.Sum64String(content)
	h.mu.RLock()
	unchanged := hash == h.lastHash
	h.mu.RUnlock()
	if unchanged {
		return nil
	}

	_, err := s.db.Exec(`
		INSERT INTO document (id, path, upstream, encoding, newline, content, content_hash, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path = excluded.path,
			upstream = excluded.upstream,
			content = excluded.content,
			content_hash = excluded.content_hash,
			updated_at = excluded.updated_at
	`, h.id, h.Path(), mustUpstream(h), h.codec.Name(), h.newline.String(), content, int64(hash), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("persist document %d: %w", h.id, err)
	}
	h.mu.Lock()
	h.lastHash = hash
	h.mu.Unlock()
	return nil
}

func mustUpstream(h *Handle) string {
	u, _ := h.Upstream()
	return u
}

// Sweep evicts (persisting first) every document not accessed within
// expiry, mirroring the teacher's cleanupExpiredDocuments.
func (s *Set) Sweep(expiry time.Duration) {
	now := time.Now()
	s.mu.Lock()
	var stale []int64
	for id, last := range s.lastAccessed {
		if now.Sub(last) > expiry {
			stale = append(stale, id)
		}
	}
	s.mu.Unlock()

	for _, id := range stale {
		if err := s.CloseDocument(id); err != nil {
			logger.Error("sweeping document %d: %v", id, err)
		}
	}
}

// Touch refreshes id's last-accessed timestamp, keeping it out of the
// next Sweep.
func (s *Set) Touch(id int64) {
	s.mu.Lock()
	s.lastAccessed[id] = time.Now()
	s.mu.Unlock()
}
