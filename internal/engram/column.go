// Package engram implements the content-addressed column store: the ~95%
// of per-tick information too heavy for WorldGraph bindings (NavPatch
// grids, tensors, raw feature vectors). Bindings hold only an engram id;
// the payload lives here, keyed by a random column id and optionally
// deduplicated by a stable content signature within a single run.
package engram

import (
	"database/sql"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"cca8/internal/logging"
)

// Kind namespaces payload formats stored in the column table.
type Kind string

const (
	KindNavPatch   Kind = "navpatch_v1"
	KindMapSurface Kind = "mapsurface_v1"
	KindTensor     Kind = "tensor_v1"
	KindRaw        Kind = "raw"
)

// Record is one stored column: a kind tag, logical name, opaque payload
// bytes, and the bag of attrs a binding or retrieval query can match on
// (column id, epoch, tick count, temporal vector, ...).
type Record struct {
	ID        string
	Kind      Kind
	Name      string
	Payload   []byte
	CreatedAt time.Time
	Attrs     map[string]interface{}
}

// FindOptions filters Store.Find. A zero-value NameContains/HasAttr and a
// nil Epoch mean "don't filter on this field".
type FindOptions struct {
	NameContains string
	Epoch        *int
	HasAttr      string
}

// Store is the content-addressed engram column store. It is safe for
// concurrent use; writes of the same deduplication signature within one
// run are coalesced via singleflight so only one copy is ever persisted.
type Store struct {
	db *sql.DB

	mu    sync.RWMutex
	bySig map[string]string // dedup signature -> engram id, reset per run
	group singleflight.Group
}

// Open creates (if needed) the engrams table on db and returns a Store.
// db is expected to be a *sql.DB opened against the "sqlite3" driver
// registered by github.com/mattn/go-sqlite3.
func Open(db *sql.DB) (*Store, error) {
	const ddl = `
CREATE TABLE IF NOT EXISTS engrams (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	payload    BLOB NOT NULL,
	created_at TEXT NOT NULL,
	attrs      TEXT NOT NULL DEFAULT '{}'
);`
	if _, err := db.Exec(ddl); err != nil {
		return nil, ErrIOError
	}
	return &Store{db: db, bySig: map[string]string{}}, nil
}

func newColumnID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// Put stores payload under a fresh random id and returns it. name is the
// record's logical identity for Find queries (e.g. "mapsurface_snapshot");
// attrs is the free-form meta.attrs bag (column, epoch, ticks, tvec64, ...).
func (s *Store) Put(kind Kind, name string, payload []byte, attrs map[string]interface{}) (string, error) {
	id := newColumnID()
	attrsJSON, err := marshalAttrs(attrs)
	if err != nil {
		return "", ErrInvalidPayload
	}
	if _, err := s.db.Exec(
		`INSERT INTO engrams (id, kind, name, payload, created_at, attrs) VALUES (?, ?, ?, ?, ?, ?)`,
		id, string(kind), name, payload, time.Now().UTC().Format("2006-01-02T15:04:05.000000000Z07:00"), attrsJSON,
	); err != nil {
		return "", ErrIOError
	}
	return id, nil
}

// PutDedup stores payload under sig, reusing a previously stored id for the
// same sig within this Store's lifetime instead of writing a duplicate row.
// Concurrent calls sharing sig are coalesced so the insert happens once.
func (s *Store) PutDedup(kind Kind, sig string, name string, payload []byte, attrs map[string]interface{}) (string, error) {
	s.mu.RLock()
	if id, ok := s.bySig[sig]; ok {
		s.mu.RUnlock()
		return id, nil
	}
	s.mu.RUnlock()

	v, err, _ := s.group.Do(sig, func() (interface{}, error) {
		s.mu.RLock()
		if id, ok := s.bySig[sig]; ok {
			s.mu.RUnlock()
			return id, nil
		}
		s.mu.RUnlock()

		id, err := s.Put(kind, name, payload, attrs)
		if err != nil {
			return "", err
		}
		s.mu.Lock()
		s.bySig[sig] = id
		s.mu.Unlock()
		logging.Get(logging.CategoryEngram).Debug("dedup-stored %s sig=%s", id, sig)
		return id, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func marshalAttrs(attrs map[string]interface{}) (string, error) {
	if attrs == nil {
		return "{}", nil
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func scanRecord(scan func(dest ...interface{}) error) (Record, error) {
	var rec Record
	var kind, createdAt, attrsJSON string
	if err := scan(&rec.ID, &kind, &rec.Name, &rec.Payload, &createdAt, &attrsJSON); err != nil {
		return Record{}, err
	}
	rec.Kind = Kind(kind)
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		rec.CreatedAt = t
	}
	rec.Attrs = map[string]interface{}{}
	if attrsJSON != "" {
		_ = json.Unmarshal([]byte(attrsJSON), &rec.Attrs)
	}
	return rec, nil
}

// Get fetches a column by id.
func (s *Store) Get(id string) (Record, error) {
	row := s.db.QueryRow(`SELECT id, kind, name, payload, created_at, attrs FROM engrams WHERE id = ?`, id)
	rec, err := scanRecord(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return Record{}, ErrUnknownEngram
		}
		return Record{}, ErrIOError
	}
	return rec, nil
}

// Exists reports whether id is present in the store.
func (s *Store) Exists(id string) (bool, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM engrams WHERE id = ?`, id).Scan(&n); err != nil {
		return false, ErrIOError
	}
	return n > 0, nil
}

// Count returns the total number of stored columns.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM engrams`).Scan(&n); err != nil {
		return 0, ErrIOError
	}
	return n, nil
}

// ListIDs returns every stored column id, oldest first.
func (s *Store) ListIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT id FROM engrams ORDER BY created_at`)
	if err != nil {
		return nil, ErrIOError
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, ErrIOError
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, ErrIOError
	}
	return ids, nil
}

// Find scans the store for records matching every set field of opts. Attr
// filters are evaluated in Go after decoding each row's attrs JSON, since
// the store makes no assumption about a JSON1-capable sqlite build.
func (s *Store) Find(opts FindOptions) ([]Record, error) {
	rows, err := s.db.Query(`SELECT id, kind, name, payload, created_at, attrs FROM engrams ORDER BY created_at`)
	if err != nil {
		return nil, ErrIOError
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, ErrIOError
		}
		if opts.NameContains != "" && !strings.Contains(rec.Name, opts.NameContains) {
			continue
		}
		if opts.Epoch != nil {
			got, ok := attrInt(rec.Attrs, "epoch")
			if !ok || got != *opts.Epoch {
				continue
			}
		}
		if opts.HasAttr != "" {
			if _, ok := rec.Attrs[opts.HasAttr]; !ok {
				continue
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, ErrIOError
	}
	return out, nil
}

func attrInt(attrs map[string]interface{}, key string) (int, bool) {
	v, ok := attrs[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

// Delete removes a column by id. Not an error if absent.
func (s *Store) Delete(id string) error {
	if _, err := s.db.Exec(`DELETE FROM engrams WHERE id = ?`, id); err != nil {
		return ErrIOError
	}
	s.mu.Lock()
	for sig, v := range s.bySig {
		if v == id {
			delete(s.bySig, sig)
		}
	}
	s.mu.Unlock()
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
