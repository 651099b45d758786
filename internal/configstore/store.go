package configstore

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-hassdriver/internal/infrastructure/database"
)

// ReferencePrefix marks a string value that points at another entry, as in
// "registry_config": "config://hass.csv".
const ReferencePrefix = "config://"

// ContentType is the declared format of an entry.
type ContentType string

// Supported content types.
const (
	ContentJSON ContentType = "json"
	ContentCSV  ContentType = "csv"
	ContentYAML ContentType = "yaml"
	ContentRaw  ContentType = "raw"
)

// Entry is one named document in the store.
type Entry struct {
	Identity    string      `json:"identity"`
	Name        string      `json:"name"`
	Contents    string      `json:"contents"`
	ContentType ContentType `json:"content_type"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Logger is the logging interface used by the store.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Store keeps named configuration documents for one agent identity in
// SQLite. Each entry is stored verbatim with its content type, so a CSV
// registry reads back exactly as it was written.
//
// Thread Safety: safe for concurrent use; the database serialises writes.
type Store struct {
	db       *database.DB
	identity string
	logger   Logger
}

// New creates a store for identity on an already migrated database.
func New(db *database.DB, identity string, logger Logger) *Store {
	return &Store{db: db, identity: identity, logger: logger}
}

// Identity returns the agent identity the store is scoped to.
func (s *Store) Identity() string {
	return s.identity
}

// Put creates or replaces an entry after checking that contents parse as
// ct.
//
// Parameters:
//   - ctx: Context for the database call
//   - name: Entry name, e.g. "devices/home/hass" or "hass.csv"
//   - contents: Raw document
//   - ct: Declared content type
//
// Returns:
//   - error: ErrInvalidName, ErrUnknownContentType, ErrInvalidContent or a
//     database error
func (s *Store) Put(ctx context.Context, name string, contents []byte, ct ContentType) error {
	name, err := NormalizeName(name)
	if err != nil {
		return err
	}
	if err := checkContents(contents, ct); err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO config_store (identity, name, contents, content_type, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (identity, name) DO UPDATE SET
			contents = excluded.contents,
			content_type = excluded.content_type,
			updated_at = excluded.updated_at`,
		s.identity, name, string(contents), string(ct), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("storing %s: %w", name, err)
	}
	if s.logger != nil {
		s.logger.Info("config entry stored", "name", name, "content_type", ct, "bytes", len(contents))
	}
	return nil
}

// PutJSON marshals v and stores it as a JSON entry.
func (s *Store) PutJSON(ctx context.Context, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	return s.Put(ctx, name, data, ContentJSON)
}

// Get returns an entry by name.
func (s *Store) Get(ctx context.Context, name string) (*Entry, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}

	var (
		e         = Entry{Identity: s.identity, Name: name}
		ct        string
		updatedAt string
	)
	err = s.db.QueryRowContext(ctx,
		"SELECT contents, content_type, updated_at FROM config_store WHERE identity = ? AND name = ?",
		s.identity, name,
	).Scan(&e.Contents, &ct, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	e.ContentType = ContentType(ct)
	e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt) //nolint:errcheck // written by Put
	return &e, nil
}

// GetJSON decodes a JSON or YAML entry into v.
func (s *Store) GetJSON(ctx context.Context, name string, v any) error {
	e, err := s.Get(ctx, name)
	if err != nil {
		return err
	}
	return e.Decode(v)
}

// List returns the entry names in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name FROM config_store WHERE identity = ? ORDER BY name", s.identity)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scanning entry name: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// Delete removes an entry.
func (s *Store) Delete(ctx context.Context, name string) error {
	name, err := NormalizeName(name)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM config_store WHERE identity = ? AND name = ?", s.identity, name)
	if err != nil {
		return fmt.Errorf("deleting %s: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if s.logger != nil {
		s.logger.Info("config entry deleted", "name", name)
	}
	return nil
}

// Import reads a file and stores it under name, or under the file's base
// name when name is empty. The content type follows the file extension.
func (s *Store) Import(ctx context.Context, name, file string) (string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", file, err)
	}
	if name == "" {
		name = filepath.Base(file)
	}
	if err := s.Put(ctx, name, data, ContentTypeFor(file)); err != nil {
		return "", err
	}
	return NormalizeName(name)
}

// Resolve follows a "config://<name>" reference. Any other value is an
// entry name.
func (s *Store) Resolve(ctx context.Context, ref string) (*Entry, error) {
	name, _ := ParseReference(ref)
	return s.Get(ctx, name)
}

// Decode unmarshals a JSON or YAML entry into v.
func (e *Entry) Decode(v any) error {
	var err error
	switch e.ContentType {
	case ContentJSON:
		err = json.Unmarshal([]byte(e.Contents), v)
	case ContentYAML:
		err = yaml.Unmarshal([]byte(e.Contents), v)
	default:
		return fmt.Errorf("%w: %s is %s, not a structured document", ErrInvalidContent, e.Name, e.ContentType)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidContent, e.Name, err)
	}
	return nil
}

// ParseReference strips the "config://" prefix. ok reports whether the
// prefix was present.
func ParseReference(s string) (name string, ok bool) {
	s = strings.TrimSpace(s)
	if rest, found := strings.CutPrefix(s, ReferencePrefix); found {
		return rest, true
	}
	return s, false
}

// NormalizeName trims slashes and redundant path elements.
// "/devices//home/hass/" becomes "devices/home/hass".
func NormalizeName(name string) (string, error) {
	n := strings.Trim(strings.TrimSpace(name), "/")
	if n == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidName)
	}
	n = path.Clean(n)
	if n == "." || n == ".." || strings.HasPrefix(n, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return n, nil
}

// ContentTypeFor maps a file extension to a content type.
func ContentTypeFor(filename string) ContentType {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return ContentJSON
	case ".csv":
		return ContentCSV
	case ".yaml", ".yml":
		return ContentYAML
	}
	return ContentRaw
}

// ParseContentType validates a content type name.
func ParseContentType(s string) (ContentType, error) {
	ct := ContentType(strings.ToLower(strings.TrimSpace(s)))
	switch ct {
	case ContentJSON, ContentCSV, ContentYAML, ContentRaw:
		return ct, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownContentType, s)
}

// checkContents rejects documents that do not parse as their type.
func checkContents(contents []byte, ct ContentType) error {
	var err error
	switch ct {
	case ContentJSON:
		if !json.Valid(contents) {
			err = errors.New("not valid JSON")
		}
	case ContentYAML:
		var v any
		err = yaml.Unmarshal(contents, &v)
	case ContentCSV:
		r := csv.NewReader(strings.NewReader(string(contents)))
		r.FieldsPerRecord = -1
		_, err = r.ReadAll()
	case ContentRaw:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownContentType, ct)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	return nil
}
