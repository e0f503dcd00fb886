/*
Package record implements the durable per-user record store.

Each user owns a single JSON file under the records directory; a global JSON
index maps user ids to file paths and is the only place id uniqueness is
enforced. Every write stages to a uniquely named temporary file and then
atomically replaces the target, so a crash mid-write never leaves a corrupt
record at the canonical location. Multi-step mutations make the record file
durable before the index entry that points to it.
*/
package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dietitian/internal/app/profile"
	"dietitian/internal/pkg/logx"
)

// ErrNotFound reports that a user id has no usable record (no index entry,
// or the indexed file is gone).
var ErrNotFound = errors.New("record not found")

// UnknownName is the fallback used both when a name sanitizes to nothing and
// when a placeholder record is created for an unregistered chat user.
const UnknownName = "unknown"

var (
	whitespaceRun = regexp.MustCompile(`\s+`)

	// Keeps word characters, the Arabic block, and hyphens; strips the rest.
	unsafeChars = regexp.MustCompile(`[^\w\x{0600}-\x{06FF}\-]`)
)

// Store owns the on-disk layout: root dir, users/ records dir, index.json.
type Store struct {
	root      string
	usersDir  string
	indexPath string
	log       zerolog.Logger
}

// CreateParams carries the optional initial profile fields for Create.
// Unset fields stay null in the stored record.
type CreateParams struct {
	Age           *int
	Weight        *float64
	Height        *float64
	Goal          string
	ActivityLevel string
}

// NewStore returns a store rooted at dir. Call EnsureReady (or any operation,
// all of which ensure readiness) before first use.
func NewStore(dir string) *Store {
	return &Store{
		root:      dir,
		usersDir:  filepath.Join(dir, "users"),
		indexPath: filepath.Join(dir, "index.json"),
		log:       logx.Logger().With().Str("component", "RecordStore").Logger(),
	}
}

// EnsureReady idempotently creates the storage root, the records directory,
// and an empty index if absent. Safe to call repeatedly and concurrently.
func (s *Store) EnsureReady() error {
	if err := os.MkdirAll(s.usersDir, 0o755); err != nil {
		return fmt.Errorf("create records dir: %w", err)
	}

	if _, err := os.Stat(s.indexPath); errors.Is(err, os.ErrNotExist) {
		return s.writeJSON(s.indexPath, map[string]string{})
	} else if err != nil {
		return fmt.Errorf("stat index: %w", err)
	}
	return nil
}

// Create registers a new record for userID and returns its path. If the id
// is already indexed the existing path is returned unchanged: create is
// idempotent and never overwrites a prior registration.
func (s *Store) Create(userID, name string, params CreateParams) (string, error) {
	if err := checkID(userID); err != nil {
		return "", err
	}

	index, err := s.loadIndex()
	if err != nil {
		return "", err
	}
	if path, ok := index[userID]; ok {
		return path, nil
	}

	rec := profile.NewRecord(userID, name)
	rec.Age = params.Age
	rec.Weight = params.Weight
	rec.Height = params.Height
	rec.Goal = params.Goal
	rec.ActivityLevel = params.ActivityLevel

	path := s.recordPath(userID, name)
	if err := s.writeJSON(path, rec); err != nil {
		return "", err
	}

	index[userID] = path
	if err := s.saveIndex(index); err != nil {
		return "", err
	}

	s.log.Debug().Str("user_id", userID).Str("path", path).Msg("record created")
	return path, nil
}

// Path resolves the record file location for userID via the index.
func (s *Store) Path(userID string) (string, error) {
	index, err := s.loadIndex()
	if err != nil {
		return "", err
	}
	path, ok := index[userID]
	if !ok {
		return "", ErrNotFound
	}
	return path, nil
}

// Load reads the record for userID. ErrNotFound covers both a missing index
// entry and an indexed file that no longer exists.
func (s *Store) Load(userID string) (*profile.Record, error) {
	path, err := s.Path(userID)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read record %s: %w", userID, err)
	}

	rec := &profile.Record{}
	if err := json.Unmarshal(raw, rec); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", userID, err)
	}
	return rec, nil
}

// Save persists the record for userID via stage-then-atomic-replace.
// It fails with ErrNotFound when the id was never registered.
func (s *Store) Save(userID string, rec *profile.Record) error {
	path, err := s.Path(userID)
	if err != nil {
		return err
	}
	return s.writeJSON(path, rec)
}

// Rename moves the record to the location derived from newName, updates the
// index, and persists the new name inside the record. A pre-existing file at
// the target location is removed first: name collisions overwrite silently.
// Callers that need collision safety must check the target themselves.
func (s *Store) Rename(userID, newName string) (string, error) {
	path, err := s.Path(userID)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return "", ErrNotFound
	}

	newPath := s.recordPath(userID, newName)
	if newPath != path {
		if err := os.Remove(newPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("clear rename target: %w", err)
		}
		if err := os.Rename(path, newPath); err != nil {
			return "", fmt.Errorf("move record: %w", err)
		}
	}

	index, err := s.loadIndex()
	if err != nil {
		return "", err
	}
	index[userID] = newPath
	if err := s.saveIndex(index); err != nil {
		return "", err
	}

	rec, err := s.Load(userID)
	if err == nil {
		rec.Name = newName
		if err := s.Save(userID, rec); err != nil {
			return "", err
		}
	}

	s.log.Debug().Str("user_id", userID).Str("path", newPath).Msg("record renamed")
	return newPath, nil
}

// recordPath derives the canonical file location: {safe_name}_{user_id}.json
// under the records directory.
func (s *Store) recordPath(userID, name string) string {
	return filepath.Join(s.usersDir, fmt.Sprintf("%s_%s.json", sanitizeFilename(name), userID))
}

// sanitizeFilename derives a filesystem-safe token from a display name:
// trimmed, lowercased, whitespace runs collapsed to underscores, unsafe
// characters stripped, empty results replaced by the fallback token.
func sanitizeFilename(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = whitespaceRun.ReplaceAllString(name, "_")
	name = unsafeChars.ReplaceAllString(name, "")
	if name == "" {
		name = UnknownName
	}
	return name
}

// checkID rejects ids that would escape the records directory. Ids are used
// verbatim in filenames, so path separators are the only forbidden input.
func checkID(userID string) error {
	if userID == "" {
		return errors.New("empty user id")
	}
	if strings.ContainsAny(userID, `/\`) || userID == "." || userID == ".." {
		return fmt.Errorf("invalid user id %q", userID)
	}
	return nil
}

// loadIndex reads the global index, creating the storage layout on first use.
func (s *Store) loadIndex() (map[string]string, error) {
	if err := s.EnsureReady(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(s.indexPath)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}

	index := map[string]string{}
	if err := json.Unmarshal(raw, &index); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	return index, nil
}

func (s *Store) saveIndex(index map[string]string) error {
	return s.writeJSON(s.indexPath, index)
}

// writeJSON stages the encoded value to a uniquely named temporary file next
// to path, then atomically replaces path. Concurrent writers never share a
// staging file; the last replace wins.
func (s *Store) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}

	tmp := fmt.Sprintf("%s.tmp-%s", path, uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("stage %s: %w", filepath.Base(path), err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
