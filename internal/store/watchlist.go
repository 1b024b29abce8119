package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"KabuScope/internal/model"
)

// Create stores a new watchlist with the given members. Creating a name
// that already exists overwrites it, same as Save.
func (s *Store) Create(name string, members []string) error {
	return s.Save(name, members)
}

// Save overwrites the named watchlist. Idempotent; members are
// de-duplicated preserving first-seen order. Identifiers are not checked
// against the catalog: a watchlist may reference instruments later
// removed from the registry.
func (s *Store) Save(name string, members []string) error {
	if name == "" {
		return errors.New("watchlist name must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(name, dedupe(members))
}

// Load returns the named watchlist's members, or model.ErrNotFound.
func (s *Store) Load(name string) ([]string, error) {
	var raw string
	err := s.db.QueryRow(`SELECT members FROM watchlists WHERE name = ?`, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("watchlist %q: %w", name, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load watchlist: %w", err)
	}
	var members []string
	if err := json.Unmarshal([]byte(raw), &members); err != nil {
		return nil, fmt.Errorf("decode watchlist %q: %w", name, err)
	}
	return members, nil
}

// AppendUnique unions newMembers into the named watchlist, preserving
// first-seen order. The read-modify-write runs under the store lock so
// concurrent appends cannot lose members. Appending to a missing name
// fails with model.ErrNotFound.
func (s *Store) AppendUnique(name string, newMembers []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Load(name)
	if err != nil {
		return err
	}
	return s.write(name, dedupe(append(current, newMembers...)))
}

// Delete removes the named watchlist. Deleting a missing name is not an error.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`DELETE FROM watchlists WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete watchlist: %w", err)
	}
	return nil
}

// ListNames returns all watchlist names in alphabetical order.
func (s *Store) ListNames() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM watchlists ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list watchlists: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan watchlist name: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// write upserts one watchlist row. Caller holds s.mu.
func (s *Store) write(name string, members []string) error {
	raw, err := json.Marshal(members)
	if err != nil {
		return fmt.Errorf("encode watchlist %q: %w", name, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO watchlists (name, members, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET members = excluded.members, updated_at = excluded.updated_at`,
		name, string(raw), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("save watchlist %q: %w", name, err)
	}
	return nil
}

func dedupe(members []string) []string {
	seen := make(map[string]struct{}, len(members))
	out := make([]string, 0, len(members))
	for _, m := range members {
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
