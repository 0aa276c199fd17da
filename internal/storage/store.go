package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raine/reseller-assistant/internal/llm"
	_ "modernc.org/sqlite"
)

// Draft sources.
const (
	SourceWeb      = "web"
	SourceTelegram = "telegram"
	SourceCLI      = "cli"
)

// Draft is a persisted listing draft from a successful analysis.
type Draft struct {
	ID        string
	Source    string // One of the Source* constants
	Owner     string // Web session ID or Telegram user ID
	Location  string
	Listing   *llm.ListingRecord
	Citations []llm.Citation
	CreatedAt time.Time
}

// AllowedUser represents a user in the whitelist.
type AllowedUser struct {
	TelegramID int64
	AddedAt    time.Time
	AddedBy    int64
}

// Store defines the persistence used by the front-ends.
type Store interface {
	// Draft history
	SaveDraft(draft *Draft) error
	GetDraft(id string) (*Draft, error)
	ListDrafts(owner string, limit int) ([]Draft, error)
	DeleteDraft(id string) error

	// Per-user default location (Telegram)
	SetLocation(telegramID int64, location string) error
	GetLocation(telegramID int64) (string, error)

	// Allowed users methods
	IsUserAllowed(telegramID int64) (bool, error)
	AddAllowedUser(telegramID, addedBy int64) error
	RemoveAllowedUser(telegramID int64) error
	GetAllowedUsers() ([]AllowedUser, error)

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore creates a new SQLite-based store at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Configure SQLite with WAL mode and busy timeout for better concurrency
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	// The file exists once the schema is written
	if err := os.Chmod(dbPath, 0600); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set database permissions: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	draftsQuery := `
	CREATE TABLE IF NOT EXISTS drafts (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		owner TEXT NOT NULL,
		location TEXT NOT NULL,
		title TEXT NOT NULL,
		listing_json TEXT NOT NULL,
		citations_json TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_drafts_owner_created ON drafts(owner, created_at);
	`
	if _, err := s.db.Exec(draftsQuery); err != nil {
		return fmt.Errorf("failed to create drafts table: %w", err)
	}

	userSettingsQuery := `
	CREATE TABLE IF NOT EXISTS user_settings (
		telegram_id INTEGER PRIMARY KEY,
		location TEXT
	);
	`
	if _, err := s.db.Exec(userSettingsQuery); err != nil {
		return fmt.Errorf("failed to create user_settings table: %w", err)
	}

	allowedUsersQuery := `
	CREATE TABLE IF NOT EXISTS allowed_users (
		telegram_id INTEGER PRIMARY KEY,
		added_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		added_by INTEGER
	);
	`
	if _, err := s.db.Exec(allowedUsersQuery); err != nil {
		return fmt.Errorf("failed to create allowed_users table: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveDraft stores a draft, assigning an ID and creation time when missing.
func (s *SQLiteStore) SaveDraft(draft *Draft) error {
	if draft.Listing == nil {
		return fmt.Errorf("draft has no listing")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if draft.ID == "" {
		draft.ID = uuid.NewString()
	}
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = time.Now().UTC()
	}

	listingJSON, err := json.Marshal(draft.Listing)
	if err != nil {
		return fmt.Errorf("failed to marshal listing: %w", err)
	}
	citations := draft.Citations
	if citations == nil {
		citations = []llm.Citation{}
	}
	citationsJSON, err := json.Marshal(citations)
	if err != nil {
		return fmt.Errorf("failed to marshal citations: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO drafts (id, source, owner, location, title, listing_json, citations_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, draft.ID, draft.Source, draft.Owner, draft.Location, draft.Listing.SuggestedTitle,
		string(listingJSON), string(citationsJSON), draft.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}

	return nil
}

// GetDraft retrieves a draft by ID.
// Returns nil, nil if the draft doesn't exist.
func (s *SQLiteStore) GetDraft(id string) (*Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, source, owner, location, listing_json, citations_json, created_at
		FROM drafts WHERE id = ?
	`, id)

	draft, err := scanDraft(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query draft: %w", err)
	}
	return draft, nil
}

// ListDrafts returns the newest drafts of an owner, newest first.
// An empty owner lists drafts of all owners.
func (s *SQLiteStore) ListDrafts(owner string, limit int) ([]Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, source, owner, location, listing_json, citations_json, created_at
		FROM drafts`
	args := []any{}
	if owner != "" {
		query += " WHERE owner = ?"
		args = append(args, owner)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query drafts: %w", err)
	}
	defer rows.Close()

	var drafts []Draft
	for rows.Next() {
		draft, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draft: %w", err)
		}
		drafts = append(drafts, *draft)
	}

	return drafts, rows.Err()
}

// DeleteDraft removes a draft by ID.
func (s *SQLiteStore) DeleteDraft(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM drafts WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDraft(row rowScanner) (*Draft, error) {
	var d Draft
	var listingJSON, citationsJSON string
	if err := row.Scan(&d.ID, &d.Source, &d.Owner, &d.Location, &listingJSON, &citationsJSON, &d.CreatedAt); err != nil {
		return nil, err
	}

	var listing llm.ListingRecord
	if err := json.Unmarshal([]byte(listingJSON), &listing); err != nil {
		return nil, fmt.Errorf("failed to unmarshal listing: %w", err)
	}
	listing.Raw = json.RawMessage(listingJSON)
	d.Listing = &listing

	if err := json.Unmarshal([]byte(citationsJSON), &d.Citations); err != nil {
		return nil, fmt.Errorf("failed to unmarshal citations: %w", err)
	}

	return &d, nil
}

// SetLocation sets the default location for a Telegram user.
func (s *SQLiteStore) SetLocation(telegramID int64, location string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
	INSERT INTO user_settings (telegram_id, location)
	VALUES (?, ?)
	ON CONFLICT(telegram_id) DO UPDATE SET
		location = excluded.location;
	`
	if _, err := s.db.Exec(query, telegramID, location); err != nil {
		return fmt.Errorf("failed to set location: %w", err)
	}
	return nil
}

// GetLocation retrieves the default location for a Telegram user.
// Returns an empty string if not set.
func (s *SQLiteStore) GetLocation(telegramID int64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var location sql.NullString
	err := s.db.QueryRow(
		"SELECT location FROM user_settings WHERE telegram_id = ?",
		telegramID,
	).Scan(&location)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query location: %w", err)
	}
	return location.String, nil
}

// IsUserAllowed checks if a user is in the whitelist.
func (s *SQLiteStore) IsUserAllowed(telegramID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exists int
	err := s.db.QueryRow(
		"SELECT 1 FROM allowed_users WHERE telegram_id = ?",
		telegramID,
	).Scan(&exists)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check allowed user: %w", err)
	}
	return true, nil
}

// AddAllowedUser adds a user to the whitelist.
func (s *SQLiteStore) AddAllowedUser(telegramID, addedBy int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO allowed_users (telegram_id, added_by)
		VALUES (?, ?)
		ON CONFLICT(telegram_id) DO NOTHING
	`, telegramID, addedBy)
	if err != nil {
		return fmt.Errorf("failed to add allowed user: %w", err)
	}
	return nil
}

// RemoveAllowedUser removes a user from the whitelist.
func (s *SQLiteStore) RemoveAllowedUser(telegramID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM allowed_users WHERE telegram_id = ?", telegramID); err != nil {
		return fmt.Errorf("failed to remove allowed user: %w", err)
	}
	return nil
}

// GetAllowedUsers returns all users in the whitelist.
func (s *SQLiteStore) GetAllowedUsers() ([]AllowedUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT telegram_id, added_at, added_by FROM allowed_users ORDER BY added_at")
	if err != nil {
		return nil, fmt.Errorf("failed to query allowed users: %w", err)
	}
	defer rows.Close()

	var users []AllowedUser
	for rows.Next() {
		var u AllowedUser
		var addedBy sql.NullInt64
		if err := rows.Scan(&u.TelegramID, &u.AddedAt, &addedBy); err != nil {
			return nil, fmt.Errorf("failed to scan allowed user: %w", err)
		}
		u.AddedBy = addedBy.Int64
		users = append(users, u)
	}

	return users, rows.Err()
}
