package server

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"

	"github.com/alfredovitale/frogger-server/common"
)

// leaderboardSize is the number of rows GetScores returns.
const leaderboardSize = 10

const schema = `
CREATE TABLE IF NOT EXISTS users (
	username      TEXT PRIMARY KEY,
	password_hash TEXT NOT NULL,
	wins          INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

// SQLStore implements AuthService and ScoreService on an embedded SQLite
// database. Errors returned from Register and Login are player-facing
// messages; anything internal is wrapped so the caller can log it.
type SQLStore struct {
	db *sql.DB
}

// OpenStore opens (creating if necessary) the database at the given path.
func OpenStore(path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}

	// SQLite handles one writer at a time; a single pooled connection
	// avoids SQLITE_BUSY under concurrent sessions.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &SQLStore{db: db}, nil
}

func (store *SQLStore) Close() error {
	return store.db.Close()
}

func (store *SQLStore) Register(username, password string) error {
	if username == "" || password == "" {
		return errors.New("username and password must not be empty")
	}
	if strings.Contains(username, common.FieldSeparator) {
		return errors.New("username must not contain ';'")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	_, err = store.db.Exec("INSERT INTO users (username, password_hash) VALUES (?, ?)", username, string(hash))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return errors.New("username is already taken")
		}
		return fmt.Errorf("storing user: %w", err)
	}

	return nil
}

func (store *SQLStore) Login(username, password string) error {
	var hash string
	err := store.db.QueryRow("SELECT password_hash FROM users WHERE username = ?", username).Scan(&hash)
	if err == sql.ErrNoRows {
		return errors.New("unknown username")
	}
	if err != nil {
		return fmt.Errorf("looking up user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return errors.New("wrong password")
	}

	return nil
}

func (store *SQLStore) GetScores() (common.Scores, error) {
	rows, err := store.db.Query(
		"SELECT username, wins FROM users WHERE wins > 0 ORDER BY wins DESC, username ASC LIMIT ?",
		leaderboardSize)
	if err != nil {
		return common.Scores{}, fmt.Errorf("querying scores: %w", err)
	}
	defer rows.Close()

	scores := common.Scores{Entries: []common.ScoreEntry{}}
	for rows.Next() {
		var entry common.ScoreEntry
		if err := rows.Scan(&entry.Username, &entry.Wins); err != nil {
			return common.Scores{}, fmt.Errorf("scanning score row: %w", err)
		}
		scores.Entries = append(scores.Entries, entry)
	}

	return scores, rows.Err()
}

func (store *SQLStore) RecordWin(username string) error {
	if username == "" {
		// Anonymous sessions can play but have no leaderboard row.
		return nil
	}

	_, err := store.db.Exec("UPDATE users SET wins = wins + 1 WHERE username = ?", username)
	if err != nil {
		return fmt.Errorf("recording win for %s: %w", username, err)
	}

	return nil
}
