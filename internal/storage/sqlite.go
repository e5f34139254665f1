// Package storage handles database connections, schema migrations, and data operations using SQLite.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wildwest-rp/stagecoach/internal/models"
	_ "modernc.org/sqlite" // Driver sqlite
)

// Repository manages the SQLite database connection.
type Repository struct {
	db *sql.DB
}

// New initializes a new SQLite connection, sets connection pool parameters, and runs migrations.
func New(dbPath string) (*Repository, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// EnsureDefault seeds the server_status row if the table is empty, so a fresh
// deployment answers status requests before the first successful scrape.
func (r *Repository) EnsureDefault(name, description, ip string, port, maxPlayers int) error {
	existing, err := r.LoadStatus()
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	_, err = r.db.Exec(`
		INSERT INTO server_status (
			id, server_name, server_description, server_ip, server_port,
			max_players, current_players, is_online, last_updated
		)
		VALUES (1, ?, ?, ?, ?, ?, 0, 0, ?)`,
		name, description, ip, port, maxPlayers, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("seed server_status: %w", err)
	}

	log.Info().Str("server_name", name).Msg("Seeded default server status record")
	return nil
}

// LoadStatus reads the single server_status row.
// It returns (nil, nil) when the record has never been created.
func (r *Repository) LoadStatus() (*models.ServerStatus, error) {
	row := r.db.QueryRow(`
		SELECT server_name, server_description, server_ip, server_port,
		       max_players, current_players, is_online, last_updated
		FROM server_status
		WHERE id = 1
	`)

	var s models.ServerStatus
	err := row.Scan(
		&s.ServerName, &s.ServerDescription, &s.ServerIP, &s.ServerPort,
		&s.MaxPlayers, &s.CurrentPlayers, &s.IsOnline, &s.LastUpdated,
	)

	if err == sql.ErrNoRows {
		return nil, nil // Not configured
	}
	if err != nil {
		return nil, err
	}

	return &s, nil
}

// SaveStatus writes the last-observed counts and online flag to the
// server_status row. The write commits before return, so a concurrent request
// reading the record afterwards sees the new state.
func (r *Repository) SaveStatus(currentPlayers, maxPlayers int, online bool, at time.Time) error {
	res, err := r.db.Exec(`
		UPDATE server_status
		SET current_players = ?, max_players = ?, is_online = ?, last_updated = ?
		WHERE id = 1`,
		currentPlayers, maxPlayers, online, at,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}
