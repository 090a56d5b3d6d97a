package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/matheus3301/crmlive/internal/crm"
)

const upsertClientSQL = `
	INSERT INTO clients (id, first_name, last_name, primary_phone, primary_email, alternate_email, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		first_name = excluded.first_name,
		last_name = excluded.last_name,
		primary_phone = excluded.primary_phone,
		primary_email = excluded.primary_email,
		alternate_email = excluded.alternate_email,
		updated_at = excluded.updated_at`

// UpsertClients replaces the cached copy of each client in one transaction.
func (db *DB) UpsertClients(clients []crm.Client) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	for _, c := range clients {
		if c.ID == "" {
			continue
		}
		if _, err := tx.Exec(upsertClientSQL,
			string(c.ID), c.FirstName, c.LastName, c.PrimaryPhone, c.PrimaryEmail, c.AlternateEmail, now); err != nil {
			return fmt.Errorf("upsert client %q: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// ListClients returns every cached client ordered by name.
func (db *DB) ListClients() ([]crm.Client, error) {
	rows, err := db.Query(`
		SELECT id, first_name, last_name, primary_phone, primary_email, alternate_email
		FROM clients
		ORDER BY first_name, last_name, id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []crm.Client
	for rows.Next() {
		var c crm.Client
		var id string
		if err := rows.Scan(&id, &c.FirstName, &c.LastName, &c.PrimaryPhone, &c.PrimaryEmail, &c.AlternateEmail); err != nil {
			return nil, err
		}
		c.ID = crm.ID(id)
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetClient returns a cached client, or nil if it is not cached.
func (db *DB) GetClient(id crm.ID) (*crm.Client, error) {
	var c crm.Client
	var raw string
	err := db.QueryRow(`
		SELECT id, first_name, last_name, primary_phone, primary_email, alternate_email
		FROM clients WHERE id = ?`, string(id)).
		Scan(&raw, &c.FirstName, &c.LastName, &c.PrimaryPhone, &c.PrimaryEmail, &c.AlternateEmail)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.ID = crm.ID(raw)
	return &c, nil
}

// ClientCount returns the number of cached clients.
func (db *DB) ClientCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM clients`).Scan(&count)
	return count, err
}
