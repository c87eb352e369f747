package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"kgeu-bot/internal/models"
	"kgeu-bot/internal/session"
)

var _ session.Store = (*DB)(nil)

type userRow struct {
	UserID               int64          `db:"user_id"`
	Login                string         `db:"login"`
	Token                sql.NullString `db:"token"`
	LastName             string         `db:"last_name"`
	FirstName            string         `db:"first_name"`
	ParentName           string         `db:"parent_name"`
	Email                string         `db:"email"`
	Position             string         `db:"position"`
	SealedPassword       string         `db:"sealed_password"`
	NotificationsEnabled bool           `db:"notifications_enabled"`
}

func rowFromRecord(rec models.UserRecord) userRow {
	return userRow{
		UserID:               rec.UserID,
		Login:                rec.Login,
		Token:                sql.NullString{String: rec.Token, Valid: rec.Token != ""},
		LastName:             rec.Profile.LastName,
		FirstName:            rec.Profile.FirstName,
		ParentName:           rec.Profile.ParentName,
		Email:                rec.Profile.Email,
		Position:             rec.Profile.Position,
		SealedPassword:       rec.SealedPassword,
		NotificationsEnabled: rec.NotificationsEnabled,
	}
}

func (r userRow) record() models.UserRecord {
	return models.UserRecord{
		UserID: r.UserID,
		Login:  r.Login,
		Token:  r.Token.String,
		Profile: models.Profile{
			LastName:   r.LastName,
			FirstName:  r.FirstName,
			ParentName: r.ParentName,
			Email:      r.Email,
			Position:   r.Position,
		},
		SealedPassword:       r.SealedPassword,
		NotificationsEnabled: r.NotificationsEnabled,
	}
}

const userColumns = `user_id, login, token, last_name, first_name, parent_name, email, position,
	sealed_password, notifications_enabled`

// User operations
func (db *DB) Get(ctx context.Context, userID int64) (models.UserRecord, error) {
	var row userRow

	err := db.GetContext(ctx, &row, db.Rebind(`
		SELECT `+userColumns+`
		FROM users
		WHERE user_id = ?
	`), userID)

	if errors.Is(err, sql.ErrNoRows) {
		return models.UserRecord{}, session.ErrNotFound
	}
	if err != nil {
		return models.UserRecord{}, fmt.Errorf("failed to get user: %w", err)
	}

	return row.record(), nil
}

func (db *DB) Upsert(ctx context.Context, rec models.UserRecord) error {
	_, err := db.NamedExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (:user_id, :login, :token, :last_name, :first_name, :parent_name, :email, :position,
			:sealed_password, :notifications_enabled)
		ON CONFLICT (user_id) DO UPDATE
		SET login = EXCLUDED.login,
		    token = EXCLUDED.token,
		    last_name = EXCLUDED.last_name,
		    first_name = EXCLUDED.first_name,
		    parent_name = EXCLUDED.parent_name,
		    email = EXCLUDED.email,
		    position = EXCLUDED.position,
		    sealed_password = EXCLUDED.sealed_password,
		    notifications_enabled = EXCLUDED.notifications_enabled,
		    updated_at = CURRENT_TIMESTAMP
	`, rowFromRecord(rec))

	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (db *DB) Delete(ctx context.Context, userID int64) error {
	_, err := db.ExecContext(ctx, db.Rebind(`DELETE FROM users WHERE user_id = ?`), userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func (db *DB) ListNotified(ctx context.Context) ([]models.UserRecord, error) {
	var rows []userRow

	err := db.SelectContext(ctx, &rows, db.Rebind(`
		SELECT `+userColumns+`
		FROM users
		WHERE notifications_enabled = ?
		ORDER BY user_id
	`), true)

	if err != nil {
		return nil, fmt.Errorf("failed to list notified users: %w", err)
	}

	records := make([]models.UserRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.record())
	}
	return records, nil
}
