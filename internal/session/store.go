// Package session defines storage of per-chat-user sessions.
package session

import (
	"context"
	"errors"

	"kgeu-bot/internal/models"
)

var ErrNotFound = errors.New("session: user not found")

// Store maps chat user ids to their session records.
//
// Get returns a snapshot; changing it has no effect until it is passed to Upsert,
// which replaces the whole record atomically.
type Store interface {
	Get(ctx context.Context, userID int64) (models.UserRecord, error)
	Upsert(ctx context.Context, rec models.UserRecord) error
	Delete(ctx context.Context, userID int64) error
	ListNotified(ctx context.Context) ([]models.UserRecord, error)
}
