// Package auth guards protected operations: it validates the cached portal
// token and silently re-authenticates once with remembered credentials.
package auth

import (
	"context"
	"errors"
	"fmt"

	"kgeu-bot/internal/credentials"
	"kgeu-bot/internal/models"
	"kgeu-bot/internal/portal"
	"kgeu-bot/internal/session"
	"kgeu-bot/pkg/logger"

	"go.uber.org/zap"
)

var ErrNotAuthenticated = errors.New("auth: not authenticated")

// Portal is the part of the portal client the guard needs.
type Portal interface {
	Authenticate(ctx context.Context, login, password string) (portal.Session, error)
	CheckToken(ctx context.Context, token string) bool
}

type Guard struct {
	store  session.Store
	portal Portal
	cache  *credentials.Cache
	sealer *credentials.Sealer
	locks  *userLocks
	log    *zap.Logger
}

// NewGuard creates a guard. sealer may be nil, in which case passwords are
// only remembered for the lifetime of the process.
func NewGuard(store session.Store, p Portal, cache *credentials.Cache, sealer *credentials.Sealer, log *zap.Logger) *Guard {
	if cache == nil {
		cache = credentials.NewCache()
	}
	return &Guard{
		store:  store,
		portal: p,
		cache:  cache,
		sealer: sealer,
		locks:  newUserLocks(),
		log:    logger.OrNop(log).Named("auth"),
	}
}

// Authorize returns a snapshot of the user's record with a token the portal accepts.
// A rejected or missing token triggers at most one re-authentication, whose token
// is persisted before Authorize returns.
//
// Authorize, Login, Logout and ToggleNotifications hold the user's lock for
// their whole read-modify-write, so a slow re-authentication cannot overwrite
// a logout or a toggle made meanwhile.
func (g *Guard) Authorize(ctx context.Context, userID int64) (models.UserRecord, error) {
	defer g.locks.lock(userID)()

	log := g.log.With(zap.Int64(logger.FieldUserID, userID))

	rec, err := g.store.Get(ctx, userID)
	if errors.Is(err, session.ErrNotFound) {
		return models.UserRecord{}, ErrNotAuthenticated
	}
	if err != nil {
		return models.UserRecord{}, fmt.Errorf("load session: %w", err)
	}

	if rec.HasToken() && g.portal.CheckToken(ctx, rec.Token) {
		return rec, nil
	}

	password, ok := g.password(rec)
	if !ok {
		log.Info("token rejected and no credentials to re-authenticate")
		return models.UserRecord{}, ErrNotAuthenticated
	}

	sess, err := g.portal.Authenticate(ctx, rec.Login, password)
	if err != nil {
		log.Warn("silent re-authentication failed", zap.Error(err))
		return models.UserRecord{}, fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}

	rec.Token = sess.Token
	rec.Profile = sess.Profile
	if err := g.store.Upsert(ctx, rec); err != nil {
		return models.UserRecord{}, fmt.Errorf("save session: %w", err)
	}

	log.Info("token refreshed")
	return rec, nil
}

// Login authenticates with the portal and stores a fresh record.
// An existing record keeps its notification setting.
func (g *Guard) Login(ctx context.Context, userID int64, login, password string) (models.UserRecord, error) {
	defer g.locks.lock(userID)()

	sess, err := g.portal.Authenticate(ctx, login, password)
	if err != nil {
		return models.UserRecord{}, err
	}

	rec := models.UserRecord{
		UserID:  userID,
		Login:   login,
		Token:   sess.Token,
		Profile: sess.Profile,
	}
	if prev, err := g.store.Get(ctx, userID); err == nil {
		rec.NotificationsEnabled = prev.NotificationsEnabled
	}

	if g.sealer != nil {
		sealed, err := g.sealer.Seal(password)
		if err != nil {
			g.log.Error("failed to seal password", zap.Int64(logger.FieldUserID, userID), zap.Error(err))
		} else {
			rec.SealedPassword = sealed
		}
	}

	if err := g.store.Upsert(ctx, rec); err != nil {
		return models.UserRecord{}, fmt.Errorf("save session: %w", err)
	}
	g.cache.Remember(userID, password)

	g.log.Info("user logged in", zap.Int64(logger.FieldUserID, userID))
	return rec, nil
}

// Logout forgets everything stored for the user.
func (g *Guard) Logout(ctx context.Context, userID int64) error {
	defer g.locks.lock(userID)()

	g.cache.Forget(userID)
	if err := g.store.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ToggleNotifications flips the daily notification flag and returns the new record.
func (g *Guard) ToggleNotifications(ctx context.Context, userID int64) (models.UserRecord, error) {
	defer g.locks.lock(userID)()

	rec, err := g.store.Get(ctx, userID)
	if errors.Is(err, session.ErrNotFound) {
		return models.UserRecord{}, ErrNotAuthenticated
	}
	if err != nil {
		return models.UserRecord{}, fmt.Errorf("load session: %w", err)
	}

	rec.NotificationsEnabled = !rec.NotificationsEnabled
	if err := g.store.Upsert(ctx, rec); err != nil {
		return models.UserRecord{}, fmt.Errorf("save session: %w", err)
	}
	return rec, nil
}

func (g *Guard) password(rec models.UserRecord) (string, bool) {
	if p, ok := g.cache.Recall(rec.UserID); ok {
		return p, true
	}
	if g.sealer == nil || rec.SealedPassword == "" {
		return "", false
	}
	p, err := g.sealer.Open(rec.SealedPassword)
	if err != nil {
		g.log.Warn("stored password cannot be opened", zap.Int64(logger.FieldUserID, rec.UserID), zap.Error(err))
		return "", false
	}
	g.cache.Remember(rec.UserID, p)
	return p, true
}
