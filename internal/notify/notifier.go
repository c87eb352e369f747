// Package notify sends every subscribed user tomorrow's schedule once a day.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kgeu-bot/internal/auth"
	"kgeu-bot/internal/models"
	"kgeu-bot/internal/schedule"
	"kgeu-bot/internal/session"
	"kgeu-bot/pkg/logger"

	"go.uber.org/zap"
)

// Sender delivers a plain text message to a chat.
type Sender interface {
	SendMessage(chatID int64, text string, replyMarkup interface{}) error
}

type Authorizer interface {
	Authorize(ctx context.Context, userID int64) (models.UserRecord, error)
}

// At is a wall-clock time of day.
type At struct {
	Hour   int
	Minute int
}

// ParseAt reads "HH:MM".
func ParseAt(s string) (At, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return At{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return At{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// NextRun returns the first instant strictly after now at the given time of day in loc.
func NextRun(now time.Time, at At, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), at.Hour, at.Minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, at.Hour, at.Minute, 0, 0, loc)
	}
	return next
}

type Notifier struct {
	store    session.Store
	guard    Authorizer
	schedule *schedule.Service
	sender   Sender
	at       At
	now      func() time.Time
	log      *zap.Logger
}

func New(store session.Store, guard Authorizer, svc *schedule.Service, sender Sender, at At, log *zap.Logger) *Notifier {
	return &Notifier{
		store:    store,
		guard:    guard,
		schedule: svc,
		sender:   sender,
		at:       at,
		now:      time.Now,
		log:      logger.OrNop(log).Named("notify"),
	}
}

// Run blocks until ctx is done, calling SendAll once a day.
func (n *Notifier) Run(ctx context.Context) {
	loc := n.schedule.Resolver().Location
	for {
		next := NextRun(n.now(), n.at, loc)
		n.log.Info("next notification run scheduled", zap.Time("at", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			sent := n.SendAll(ctx)
			n.log.Info("notifications sent", zap.Int("count", sent))
		}
	}
}

// SendAll sends tomorrow's schedule to every subscribed user and returns how
// many messages were delivered.
func (n *Notifier) SendAll(ctx context.Context) int {
	users, err := n.store.ListNotified(ctx)
	if err != nil {
		n.log.Error("failed to list subscribed users", zap.Error(err))
		return 0
	}

	tomorrow := n.now().AddDate(0, 0, 1)
	sent := 0
	for _, u := range users {
		if ctx.Err() != nil {
			break
		}
		log := n.log.With(zap.Int64(logger.FieldUserID, u.UserID))

		rec, err := n.guard.Authorize(ctx, u.UserID)
		if errors.Is(err, auth.ErrNotAuthenticated) {
			log.Info("skipping user without a valid session")
			continue
		}
		if err != nil {
			log.Warn("authorization failed", zap.Error(err))
			continue
		}

		text := "На завтра расписания нет."
		if entries := n.schedule.ForDay(ctx, rec.Token, tomorrow); len(entries) > 0 {
			text = "Расписание на завтра:\n\n" + n.schedule.Format(entries)
		}

		if err := n.sender.SendMessage(u.UserID, text, nil); err != nil {
			log.Warn("failed to send notification", zap.Error(err))
			continue
		}
		sent++
	}
	return sent
}
