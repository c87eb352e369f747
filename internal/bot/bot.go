// Package bot holds the Telegram-facing state of the bot: its collaborators,
// message helpers, keyboards and the update dispatcher.
package bot

import (
	"context"
	"fmt"
	"time"

	"kgeu-bot/internal/auth"
	"kgeu-bot/internal/conversation"
	"kgeu-bot/internal/models"
	"kgeu-bot/internal/schedule"
	"kgeu-bot/internal/session"
	"kgeu-bot/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Messenger is the part of the Telegram API the bot talks to.
type Messenger interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Records fetches the grade and transcript reports.
type Records interface {
	Grades(ctx context.Context, token string, semester int) (*models.GradeReport, error)
	Transcript(ctx context.Context, token string, semester int) (*models.Transcript, error)
	Semesters(ctx context.Context, token string) ([]int, error)
}

type Deps struct {
	Store    session.Store
	Guard    *auth.Guard
	Dialogs  *conversation.Machine
	Schedule *schedule.Service
	Records  Records
	// MaxConcurrent bounds how many updates are handled at once.
	MaxConcurrent int64
}

type Bot struct {
	API      Messenger
	Store    session.Store
	Guard    *auth.Guard
	Dialogs  *conversation.Machine
	Schedule *schedule.Service
	Records  Records
	Log      *zap.Logger
	Now      func() time.Time

	maxConcurrent int64
}

// NewAPI connects to the Bot API. An empty endpoint means api.telegram.org.
func NewAPI(token, endpoint string) (*tgbotapi.BotAPI, error) {
	var (
		api *tgbotapi.BotAPI
		err error
	)
	if endpoint == "" {
		api, err = tgbotapi.NewBotAPI(token)
	} else {
		api, err = tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return api, nil
}

func New(api Messenger, deps Deps, log *zap.Logger) *Bot {
	n := deps.MaxConcurrent
	if n <= 0 {
		n = 16
	}
	return &Bot{
		API:           api,
		Store:         deps.Store,
		Guard:         deps.Guard,
		Dialogs:       deps.Dialogs,
		Schedule:      deps.Schedule,
		Records:       deps.Records,
		Log:           logger.OrNop(log).Named("bot"),
		Now:           time.Now,
		maxConcurrent: n,
	}
}

// Record returns the stored record without validating its token.
func (b *Bot) Record(ctx context.Context, userID int64) (*models.UserRecord, bool) {
	rec, err := b.Store.Get(ctx, userID)
	if err != nil {
		return nil, false
	}
	return &rec, true
}

func (b *Bot) SendMessage(chatID int64, text string, replyMarkup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if replyMarkup != nil {
		msg.ReplyMarkup = replyMarkup
	}

	_, err := b.API.Send(msg)
	return err
}

// Reply sends a message and logs a delivery failure instead of returning it.
func (b *Bot) Reply(chatID int64, text string, replyMarkup interface{}) {
	if err := b.SendMessage(chatID, text, replyMarkup); err != nil {
		b.Log.Warn("failed to send message", zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
	}
}

func (b *Bot) EditMessage(chatID int64, messageID int, text string, replyMarkup interface{}) error {
	msg := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if replyMarkup != nil {
		if markup, ok := replyMarkup.(tgbotapi.InlineKeyboardMarkup); ok {
			msg.ReplyMarkup = &markup
		}
	}

	_, err := b.API.Send(msg)
	return err
}

func (b *Bot) AnswerCallbackQuery(callbackID string, text string) error {
	callback := tgbotapi.NewCallback(callbackID, text)
	_, err := b.API.Request(callback)
	return err
}

func (b *Bot) DeleteMessage(chatID int64, messageID int) error {
	_, err := b.API.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

// SendDocument uploads data as a file named name.
func (b *Bot) SendDocument(chatID int64, name string, data []byte, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = caption

	_, err := b.API.Send(doc)
	return err
}
