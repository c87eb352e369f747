package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"kgeu-bot/internal/auth"
	"kgeu-bot/internal/bot"
	"kgeu-bot/internal/conversation"
	"kgeu-bot/internal/models"
	"kgeu-bot/internal/portal"
	"kgeu-bot/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	msgWelcome       = "Добро пожаловать! Бот показывает расписание, баллы БРС и зачетную книжку КГЭУ.\n\nДля начала войдите с логином и паролем от личного кабинета."
	msgUseMenu       = "Пожалуйста, используйте меню для взаимодействия с ботом."
	msgUnknownCmd    = "Неизвестная команда. Используйте /start."
	msgAskLogin      = "Пожалуйста, введите ваш логин:"
	msgAskPassword   = "Теперь введите ваш пароль:"
	msgLoginFailed   = "Ошибка аутентификации. Проверьте логин и пароль и попробуйте снова."
	msgLoginRequired = "Пожалуйста, войдите в систему с помощью кнопки \"" + bot.BtnLogin + "\"."
	msgTryLater      = "Не удалось выполнить запрос. Попробуйте позже."
	msgLoggedOut     = "Вы вышли из системы."
	msgMainMenu      = "Главное меню:"
	msgSocial        = "Мы в соцсетях:\nhttps://vk.com/kgeu_official\nhttps://t.me/kgeu_official"
	msgAbout         = "Неофициальный бот личного кабинета КГЭУ. Данные загружаются из личного кабинета по вашему запросу."
)

type messageHandler func(ctx context.Context, b *bot.Bot, message *tgbotapi.Message)

// menu routes reply keyboard buttons. Pressing one always closes an open dialog.
var menu map[string]messageHandler

func init() {
	menu = map[string]messageHandler{
		bot.BtnLogin:      handleLoginButton,
		bot.BtnLogout:     handleLogout,
		bot.BtnSocial:     handleSocial,
		bot.BtnAbout:      handleAbout,
		bot.BtnBack:       handleBack,
		bot.BtnNotifyOn:   handleToggleNotifications,
		bot.BtnNotifyOff:  handleToggleNotifications,
		bot.BtnSchedule:   handleScheduleMenu,
		bot.BtnToday:      handleToday,
		bot.BtnTomorrow:   handleTomorrow,
		bot.BtnWeek:       handleWeek,
		bot.BtnPickDate:   handlePickDate,
		bot.BtnExport:     handleExport,
		bot.BtnGrades:     handleGradesMenu,
		bot.BtnTranscript: handleTranscriptMenu,

		bot.BtnGradesCurrent:     handleGradesCurrent,
		bot.BtnGradesPick:        handleGradesPick,
		bot.BtnTranscriptCurrent: handleTranscriptCurrent,
		bot.BtnTranscriptPick:    handleTranscriptPick,
	}
}

// HandleUpdate routes one update. Only private chats are served.
func HandleUpdate(ctx context.Context, b *bot.Bot, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() || update.Message.From == nil {
			return
		}
		if update.Message.IsCommand() {
			switch update.Message.Command() {
			case "start":
				HandleStart(ctx, b, update.Message)
			default:
				b.Reply(update.Message.Chat.ID, msgUnknownCmd, nil)
			}
			return
		}
		HandleMessage(ctx, b, update.Message)
	case update.CallbackQuery != nil:
		HandleCallbackQuery(ctx, b, update.CallbackQuery)
	}
}

func HandleStart(ctx context.Context, b *bot.Bot, message *tgbotapi.Message) {
	userID := message.From.ID
	b.Dialogs.Reset(userID)

	rec, ok := b.Record(ctx, userID)
	if !ok {
		b.Reply(message.Chat.ID, msgWelcome, b.MainMenuKeyboard(nil))
		return
	}

	name := rec.Profile.FullName()
	if name == "" {
		name = rec.Login
	}
	b.Reply(message.Chat.ID, fmt.Sprintf("С возвращением, %s!", name), b.MainMenuKeyboard(rec))
}

func HandleMessage(ctx context.Context, b *bot.Bot, message *tgbotapi.Message) {
	userID := message.From.ID
	text := strings.TrimSpace(message.Text)

	if h, ok := menu[text]; ok {
		b.Dialogs.Reset(userID)
		h(ctx, b, message)
		return
	}
	if strings.HasPrefix(text, bot.BtnProfilePrefix) {
		b.Dialogs.Reset(userID)
		handleProfile(ctx, b, message)
		return
	}

	switch b.Dialogs.Current(userID).Mode {
	case conversation.AwaitingLogin:
		handleLoginInput(ctx, b, message)
	case conversation.AwaitingPassword:
		handlePasswordInput(ctx, b, message)
	case conversation.AwaitingSemester:
		handleSemesterInput(ctx, b, message)
	case conversation.AwaitingDate:
		handleDateInput(ctx, b, message)
	default:
		handleUnknown(ctx, b, message)
	}
}

// handleUnknown answers input that fits no dialog. It never changes state.
func handleUnknown(ctx context.Context, b *bot.Bot, message *tgbotapi.Message) {
	rec, _ := b.Record(ctx, message.From.ID)
	b.Reply(message.Chat.ID, msgUseMenu, b.MainMenuKeyboard(rec))
}

func handleLoginButton(ctx context.Context, b *bot.Bot, message *tgbotapi.Message) {
	b.Dialogs.BeginLogin(message.From.ID)
	b.Reply(message.Chat.ID, msgAskLogin, tgbotapi.NewRemoveKeyboard(true))
}

func handleLoginInput(ctx context.Context, b *bot.Bot, message *tgbotapi.Message) {
	login := strings.TrimSpace(message.Text)
	if err := b.Dialogs.SubmitLogin(message.From.ID, login); err != nil {
		b.Reply(message.Chat.ID, "Логин не может быть пустым.", b.MainMenuKeyboard(nil))
		return
	}
	b.Reply(message.Chat.ID, msgAskPassword, nil)
}

func handlePasswordInput(ctx context.Context, b *bot.Bot, message *tgbotapi.Message) {
	userID := message.From.ID
	chatID := message.Chat.ID
	password := message.Text
	if password == "" {
		b.Dialogs.Reset(userID)
		handleUnknown(ctx, b, message)
		return
	}

	login, err := b.Dialogs.TakePassword(userID)
	if err != nil {
		handleUnknown(ctx, b, message)
		return
	}

	if err := b.DeleteMessage(chatID, message.MessageID); err != nil {
		zap.L().Warn("failed to delete password message", zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
	}

	rec, err := b.Guard.Login(ctx, userID, login, password)
	switch {
	case errors.Is(err, portal.ErrAuthFailure):
		b.Reply(chatID, msgLoginFailed, b.MainMenuKeyboard(nil))
		return
	case err != nil:
		zap.L().Error("login failed", zap.Int64(logger.FieldUserID, userID), zap.Error(err))
		b.Reply(chatID, msgTryLater, b.MainMenuKeyboard(nil))
		return
	}

	name := rec.Profile.FullName()
	if name == "" {
		name = rec.Login
	}
	b.Reply(chatID, fmt.Sprintf("Вы успешно вошли в систему, %s!", name), b.MainMenuKeyboard(&rec))
}

func handleLogout(ctx context.Context, b *bot.Bot, message *tgbotapi.Message) {
	if err := b.Guard.Logout(ctx, message.From.ID); err != nil {
		zap.L().Error("logout failed", zap.Int64(logger.FieldUserID, message.From.ID), zap.Error(err))
		b.Reply(message.Chat.ID, msgTryLater, nil)
		return
	}
	b.Reply(message.Chat.ID, msgLoggedOut, b.MainMenuKeyboard(nil))
}

func handleBack(ctx context.Context, b *bot.Bot, message *tgbotapi.Message) {
	rec, _ := b.Record(ctx, message.From.ID)
	b.Reply(message.Chat.ID, msgMainMenu, b.MainMenuKeyboard(rec))
}

func handleSocial(ctx context.Context, b *bot.Bot, message *tgbotapi.Message) {
	b.Reply(message.Chat.ID, msgSocial, nil)
}

func handleAbout(ctx context.Context, b *bot.Bot, message *tgbotapi.Message) {
	b.Reply(message.Chat.ID, msgAbout, nil)
}

func handleProfile(ctx context.Context, b *bot.Bot, message *tgbotapi.Message) {
	rec, ok := authorize(ctx, b, message)
	if !ok {
		return
	}

	var sb strings.Builder
	sb.WriteString("Профиль\n\n")
	fmt.Fprintf(&sb, "ФИО: %s\n", rec.Profile.FullName())
	fmt.Fprintf(&sb, "Логин: %s", rec.Login)
	if rec.Profile.Email != "" {
		fmt.Fprintf(&sb, "\nEmail: %s", rec.Profile.Email)
	}
	if rec.Profile.Position != "" {
		fmt.Fprintf(&sb, "\nДолжность: %s", rec.Profile.Position)
	}
	b.Reply(message.Chat.ID, sb.String(), b.MainMenuKeyboard(&rec))
}

func handleToggleNotifications(ctx context.Context, b *bot.Bot, message *tgbotapi.Message) {
	rec, err := b.Guard.ToggleNotifications(ctx, message.From.ID)
	if errors.Is(err, auth.ErrNotAuthenticated) {
		b.Reply(message.Chat.ID, msgLoginRequired, b.MainMenuKeyboard(nil))
		return
	}
	if err != nil {
		zap.L().Error("failed to toggle notifications", zap.Int64(logger.FieldUserID, message.From.ID), zap.Error(err))
		b.Reply(message.Chat.ID, msgTryLater, nil)
		return
	}

	text := "Уведомления выключены."
	if rec.NotificationsEnabled {
		text = "Уведомления включены. Расписание на завтра будет приходить каждый вечер."
	}
	b.Reply(message.Chat.ID, text, b.MainMenuKeyboard(&rec))
}

// authorize runs the auth guard for a protected action and tells the user
// what to do when it fails.
func authorize(ctx context.Context, b *bot.Bot, message *tgbotapi.Message) (models.UserRecord, bool) {
	return authorizeUser(ctx, b, message.From.ID, message.Chat.ID)
}

func authorizeUser(ctx context.Context, b *bot.Bot, userID, chatID int64) (models.UserRecord, bool) {
	rec, err := b.Guard.Authorize(ctx, userID)
	if err == nil {
		return rec, true
	}
	if errors.Is(err, auth.ErrNotAuthenticated) {
		b.Reply(chatID, msgLoginRequired, b.MainMenuKeyboard(nil))
	} else {
		zap.L().Error("authorization failed", zap.Int64(logger.FieldUserID, userID), zap.Error(err))
		b.Reply(chatID, msgTryLater, nil)
	}
	return models.UserRecord{}, false
}
