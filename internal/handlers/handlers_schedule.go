package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kgeu-bot/internal/bot"
	"kgeu-bot/internal/calendar"
	"kgeu-bot/internal/conversation"
	"kgeu-bot/internal/models"
	"kgeu-bot/internal/schedule"
	"kgeu-bot/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	msgPickDate   = "Выберите дату в календаре или введите её в формате ДД.ММ.ГГГГ:"
	msgBadDate    = "Не удалось распознать дату. Нажмите \"" + bot.BtnPickDate + "\", чтобы попробовать снова."
	msgExporting  = "Собираю расписание на весь семестр, это может занять немного времени..."
	msgNoGrades   = "Не удалось получить данные БРС. Попробуйте позже."
	msgNoRecord   = "Не удалось получить данные зачетной книжки. Попробуйте позже."
	msgNoSemester = "Не удалось получить список семестров. Попробуйте позже."
)

func handleScheduleMenu(ctx context.Context, b *bot.Bot, message *tgbotapi.Message) {
	if _, ok := authorize(ctx, b, message); !ok {
		return
	}
	b.Reply(message.Chat.ID, "Выберите период:", b.ScheduleMenuKeyboard())
}

func handleToday(ctx context.Context, b *bot.Bot, message *tgbotapi.Message) {
	sendDay(ctx, b, message, b.Now(), "На сегодня")
}

func handleTomorrow(ctx context.Context, b *bot.Bot, message *tgbotapi.Message) {
	sendDay(ctx, b, message, b.Now().AddDate(0, 0, 1), "На завтра")
}

func sendDay(ctx context.Context, b *bot.Bot, message *tgbotapi.Message, day time.Time, label string) {
	rec, ok := authorize(ctx, b, message)
	if !ok {
		return
	}

	entries := b.Schedule.ForDay(ctx, rec.Token, day)
	if len(entries) == 0 {
		b.Reply(message.Chat.ID, label+" расписания нет.", b.ScheduleMenuKeyboard())
		return
	}
	b.Reply(message.Chat.ID, b.Schedule.Format(entries), b.ScheduleMenuKeyboard())
}

func handleWeek(ctx context.Context, b *bot.Bot, message *tgbotapi.Message) {
	rec, ok := authorize(ctx, b, message)
	if !ok {
		return
	}

	entries := b.Schedule.ForWeek(ctx, rec.Token, b.Now())
	if len(entries) == 0 {
		b.Reply(message.Chat.ID, "На эту неделю расписания нет.", b.ScheduleMenuKeyboard())
		return
	}
	b.Reply(message.Chat.ID, "Расписание на неделю:\n\n"+b.Schedule.Format(entries), b.ScheduleMenuKeyboard())
}

func handlePickDate(ctx context.Context, b *bot.Bot, message *tgbotapi.Message) {
	if _, ok := authorize(ctx, b, message); !ok {
		return
	}

	b.Dialogs.BeginDateEntry(message.From.ID)
	now := b.Now().In(b.Schedule.Resolver().Location)
	b.Reply(message.Chat.ID, msgPickDate, b.CalendarKeyboard(now.Year(), now.Month()))
}

func handleDateInput(ctx context.Context, b *bot.Bot, message *tgbotapi.Message) {
	day, err := b.Schedule.Resolver().ParseDate(message.Text, b.Now())
	if err != nil {
		b.Dialogs.Reset(message.From.ID)
		b.Reply(message.Chat.ID, msgBadDate, b.ScheduleMenuKeyboard())
		return
	}
	if err := b.Dialogs.TakeDateEntry(message.From.ID); err != nil {
		handleUnknown(ctx, b, message)
		return
	}

	rec, ok := authorize(ctx, b, message)
	if !ok {
		return
	}
	b.Reply(message.Chat.ID, daySchedule(ctx, b, rec, day), b.ScheduleMenuKeyboard())
}

func daySchedule(ctx context.Context, b *bot.Bot, rec models.UserRecord, day time.Time) string {
	loc := b.Schedule.Resolver().Location
	header := fmt.Sprintf("Расписание на %s (%s):\n\n", day.In(loc).Format("02.01.2006"), calendar.WeekdayName(day.In(loc).Weekday()))
	return header + b.Schedule.Format(b.Schedule.ForDay(ctx, rec.Token, day))
}

func handleExport(ctx context.Context, b *bot.Bot, message *tgbotapi.Message) {
	rec, ok := authorize(ctx, b, message)
	if !ok {
		return
	}
	b.Reply(message.Chat.ID, msgExporting, nil)

	data, err := b.Schedule.ExportCSV(ctx, rec.Token)
	if err != nil {
		zap.L().Error("schedule export failed", zap.Int64(logger.FieldUserID, rec.UserID), zap.Error(err))
		b.Reply(message.Chat.ID, msgTryLater, b.ScheduleMenuKeyboard())
		return
	}

	caption := "Файл для импорта в Google Календарь: calendar.google.com → Настройки → Импорт."
	if err := b.SendDocument(message.Chat.ID, "schedule.csv", data, caption); err != nil {
		zap.L().Error("failed to send export", zap.Int64(logger.FieldChatID, message.Chat.ID), zap.Error(err))
		b.Reply(message.Chat.ID, msgTryLater, b.ScheduleMenuKeyboard())
	}
}

func handleGradesMenu(ctx context.Context, b *bot.Bot, message *tgbotapi.Message) {
	if _, ok := authorize(ctx, b, message); !ok {
		return
	}
	b.Reply(message.Chat.ID, "Баллы БРС:", b.GradesMenuKeyboard())
}

func handleTranscriptMenu(ctx context.Context, b *bot.Bot, message *tgbotapi.Message) {
	if _, ok := authorize(ctx, b, message); !ok {
		return
	}
	b.Reply(message.Chat.ID, "Зачетная книжка:", b.TranscriptMenuKeyboard())
}

func handleGradesCurrent(ctx context.Context, b *bot.Bot, message *tgbotapi.Message) {
	sendReport(ctx, b, message, conversation.PurposeGrades, 0)
}

func handleTranscriptCurrent(ctx context.Context, b *bot.Bot, message *tgbotapi.Message) {
	sendReport(ctx, b, message, conversation.PurposeTranscript, 0)
}

func handleGradesPick(ctx context.Context, b *bot.Bot, message *tgbotapi.Message) {
	askSemester(ctx, b, message, conversation.PurposeGrades)
}

func handleTranscriptPick(ctx context.Context, b *bot.Bot, message *tgbotapi.Message) {
	askSemester(ctx, b, message, conversation.PurposeTranscript)
}

func askSemester(ctx context.Context, b *bot.Bot, message *tgbotapi.Message, purpose conversation.Purpose) {
	rec, ok := authorize(ctx, b, message)
	if !ok {
		return
	}

	semesters, err := b.Records.Semesters(ctx, rec.Token)
	if err != nil || len(semesters) == 0 {
		if err != nil {
			zap.L().Warn("failed to list semesters", zap.Int64(logger.FieldUserID, rec.UserID), zap.Error(err))
		}
		b.Reply(message.Chat.ID, msgNoSemester, b.MainMenuKeyboard(&rec))
		return
	}

	b.Dialogs.BeginSemesterChoice(message.From.ID, purpose)
	b.Reply(message.Chat.ID, "Выберите семестр:", b.SemesterKeyboard(semesters))
}

func handleSemesterInput(ctx context.Context, b *bot.Bot, message *tgbotapi.Message) {
	semester, ok := bot.ParseSemester(strings.TrimSpace(message.Text))
	if !ok {
		b.Dialogs.Reset(message.From.ID)
		handleUnknown(ctx, b, message)
		return
	}

	purpose, err := b.Dialogs.TakeSemesterChoice(message.From.ID)
	if err != nil {
		handleUnknown(ctx, b, message)
		return
	}
	sendReport(ctx, b, message, purpose, semester)
}

// sendReport renders a BRS or record book report; semester 0 is the current one.
func sendReport(ctx context.Context, b *bot.Bot, message *tgbotapi.Message, purpose conversation.Purpose, semester int) {
	rec, ok := authorize(ctx, b, message)
	if !ok {
		return
	}
	log := zap.L().With(zap.Int64(logger.FieldUserID, rec.UserID), zap.Int(logger.FieldSemester, semester))

	var text string
	switch purpose {
	case conversation.PurposeTranscript:
		t, err := b.Records.Transcript(ctx, rec.Token, semester)
		if err != nil {
			log.Warn("failed to fetch record book", zap.Error(err))
			b.Reply(message.Chat.ID, msgNoRecord, b.MainMenuKeyboard(&rec))
			return
		}
		text = schedule.FormatTranscript(t)
	default:
		r, err := b.Records.Grades(ctx, rec.Token, semester)
		if err != nil {
			log.Warn("failed to fetch grades", zap.Error(err))
			b.Reply(message.Chat.ID, msgNoGrades, b.MainMenuKeyboard(&rec))
			return
		}
		text = schedule.FormatGrades(r)
	}
	b.Reply(message.Chat.ID, text, b.MainMenuKeyboard(&rec))
}

// HandleCallbackQuery serves the inline date picker.
func HandleCallbackQuery(ctx context.Context, b *bot.Bot, callback *tgbotapi.CallbackQuery) {
	if err := b.AnswerCallbackQuery(callback.ID, ""); err != nil {
		zap.L().Debug("failed to answer callback", zap.Error(err))
	}
	if callback.Message == nil || callback.From == nil {
		return
	}

	data := callback.Data
	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID
	loc := b.Schedule.Resolver().Location

	if data == bot.CallbackNoop {
		return
	}

	if year, month, ok := bot.ParseMonthCallback(data); ok {
		if err := b.EditMessage(chatID, messageID, msgPickDate, b.CalendarKeyboard(year, month)); err != nil {
			zap.L().Warn("failed to update calendar", zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
		}
		return
	}

	day, ok := bot.ParseDateCallback(data, loc)
	if !ok {
		zap.L().Debug("unknown callback data", zap.String("data", data))
		return
	}

	// A picked date also closes a typed-date dialog.
	_ = b.Dialogs.TakeDateEntry(callback.From.ID)

	rec, ok := authorizeUser(ctx, b, callback.From.ID, chatID)
	if !ok {
		return
	}

	text := daySchedule(ctx, b, rec, day)
	if err := b.EditMessage(chatID, messageID, text, b.BackToCalendarKeyboard(day.Year(), day.Month())); err != nil {
		zap.L().Warn("failed to show picked day", zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
	}
}
