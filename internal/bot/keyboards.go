package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"kgeu-bot/internal/calendar"
	"kgeu-bot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Reply keyboard labels. Handlers route text messages by these.
const (
	BtnLogin         = "🔐 Войти"
	BtnLogout        = "🚪 Выйти"
	BtnSocial        = "🌐 Наши соц. сети"
	BtnAbout         = "ℹ️ Информация о боте"
	BtnProfilePrefix = "👤 "
	BtnSchedule      = "📅 Расписание"
	BtnGrades        = "📊 Баллы БРС"
	BtnTranscript    = "📚 Зачетная книжка"
	BtnNotifyOn      = "🔔 Включить уведомления"
	BtnNotifyOff     = "🔕 Выключить уведомления"
	BtnBack          = "⬅️ Вернуться в главное меню"

	BtnToday    = "На сегодня"
	BtnTomorrow = "На завтра"
	BtnWeek     = "На текущую неделю"
	BtnPickDate = "Выбрать по дате"
	BtnExport   = "Экспорт в Google Календарь"

	BtnGradesCurrent     = "Баллы текущего семестра"
	BtnGradesPick        = "Выбрать семестр БРС"
	BtnTranscriptCurrent = "Зачетная книжка текущего семестра"
	BtnTranscriptPick    = "Выбрать семестр зачетной книжки"

	SemesterPrefix = "Семестр "
)

// Inline callback payloads.
const (
	CallbackNoop  = "noop"
	callbackDate  = "date:"
	callbackMonth = "month:"
	dateLayout    = "2006-1-2"
	monthLayout   = "2006-1"
)

// MainMenuKeyboard shows the login entry for guests and the full menu for
// users with a stored session.
func (b *Bot) MainMenuKeyboard(rec *models.UserRecord) tgbotapi.ReplyKeyboardMarkup {
	if rec == nil {
		return tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnLogin)),
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnSocial)),
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnAbout)),
		)
	}

	notify := BtnNotifyOn
	if rec.NotificationsEnabled {
		notify = BtnNotifyOff
	}
	name := rec.Profile.ShortName()
	if name == "" {
		name = rec.Login
	}

	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnProfilePrefix+name),
			tgbotapi.NewKeyboardButton(BtnSchedule),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnGrades),
			tgbotapi.NewKeyboardButton(BtnTranscript),
		),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(notify)),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnSocial),
			tgbotapi.NewKeyboardButton(BtnAbout),
		),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnLogout)),
	)
}

func (b *Bot) ScheduleMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnToday),
			tgbotapi.NewKeyboardButton(BtnTomorrow),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnWeek),
			tgbotapi.NewKeyboardButton(BtnPickDate),
		),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnExport)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnBack)),
	)
}

func (b *Bot) GradesMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnGradesCurrent)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnGradesPick)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnBack)),
	)
}

func (b *Bot) TranscriptMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnTranscriptCurrent)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnTranscriptPick)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnBack)),
	)
}

// SemesterKeyboard lists the semesters two per row.
func (b *Bot) SemesterKeyboard(semesters []int) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	for i := 0; i < len(semesters); i += 2 {
		row := []tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton(SemesterPrefix + strconv.Itoa(semesters[i]))}
		if i+1 < len(semesters) {
			row = append(row, tgbotapi.NewKeyboardButton(SemesterPrefix+strconv.Itoa(semesters[i+1])))
		}
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnBack)))
	return tgbotapi.NewReplyKeyboard(rows...)
}

// ParseSemester reads a "Семестр N" button label.
func ParseSemester(text string) (int, bool) {
	if !strings.HasPrefix(text, SemesterPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(text, SemesterPrefix)))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// CalendarKeyboard renders a month as an inline date picker with
// previous/next month navigation.
func (b *Bot) CalendarKeyboard(year int, month time.Month) tgbotapi.InlineKeyboardMarkup {
	py, pm := calendar.ShiftMonth(year, month, -1)
	ny, nm := calendar.ShiftMonth(year, month, 1)

	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("<<", MonthCallback(py, pm)),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s %d", calendar.MonthName(month), year), CallbackNoop),
			tgbotapi.NewInlineKeyboardButtonData(">>", MonthCallback(ny, nm)),
		),
	}

	header := make([]tgbotapi.InlineKeyboardButton, 0, 7)
	for _, d := range calendar.WeekdayHeader {
		header = append(header, tgbotapi.NewInlineKeyboardButtonData(d, CallbackNoop))
	}
	rows = append(rows, header)

	for _, week := range calendar.MonthGrid(year, month) {
		row := make([]tgbotapi.InlineKeyboardButton, 0, 7)
		for _, day := range week {
			if day == 0 {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(" ", CallbackNoop))
				continue
			}
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(strconv.Itoa(day), DateCallback(year, month, day)))
		}
		rows = append(rows, row)
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// BackToCalendarKeyboard returns to the month the date was picked from.
func (b *Bot) BackToCalendarKeyboard(year int, month time.Month) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ К календарю", MonthCallback(year, month)),
		),
	)
}

func DateCallback(year int, month time.Month, day int) string {
	return fmt.Sprintf("%s%d-%d-%d", callbackDate, year, int(month), day)
}

func MonthCallback(year int, month time.Month) string {
	return fmt.Sprintf("%s%d-%d", callbackMonth, year, int(month))
}

// ParseDateCallback reads a "date:Y-M-D" payload as local midnight in loc.
func ParseDateCallback(data string, loc *time.Location) (time.Time, bool) {
	if !strings.HasPrefix(data, callbackDate) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(dateLayout, strings.TrimPrefix(data, callbackDate), loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseMonthCallback reads a "month:Y-M" payload.
func ParseMonthCallback(data string) (int, time.Month, bool) {
	if !strings.HasPrefix(data, callbackMonth) {
		return 0, 0, false
	}
	t, err := time.Parse(monthLayout, strings.TrimPrefix(data, callbackMonth))
	if err != nil {
		return 0, 0, false
	}
	return t.Year(), t.Month(), true
}
