package bot

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"kgeu-bot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessenger struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
}

func (f *fakeMessenger) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeMessenger) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func textUpdate(id int, userID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: id,
		Message: &tgbotapi.Message{
			MessageID: id,
			From:      &tgbotapi.User{ID: userID},
			Chat:      &tgbotapi.Chat{ID: userID, Type: "private"},
			Text:      text,
		},
	}
}

func TestServeKeepsPerUserOrder(t *testing.T) {
	b := New(&fakeMessenger{}, Deps{MaxConcurrent: 4}, nil)

	var mu sync.Mutex
	seen := map[int64][]int{}
	handle := func(_ context.Context, u tgbotapi.Update) {
		time.Sleep(time.Millisecond)
		mu.Lock()
		defer mu.Unlock()
		id := UserOf(u)
		seen[id] = append(seen[id], u.UpdateID)
	}

	updates := make(chan tgbotapi.Update, 20)
	for i := 1; i <= 10; i++ {
		updates <- textUpdate(i, int64(i%2+1), "x")
	}
	close(updates)

	b.Serve(context.Background(), updates, handle)

	assert.Equal(t, []int{1, 3, 5, 7, 9}, seen[2])
	assert.Equal(t, []int{2, 4, 6, 8, 10}, seen[1])
}

func TestServeBoundsConcurrency(t *testing.T) {
	b := New(&fakeMessenger{}, Deps{MaxConcurrent: 2}, nil)

	var active, peak int32
	handle := func(_ context.Context, _ tgbotapi.Update) {
		n := atomic.AddInt32(&active, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&active, -1)
	}

	updates := make(chan tgbotapi.Update, 8)
	for i := 1; i <= 8; i++ {
		updates <- textUpdate(i, int64(i), "x")
	}
	close(updates)

	b.Serve(context.Background(), updates, handle)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&peak), int32(1))
}

func TestServeStopsOnCancel(t *testing.T) {
	b := New(&fakeMessenger{}, Deps{}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		b.Serve(ctx, make(chan tgbotapi.Update), func(context.Context, tgbotapi.Update) {})
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServeRecoversFromPanics(t *testing.T) {
	b := New(&fakeMessenger{}, Deps{}, nil)

	var calls int32
	updates := make(chan tgbotapi.Update, 2)
	updates <- textUpdate(1, 1, "boom")
	updates <- textUpdate(2, 1, "ok")
	close(updates)

	b.Serve(context.Background(), updates, func(_ context.Context, u tgbotapi.Update) {
		atomic.AddInt32(&calls, 1)
		if u.Message.Text == "boom" {
			panic("boom")
		}
	})
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestMainMenuKeyboard(t *testing.T) {
	b := New(&fakeMessenger{}, Deps{}, nil)

	guest := b.MainMenuKeyboard(nil)
	assert.Equal(t, BtnLogin, guest.Keyboard[0][0].Text)

	rec := &models.UserRecord{
		UserID:  1,
		Login:   "ivanov",
		Profile: models.Profile{LastName: "Иванов", FirstName: "Иван", ParentName: "Иванович"},
	}
	user := b.MainMenuKeyboard(rec)
	assert.Equal(t, BtnProfilePrefix+"Иванов И.И.", user.Keyboard[0][0].Text)
	assert.Equal(t, BtnNotifyOn, user.Keyboard[2][0].Text)

	rec.NotificationsEnabled = true
	assert.Equal(t, BtnNotifyOff, b.MainMenuKeyboard(rec).Keyboard[2][0].Text)
}

func TestCalendarKeyboardWrapsYear(t *testing.T) {
	b := New(&fakeMessenger{}, Deps{}, nil)

	kb := b.CalendarKeyboard(2025, time.January)
	nav := kb.InlineKeyboard[0]
	require.Len(t, nav, 3)
	assert.Equal(t, "month:2024-12", *nav[0].CallbackData)
	assert.Equal(t, "Январь 2025", nav[1].Text)
	assert.Equal(t, "month:2025-2", *nav[2].CallbackData)

	assert.Len(t, kb.InlineKeyboard[1], 7)

	// 2025-01-01 is a Wednesday.
	firstWeek := kb.InlineKeyboard[2]
	assert.Equal(t, CallbackNoop, *firstWeek[0].CallbackData)
	assert.Equal(t, CallbackNoop, *firstWeek[1].CallbackData)
	assert.Equal(t, "1", firstWeek[2].Text)
	assert.Equal(t, "date:2025-1-1", *firstWeek[2].CallbackData)
}

func TestCallbackPayloads(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)

	d, ok := ParseDateCallback(DateCallback(2024, time.October, 5), loc)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, time.October, 5, 0, 0, 0, 0, loc), d)

	y, m, ok := ParseMonthCallback(MonthCallback(2024, time.December))
	require.True(t, ok)
	assert.Equal(t, 2024, y)
	assert.Equal(t, time.December, m)

	_, ok = ParseDateCallback("date:2024-13-40", loc)
	assert.False(t, ok)
	_, _, ok = ParseMonthCallback("noop")
	assert.False(t, ok)
}

func TestParseSemester(t *testing.T) {
	n, ok := ParseSemester("Семестр 3")
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	_, ok = ParseSemester("Семестр x")
	assert.False(t, ok)
	_, ok = ParseSemester("3")
	assert.False(t, ok)

	kb := New(&fakeMessenger{}, Deps{}, nil).SemesterKeyboard([]int{1, 2, 3})
	require.Len(t, kb.Keyboard, 3)
	assert.Equal(t, "Семестр 3", kb.Keyboard[1][0].Text)
	assert.Equal(t, BtnBack, kb.Keyboard[2][0].Text)
}

func TestSendHelpers(t *testing.T) {
	m := &fakeMessenger{}
	b := New(m, Deps{}, nil)

	require.NoError(t, b.SendMessage(7, "hi", nil))
	require.NoError(t, b.SendDocument(7, "schedule.csv", []byte("a,b\n"), "cap"))
	require.NoError(t, b.DeleteMessage(7, 3))
	require.NoError(t, b.EditMessage(7, 3, "edited", b.CalendarKeyboard(2024, time.May)))

	require.Len(t, m.sent, 4)
	msg := m.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, "hi", msg.Text)

	doc := m.sent[1].(tgbotapi.DocumentConfig)
	assert.Equal(t, "cap", doc.Caption)
	assert.Equal(t, "schedule.csv", doc.File.(tgbotapi.FileBytes).Name)

	del := m.sent[2].(tgbotapi.DeleteMessageConfig)
	assert.Equal(t, 3, del.MessageID)

	edit := m.sent[3].(tgbotapi.EditMessageTextConfig)
	assert.Equal(t, "edited", edit.Text)
	assert.NotNil(t, edit.ReplyMarkup)
}
