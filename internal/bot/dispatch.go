package bot

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// HandlerFunc processes one update.
type HandlerFunc func(ctx context.Context, update tgbotapi.Update)

// Serve reads updates until ctx is done or the channel closes. Updates from
// one user are handled one at a time in arrival order; updates from different
// users run concurrently, at most maxConcurrent at once. Serve returns after
// every started handler has finished.
func (b *Bot) Serve(ctx context.Context, updates <-chan tgbotapi.Update, handle HandlerFunc) {
	d := &dispatcher{
		queues: make(map[int64][]tgbotapi.Update),
		sem:    semaphore.NewWeighted(b.maxConcurrent),
		handle: handle,
		log:    b.Log,
	}

	for {
		select {
		case <-ctx.Done():
			d.wg.Wait()
			return
		case update, ok := <-updates:
			if !ok {
				d.wg.Wait()
				return
			}
			d.enqueue(ctx, update)
		}
	}
}

type dispatcher struct {
	mu     sync.Mutex
	queues map[int64][]tgbotapi.Update
	wg     sync.WaitGroup
	sem    *semaphore.Weighted
	handle HandlerFunc
	log    *zap.Logger
}

// enqueue appends the update to its user's queue and starts a drainer for
// the queue when none is running.
func (d *dispatcher) enqueue(ctx context.Context, update tgbotapi.Update) {
	key := UserOf(update)

	d.mu.Lock()
	defer d.mu.Unlock()

	q, running := d.queues[key]
	d.queues[key] = append(q, update)
	if running {
		return
	}

	d.wg.Add(1)
	go d.drain(ctx, key)
}

func (d *dispatcher) drain(ctx context.Context, key int64) {
	defer d.wg.Done()

	for {
		d.mu.Lock()
		q := d.queues[key]
		if len(q) == 0 {
			delete(d.queues, key)
			d.mu.Unlock()
			return
		}
		update := q[0]
		d.queues[key] = q[1:]
		d.mu.Unlock()

		if err := d.sem.Acquire(ctx, 1); err != nil {
			d.mu.Lock()
			dropped := len(d.queues[key]) + 1
			delete(d.queues, key)
			d.mu.Unlock()
			d.log.Debug("dropping queued updates on shutdown", zap.Int("count", dropped))
			return
		}
		d.run(ctx, update)
		d.sem.Release(1)
	}
}

func (d *dispatcher) run(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("handler panicked", zap.Int("update_id", update.UpdateID), zap.Any("panic", r))
		}
	}()
	d.handle(ctx, update)
}

// UserOf returns the sender of the update, or 0 when it has none.
func UserOf(update tgbotapi.Update) int64 {
	switch {
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		return update.CallbackQuery.From.ID
	}
	return 0
}
