package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"kgeu-bot/internal/auth"
	"kgeu-bot/internal/bot"
	"kgeu-bot/internal/calendar"
	"kgeu-bot/internal/config"
	"kgeu-bot/internal/conversation"
	"kgeu-bot/internal/credentials"
	"kgeu-bot/internal/database"
	"kgeu-bot/internal/handlers"
	"kgeu-bot/internal/notify"
	"kgeu-bot/internal/portal"
	"kgeu-bot/internal/schedule"
	"kgeu-bot/internal/session"
	"kgeu-bot/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	_ "time/tzdata"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	zapLogger, err := logger.New(&cfg.Logger, logger.DefaultServiceName)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to init logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = zapLogger.Sync() }()
	zap.ReplaceGlobals(zapLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, zapLogger)
	if err != nil {
		zap.L().Fatal("Failed to open session store", zap.String(logger.FieldDriver, cfg.StoreDriver), zap.Error(err))
	}

	var sealer *credentials.Sealer
	if cfg.CredentialsKey != "" {
		if sealer, err = credentials.NewSealer(cfg.CredentialsKey); err != nil {
			zap.L().Fatal("Invalid CREDENTIALS_KEY", zap.Error(err))
		}
	} else {
		zap.L().Info("CREDENTIALS_KEY not set, passwords are kept in memory only")
	}

	client := portal.NewClient(cfg.PortalBaseURL, cfg.PortalTimeout, zapLogger)
	guard := auth.NewGuard(store, client, credentials.NewCache(), sealer, zapLogger)
	resolver := calendar.NewResolver(cfg.TermStart, cfg.FirstWeek, cfg.Location)
	svc := schedule.NewService(client, resolver, zapLogger,
		schedule.WithLastWeek(cfg.LastWeek),
		schedule.WithWorkers(cfg.ExportWorkers),
	)

	api, err := bot.NewAPI(cfg.BotToken, cfg.BotAPIEndpoint)
	if err != nil {
		zap.L().Fatal("Failed to create bot", zap.Error(err))
	}
	zap.L().Info("Authorized on account", zap.String("username", api.Self.UserName))

	b := bot.New(api, bot.Deps{
		Store:         store,
		Guard:         guard,
		Dialogs:       conversation.NewMachine(cfg.DialogTTL),
		Schedule:      svc,
		Records:       client,
		MaxConcurrent: cfg.MaxConcurrentUpdates,
	}, zapLogger)

	notifier := notify.New(store, guard, svc, b, cfg.NotifyAt, zapLogger)
	notifyDone := make(chan struct{})
	go func() {
		defer close(notifyDone)
		notifier.Run(ctx)
	}()

	zap.L().Info("Bot started successfully")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)

	b.Serve(ctx, updates, func(ctx context.Context, update tgbotapi.Update) {
		handlers.HandleUpdate(ctx, b, update)
	})

	api.StopReceivingUpdates()
	<-notifyDone

	if err := closeStore(); err != nil {
		zap.L().Error("Shutdown finished with errors", zap.Error(err))
		return
	}
	zap.L().Info("Bot stopped")
}

// openStore returns the configured session store and its close function.
func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (session.Store, func() error, error) {
	if cfg.StoreDriver == config.StoreMemory {
		log.Warn("using in-memory session store, sessions are lost on restart")
		return session.NewMemory(), func() error { return nil }, nil
	}

	db, err := database.New(ctx, cfg.Database, log)
	if err != nil {
		return nil, nil, err
	}

	log.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		return nil, nil, multierr.Append(err, db.Close())
	}
	return db, db.Close, nil
}
