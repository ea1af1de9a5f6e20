package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/example/vocabplan/internal/ai"
	"github.com/example/vocabplan/internal/bot"
	"github.com/example/vocabplan/internal/config"
	"github.com/example/vocabplan/internal/database"
	"github.com/example/vocabplan/internal/excel"
	"github.com/example/vocabplan/internal/logging"
	"github.com/example/vocabplan/internal/planner"
	"github.com/example/vocabplan/internal/quiz"
	"github.com/example/vocabplan/internal/reviewclock"
	"github.com/example/vocabplan/internal/scheduler"
	"github.com/example/vocabplan/internal/spaced_repetition"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("vocabplan stopped with error", zap.Error(err))
	}
	logger.Info("vocabplan stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := reviewclock.ParseLocation(cfg.Timezone)
	if err != nil {
		return err
	}
	clock := reviewclock.New(loc)

	db, err := database.Connect(cfg.DBType, cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()
	repos := database.NewRepositories(db)

	alloc := quiz.NewAllocator(nil)
	builder := quiz.NewBuilder(alloc, nil)
	if cfg.OpenAIKey != "" {
		chatGPT, err := ai.New(ai.Config{APIKey: cfg.OpenAIKey, Model: cfg.OpenAIModel}, repos.Words, logger.Named("ai"))
		if err != nil {
			return err
		}
		builder = quiz.NewBuilder(alloc, chatGPT)
	}

	gen := planner.NewGenerator(planner.NewStores(repos), planner.Options{
		Clock:  clock,
		Policy: spaced_repetition.NewPolicy(clock),
		Classifier: spaced_repetition.Classifier{
			MasteryThreshold:   cfg.MasteryThreshold,
			DifficultThreshold: cfg.DifficultThreshold,
			AccuracyWindow:     cfg.AccuracyWindow,
		},
		Allocator:         alloc,
		Workers:           cfg.GenerateWorkers,
		DefaultDailyLimit: cfg.DefaultWordsPerDay,
		Logger:            logger.Named("planner"),
	})

	var (
		b        *bot.Bot
		notifier scheduler.Notifier
	)
	if cfg.TelegramToken != "" {
		api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
		if err != nil {
			return err
		}
		logger.Info("authorized on telegram", zap.String("account", api.Self.UserName))

		botCfg := bot.DefaultConfig()
		botCfg.AdminUserIDs = cfg.AdminUserIDs
		b, err = bot.New(bot.Deps{
			API:      api,
			Planner:  gen,
			Students: repos.Students,
			Words:    repos.Words,
			Stats:    repos.Statistics,
			Importer: excel.NewImporter(repos, logger.Named("import")),
			Builder:  builder,
			Clock:    clock,
			Logger:   logger.Named("bot"),
		}, botCfg)
		if err != nil {
			return err
		}
		notifier = b
	} else {
		logger.Warn("TELEGRAM_BOT_TOKEN is not set, running without the bot")
	}

	if cfg.EnableScheduler {
		sched := scheduler.New(repos.Students, gen, notifier, clock, cfg.DailyTaskHour, logger.Named("scheduler"))
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
	}

	if b == nil {
		<-ctx.Done()
		return nil
	}

	errCh := make(chan error, 1)
	go func() { errCh <- b.Start(ctx) }()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	case <-time.After(5 * time.Second):
		logger.Warn("bot did not stop in time")
	}
	return nil
}
