// Package bot is the Telegram front end: students answer their daily tasks
// and admins generate plans or import sheets.
package bot

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/example/vocabplan/internal/database"
	"github.com/example/vocabplan/internal/excel"
	"github.com/example/vocabplan/internal/planner"
	"github.com/example/vocabplan/internal/quiz"
	"github.com/example/vocabplan/internal/reviewclock"
	"github.com/example/vocabplan/pkg/models"
)

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// API is the part of *tgbotapi.BotAPI the bot uses
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	GetFileDirectURL(fileID string) (string, error)
}

// Planner schedules and grades study work
type Planner interface {
	GenerateBatch(ctx context.Context, req planner.BatchRequest) (*planner.BatchResult, error)
	BuildDailyBatch(ctx context.Context, studentID int64, limit int) (*models.DailyTaskBatch, error)
	SubmitAnswer(ctx context.Context, sub planner.AnswerSubmission) (*planner.AnswerResult, error)
	MarkInterrupted(ctx context.Context, studentID, wordID int64) (bool, error)
}

// StudentStore links chats to students
type StudentStore interface {
	GetByID(ctx context.Context, id int64) (*models.Student, error)
	GetByStudentNumber(ctx context.Context, number string) (*models.Student, error)
	GetByTelegramChatID(ctx context.Context, chatID int64) (*models.Student, error)
	LinkTelegram(ctx context.Context, studentID, chatID int64) error
}

// WordStore reads the catalog
type WordStore interface {
	GetAll(ctx context.Context) ([]models.Word, error)
	GetByID(ctx context.Context, id int64) (*models.Word, error)
}

// StatsStore reads progress figures
type StatsStore interface {
	GetStudentStats(ctx context.Context, studentID int64, dueBefore time.Time) (*models.StudentStats, error)
	GetClassSummaries(ctx context.Context) ([]database.ClassSummary, error)
}

// Importer loads sheets uploaded by admins
type Importer interface {
	ImportWords(ctx context.Context, cfg excel.ImportConfig) (*excel.ImportResult, error)
	ImportStudents(ctx context.Context, cfg excel.ImportConfig) (*excel.ImportResult, error)
}

// Deps are the collaborators of a Bot
type Deps struct {
	API        API
	Planner    Planner
	Students   StudentStore
	Words      WordStore
	Stats      StatsStore
	Importer   Importer
	Builder    *quiz.Builder
	Clock      reviewclock.Clock
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Bot represents the Telegram bot application
type Bot struct {
	api      API
	planner  Planner
	students StudentStore
	words    WordStore
	stats    StatsStore
	importer Importer
	builder  *quiz.Builder
	clock    reviewclock.Clock
	http     *http.Client
	config   BotConfig
	logger   *zap.Logger

	sessions *sessionStore

	uploadsMu      sync.Mutex
	awaitingUpload map[int64]string // chat -> import kind

	wg sync.WaitGroup
}

// New creates a new bot instance
func New(deps Deps, config BotConfig) (*Bot, error) {
	if deps.API == nil {
		return nil, fmt.Errorf("bot: telegram API is required")
	}
	if deps.Planner == nil || deps.Students == nil || deps.Words == nil {
		return nil, fmt.Errorf("bot: planner, students and words are required")
	}
	if deps.Builder == nil {
		deps.Builder = quiz.NewBuilder(quiz.NewAllocator(nil), nil)
	}
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if config.SessionTTL <= 0 {
		config.SessionTTL = DefaultConfig().SessionTTL
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = DefaultConfig().SweepInterval
	}

	return &Bot{
		api:            deps.API,
		planner:        deps.Planner,
		students:       deps.Students,
		words:          deps.Words,
		stats:          deps.Stats,
		importer:       deps.Importer,
		builder:        deps.Builder,
		clock:          deps.Clock,
		http:           deps.HTTPClient,
		config:         config,
		logger:         deps.Logger,
		sessions:       newSessionStore(config.SessionTTL),
		awaitingUpload: make(map[int64]string),
	}, nil
}

// Start polls for updates until ctx is cancelled
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = b.config.UpdateTimeout

	updates := b.api.GetUpdatesChan(updateConfig)
	go b.sweepLoop(ctx)

	b.logger.Info("bot started")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return nil
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.handleUpdate(ctx, update)
			}()
		}
	}
}

// SendReminder tells a linked student that tasks are waiting
func (b *Bot) SendReminder(ctx context.Context, student models.Student, pending int) error {
	if !student.TelegramChatID.Valid {
		return nil
	}
	msg := tgbotapi.NewMessage(student.TelegramChatID.Int64,
		fmt.Sprintf("Hi %s! You have %d %s to review today.", student.Name, pending, plural(pending, "word", "words")))
	msg.ReplyMarkup = createKeyboard([][]MenuButton{{{Text: "▶️ Start", CallbackData: callbackToday}}})
	_, err := b.api.Send(msg)
	return err
}

// SweepExpired closes questions left unanswered past the TTL and reports
// them as interrupted. It returns how many were closed.
func (b *Bot) SweepExpired(ctx context.Context) int {
	expired := b.sessions.sweep(b.clock.Now())
	for _, sess := range expired {
		b.interrupt(ctx, sess)
	}
	return len(expired)
}

func (b *Bot) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(b.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := b.SweepExpired(ctx); n > 0 {
				b.logger.Info("expired questions closed", zap.Int("count", n))
			}
		}
	}
}

func (b *Bot) interrupt(ctx context.Context, sess session) {
	changed, err := b.planner.MarkInterrupted(ctx, sess.StudentID, sess.Question.WordID)
	if err != nil {
		b.logger.Error("failed to mark word interrupted",
			zap.Int64("student_id", sess.StudentID),
			zap.Int64("word_id", sess.Question.WordID),
			zap.Error(err),
		)
		return
	}
	if changed {
		b.logger.Debug("word interrupted", zap.Int64("student_id", sess.StudentID), zap.Int64("word_id", sess.Question.WordID))
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	var (
		chatID int64
		err    error
	)
	switch {
	case update.CallbackQuery != nil:
		if update.CallbackQuery.Message != nil {
			chatID = update.CallbackQuery.Message.Chat.ID
		}
		err = b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		chatID = update.Message.Chat.ID
		switch {
		case update.Message.Document != nil:
			err = b.handleDocument(ctx, update.Message)
		case update.Message.IsCommand():
			err = b.HandleCommand(ctx, update.Message)
		default:
			err = b.handleText(ctx, update.Message)
		}
	default:
		return
	}

	if err != nil {
		b.logger.Error("failed to handle update", zap.Int("update_id", update.UpdateID), zap.Int64("chat_id", chatID), zap.Error(err))
		if chatID != 0 {
			_ = b.reply(chatID, "❌ Something went wrong. Please try again later.")
		}
	}
}

func (b *Bot) reply(chatID int64, text string) error {
	_, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
