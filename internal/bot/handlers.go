package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/example/vocabplan/internal/database"
	"github.com/example/vocabplan/internal/excel"
	"github.com/example/vocabplan/internal/planner"
	"github.com/example/vocabplan/internal/quiz"
	"github.com/example/vocabplan/pkg/models"
)

const (
	callbackToday  = "today"
	callbackAnswer = "ans:"

	importWords    = "words"
	importStudents = "students"

	maxReportedErrors = 10
)

var errNotLinked = errors.New("chat is not linked to a student")

// HandleCommand processes bot commands
func (b *Bot) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID

	switch message.Command() {
	case "start":
		return b.handleStart(ctx, message)
	case "help":
		return b.handleHelp(message)
	case "today":
		return b.withStudent(ctx, chatID, func(st *models.Student) error {
			return b.askNext(ctx, chatID, st.ID)
		})
	case "stats":
		return b.withStudent(ctx, chatID, func(st *models.Student) error {
			return b.handleStats(ctx, chatID, st)
		})
	case "generate", "import", "classes":
		if message.From == nil || !b.config.isAdmin(message.From.ID) {
			return b.reply(chatID, "This command is only available for administrators.")
		}
		switch message.Command() {
		case "generate":
			return b.handleGenerate(ctx, message)
		case "classes":
			return b.handleClasses(ctx, chatID)
		}
		return b.handleImport(message)
	default:
		return b.reply(chatID, "Unknown command. Use /help to see what I can do.")
	}
}

// withStudent runs fn for the student linked to the chat
func (b *Bot) withStudent(ctx context.Context, chatID int64, fn func(*models.Student) error) error {
	student, err := b.studentForChat(ctx, chatID)
	if errors.Is(err, errNotLinked) {
		return b.reply(chatID, "This chat is not linked yet. Send /start <your student number>.")
	}
	if err != nil {
		return err
	}
	return fn(student)
}

func (b *Bot) studentForChat(ctx context.Context, chatID int64) (*models.Student, error) {
	student, err := b.students.GetByTelegramChatID(ctx, chatID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, errNotLinked
	}
	if err != nil {
		return nil, fmt.Errorf("load student for chat %d: %w", chatID, err)
	}
	if !student.IsActive {
		return nil, errNotLinked
	}
	return student, nil
}

func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	number := strings.TrimSpace(message.CommandArguments())

	if number == "" {
		student, err := b.studentForChat(ctx, chatID)
		switch {
		case err == nil:
			return b.reply(chatID, fmt.Sprintf("Welcome back, %s! Send /today to practise.", student.Name))
		case errors.Is(err, errNotLinked):
			return b.reply(chatID, "👋 Welcome! Send /start <your student number> to link this chat.")
		default:
			return err
		}
	}

	student, err := b.students.GetByStudentNumber(ctx, number)
	if errors.Is(err, database.ErrNotFound) || (err == nil && !student.IsActive) {
		return b.reply(chatID, fmt.Sprintf("No student with number %s. Please check with your teacher.", number))
	}
	if err != nil {
		return err
	}
	if student.TelegramChatID.Valid && student.TelegramChatID.Int64 != chatID {
		return b.reply(chatID, "This student number is already linked to another chat.")
	}

	if err := b.students.LinkTelegram(ctx, student.ID, chatID); err != nil {
		return err
	}
	b.logger.Info("chat linked", zap.Int64("student_id", student.ID), zap.Int64("chat_id", chatID))
	return b.reply(chatID, fmt.Sprintf("✅ Hello, %s! Your chat is linked. Send /today to start today's words.", student.Name))
}

func (b *Bot) handleHelp(message *tgbotapi.Message) error {
	text := "📚 Commands\n\n" +
		"/start <number> - link this chat to your student number\n" +
		"/today - answer today's words\n" +
		"/stats - see your progress\n" +
		"/help - show this message"
	if message.From != nil && b.config.isAdmin(message.From.ID) {
		text += "\n\nAdmin\n" +
			"/classes - list classes and their progress\n" +
			"/generate <class id> - plan every word for a class\n" +
			"/import words|students - upload an .xlsx or .csv file"
	}
	return b.reply(message.Chat.ID, text)
}

func (b *Bot) handleStats(ctx context.Context, chatID int64, student *models.Student) error {
	if b.stats == nil {
		return b.reply(chatID, "Statistics are not available.")
	}
	tomorrow := b.clock.AddDays(b.clock.Today(), 1)
	stats, err := b.stats.GetStudentStats(ctx, student.ID, tomorrow)
	if err != nil {
		return err
	}

	accuracy := 0.0
	if stats.TotalAnswers > 0 {
		accuracy = float64(stats.CorrectAnswers) / float64(stats.TotalAnswers) * 100
	}
	text := fmt.Sprintf("📊 %s's progress\n\n"+
		"Words planned: %d\n"+
		"Mastered: %d (%.0f%%)\n"+
		"Difficult: %d\n"+
		"Due today: %d\n"+
		"Answers: %d (%.0f%% correct)",
		student.Name,
		stats.TotalWords,
		stats.MasteredWords, stats.CompletionPercentage(),
		stats.DifficultWords,
		stats.DueToday,
		stats.TotalAnswers, accuracy,
	)
	return b.reply(chatID, text)
}

// askNext sends the first unanswered task of today's batch
func (b *Bot) askNext(ctx context.Context, chatID, studentID int64) error {
	batch, err := b.planner.BuildDailyBatch(ctx, studentID, 0)
	if err != nil {
		return err
	}

	pending := batch.Pending()
	if len(pending) == 0 {
		if len(batch.Tasks) == 0 {
			return b.reply(chatID, "No words are due today. 🎉")
		}
		return b.reply(chatID, fmt.Sprintf("🎉 All %d words done for today. See you tomorrow!", len(batch.Tasks)))
	}

	task := pending[0]
	word, err := b.words.GetByID(ctx, task.WordID)
	if err != nil {
		return fmt.Errorf("load word %d: %w", task.WordID, err)
	}
	pool, err := b.words.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load word pool: %w", err)
	}

	q, ok := b.builder.For(ctx, *word, pool, task.QuestionType)
	if !ok {
		return fmt.Errorf("no question available for word %d", word.ID)
	}

	b.sessions.put(chatID, session{StudentID: studentID, Question: q, AskedAt: b.clock.Now()})
	position := len(batch.Tasks) - len(pending) + 1
	return b.sendQuestion(chatID, q, position, len(batch.Tasks))
}

func (b *Bot) sendQuestion(chatID int64, q quiz.Question, position, total int) error {
	if q.Type == models.Listening && q.AudioURL != "" {
		if _, err := b.api.Send(tgbotapi.NewAudio(chatID, tgbotapi.FileURL(q.AudioURL))); err != nil {
			b.logger.Warn("failed to send audio", zap.String("url", q.AudioURL), zap.Error(err))
		}
	}

	var text string
	switch q.Type {
	case models.EnglishToChinese:
		text = fmt.Sprintf("What does \"%s\" mean?", q.Prompt)
	case models.ChineseToEnglish:
		text = fmt.Sprintf("Which English word means \"%s\"?", q.Prompt)
	case models.Listening:
		text = "🎧 " + q.Prompt
	default:
		text = "✏️ Fill in the blank:\n\n" + q.Prompt + "\n\nType the missing word."
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Word %d of %d\n\n%s", position, total, text))
	if q.Type.IsChoice() {
		rows := make([][]MenuButton, len(q.Options))
		for i, opt := range q.Options {
			rows[i] = []MenuButton{{Text: opt, CallbackData: fmt.Sprintf("%s%d:%d", callbackAnswer, q.WordID, i)}}
		}
		msg.ReplyMarkup = createKeyboard(rows)
	}
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.logger.Warn("failed to answer callback", zap.Error(err))
	}
	if callback.Message == nil {
		return nil
	}
	chatID := callback.Message.Chat.ID

	switch {
	case callback.Data == callbackToday:
		return b.withStudent(ctx, chatID, func(st *models.Student) error {
			return b.askNext(ctx, chatID, st.ID)
		})
	case strings.HasPrefix(callback.Data, callbackAnswer):
		wordID, idx, err := parseAnswerData(callback.Data)
		if err != nil {
			return b.reply(chatID, "Unknown answer.")
		}
		return b.answer(ctx, chatID, wordID, func(q quiz.Question) bool { return q.CheckOption(idx) })
	default:
		return nil
	}
}

func (b *Bot) handleText(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	if _, ok := b.sessions.peek(chatID, b.clock.Now()); !ok {
		return b.reply(chatID, "Send /today to practise or /help to see the commands.")
	}
	text := message.Text
	return b.answer(ctx, chatID, 0, func(q quiz.Question) bool { return q.CheckText(text) })
}

// answer grades the chat's open question. wordID 0 accepts whatever is open.
func (b *Bot) answer(ctx context.Context, chatID, wordID int64, grade func(quiz.Question) bool) error {
	sess, ok, expired := b.sessions.take(chatID, b.clock.Now())
	if expired {
		b.interrupt(ctx, sess)
		return b.reply(chatID, "⌛ That question has expired. Send /today to continue.")
	}
	if !ok {
		return b.reply(chatID, "This question is no longer active. Send /today to continue.")
	}
	if wordID != 0 && sess.Question.WordID != wordID {
		b.sessions.put(chatID, sess)
		return b.reply(chatID, "This question is no longer active.")
	}

	q := sess.Question
	correct := grade(q)
	res, err := b.planner.SubmitAnswer(ctx, planner.AnswerSubmission{
		StudentID:    sess.StudentID,
		WordID:       q.WordID,
		QuestionType: q.Type,
		Correct:      correct,
	})
	if err != nil {
		return err
	}

	var feedback string
	if correct {
		feedback = "✅ Correct!"
	} else {
		feedback = "❌ Not quite. The answer is: " + expectedAnswer(q)
	}
	if res.Plan.IsMastered {
		feedback += "\n🏆 Word mastered!"
	}
	if err := b.reply(chatID, feedback); err != nil {
		return err
	}
	return b.askNext(ctx, chatID, sess.StudentID)
}

func expectedAnswer(q quiz.Question) string {
	if q.Type.IsChoice() && q.CorrectIndex < len(q.Options) {
		return q.Options[q.CorrectIndex]
	}
	return q.Answer
}

func parseAnswerData(data string) (wordID int64, idx int, err error) {
	parts := strings.Split(strings.TrimPrefix(data, callbackAnswer), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed answer %q", data)
	}
	if wordID, err = strconv.ParseInt(parts[0], 10, 64); err != nil {
		return 0, 0, err
	}
	if idx, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, err
	}
	return wordID, idx, nil
}

func (b *Bot) handleGenerate(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	classID, err := strconv.ParseInt(strings.TrimSpace(message.CommandArguments()), 10, 64)
	if err != nil || classID <= 0 {
		return b.reply(chatID, "Usage: /generate <class id>")
	}

	res, err := b.planner.GenerateBatch(ctx, planner.BatchRequest{ClassID: classID})
	if err != nil {
		return err
	}
	return b.reply(chatID, fmt.Sprintf("📋 Class %d: %d students × %d words\nNew plans: %d\nAlready planned: %d\nFailed: %d",
		classID, res.StudentsCount, res.WordsCount, res.PlansCreated, res.Skipped, len(res.Failed)))
}

func (b *Bot) handleClasses(ctx context.Context, chatID int64) error {
	if b.stats == nil {
		return b.reply(chatID, "Statistics are not available.")
	}
	summaries, err := b.stats.GetClassSummaries(ctx)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		return b.reply(chatID, "No classes yet. Use /import students to add some.")
	}

	var sb strings.Builder
	sb.WriteString("🏫 Classes\n")
	for _, c := range summaries {
		fmt.Fprintf(&sb, "\n#%d %s: %d students, %d planned, %d mastered, %d difficult",
			c.ClassID, c.ClassName, c.Students, c.PlannedWords, c.MasteredWords, c.DifficultWords)
	}
	return b.reply(chatID, sb.String())
}

func (b *Bot) handleImport(message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	kind := strings.ToLower(strings.TrimSpace(message.CommandArguments()))
	if kind == "" {
		kind = importWords
	}
	if kind != importWords && kind != importStudents {
		return b.reply(chatID, "Usage: /import words|students")
	}
	if b.importer == nil {
		return b.reply(chatID, "Import is not available.")
	}

	b.uploadsMu.Lock()
	b.awaitingUpload[chatID] = kind
	b.uploadsMu.Unlock()

	return b.reply(chatID, fmt.Sprintf("Send the %s file as .xlsx or .csv. The first row is treated as a header.", kind))
}

func (b *Bot) handleDocument(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID

	b.uploadsMu.Lock()
	kind, ok := b.awaitingUpload[chatID]
	delete(b.awaitingUpload, chatID)
	b.uploadsMu.Unlock()

	if !ok || message.From == nil || !b.config.isAdmin(message.From.ID) {
		return b.reply(chatID, "Send /import first.")
	}

	ext := strings.ToLower(filepath.Ext(message.Document.FileName))
	if ext != ".xlsx" && ext != ".csv" {
		return b.reply(chatID, "Only .xlsx and .csv files are supported.")
	}

	url, err := b.api.GetFileDirectURL(message.Document.FileID)
	if err != nil {
		return fmt.Errorf("resolve uploaded file: %w", err)
	}
	path, err := b.download(ctx, url, ext)
	if err != nil {
		return err
	}
	defer os.Remove(path)

	cfg := excel.DefaultImportConfig(path)
	var res *excel.ImportResult
	if kind == importStudents {
		res, err = b.importer.ImportStudents(ctx, cfg)
	} else {
		res, err = b.importer.ImportWords(ctx, cfg)
	}
	if err != nil {
		return b.reply(chatID, fmt.Sprintf("❌ Import failed: %v", err))
	}
	return b.reply(chatID, importReport(kind, res))
}

func importReport(kind string, res *excel.ImportResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "✅ Imported %s\nRows: %d\nCreated: %d\nUpdated: %d", kind, res.TotalProcessed, res.Created, res.Updated)
	if res.ClassesCreated > 0 {
		fmt.Fprintf(&sb, "\nClasses created: %d", res.ClassesCreated)
	}
	if len(res.Errors) > 0 {
		fmt.Fprintf(&sb, "\n\n⚠️ %d errors:", len(res.Errors))
		for i, e := range res.Errors {
			if i == maxReportedErrors {
				fmt.Fprintf(&sb, "\n… and %d more", len(res.Errors)-maxReportedErrors)
				break
			}
			sb.WriteString("\n" + e)
		}
	}
	return sb.String()
}

// download saves an uploaded file to a temporary path
func (b *Bot) download(ctx context.Context, url, ext string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("download upload: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download upload: status %d", resp.StatusCode)
	}

	f, err := os.CreateTemp("", "vocabplan-import-*"+ext)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("save upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
