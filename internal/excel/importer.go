// Package excel imports students and words from XLSX or CSV sheets.
package excel

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/example/vocabplan/internal/database"
	"github.com/example/vocabplan/pkg/models"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath  string // Path to the Excel or CSV file
	SheetName string // Sheet to import, empty means the first one
	StartRow  int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig(path string) ImportConfig {
	return ImportConfig{
		FilePath: path,
		StartRow: 2, // skip header
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	ClassesCreated int
	Created        int
	Updated        int
	Skipped        int
	Errors         []string
}

// ClassStore resolves class names
type ClassStore interface {
	GetByName(ctx context.Context, name string) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
}

// StudentStore reads and writes students
type StudentStore interface {
	GetByStudentNumber(ctx context.Context, number string) (*models.Student, error)
	Create(ctx context.Context, s *models.Student) error
	Update(ctx context.Context, s *models.Student) error
}

// WordStore reads and writes the catalog
type WordStore interface {
	GetByEnglish(ctx context.Context, english string) (*models.Word, error)
	Create(ctx context.Context, w *models.Word) error
	Update(ctx context.Context, w *models.Word) error
}

// Importer writes sheet rows into the store
type Importer struct {
	classes  ClassStore
	students StudentStore
	words    WordStore
	logger   *zap.Logger
}

// NewImporter creates an importer over the repositories
func NewImporter(repos *database.Repositories, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{
		classes:  repos.Classes,
		students: repos.Students,
		words:    repos.Words,
		logger:   logger,
	}
}

// ImportWords imports words. Columns: english, translation, example,
// difficulty, pronunciation url, image url. Existing words are updated.
func (im *Importer) ImportWords(ctx context.Context, cfg ImportConfig) (*ImportResult, error) {
	rows, err := readRows(cfg)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Errors: make([]string, 0)}
	for i, row := range rows {
		rowNum := i + startRow(cfg)
		if isBlank(row) {
			result.Skipped++
			continue
		}
		result.TotalProcessed++
		if err := im.importWord(ctx, row, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
		}
	}

	im.logger.Info("words imported",
		zap.String("file", filepath.Base(cfg.FilePath)),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

// ImportStudents imports students. Columns: student number, name, class
// name, telegram chat id, words per day. Classes are created on demand.
func (im *Importer) ImportStudents(ctx context.Context, cfg ImportConfig) (*ImportResult, error) {
	rows, err := readRows(cfg)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Errors: make([]string, 0)}
	classIDs := make(map[string]int64)
	for i, row := range rows {
		rowNum := i + startRow(cfg)
		if isBlank(row) {
			result.Skipped++
			continue
		}
		result.TotalProcessed++
		if err := im.importStudent(ctx, row, classIDs, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
		}
	}

	im.logger.Info("students imported",
		zap.String("file", filepath.Base(cfg.FilePath)),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("classes_created", result.ClassesCreated),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

func (im *Importer) importWord(ctx context.Context, row []string, result *ImportResult) error {
	english := cleanWord(cell(row, 0))
	translation := strings.TrimSpace(cell(row, 1))
	if english == "" {
		return fmt.Errorf("word cannot be empty")
	}
	if translation == "" {
		return fmt.Errorf("translation cannot be empty")
	}

	word := models.Word{
		EnglishWord: english,
		Translation: translation,
		Example:     strings.TrimSpace(cell(row, 2)),
		Difficulty:  models.ParseDifficulty(cell(row, 3)),
		AudioURL:    strings.TrimSpace(cell(row, 4)),
		ImageURL:    strings.TrimSpace(cell(row, 5)),
	}

	existing, err := im.words.GetByEnglish(ctx, english)
	switch {
	case errors.Is(err, database.ErrNotFound):
		if err := im.words.Create(ctx, &word); err != nil {
			return fmt.Errorf("failed to create word: %w", err)
		}
		result.Created++
		return nil
	case err != nil:
		return fmt.Errorf("failed to look up word: %w", err)
	}

	existing.Translation = word.Translation
	existing.Difficulty = word.Difficulty
	// Empty optional cells keep what is stored.
	if word.Example != "" {
		existing.Example = word.Example
	}
	if word.AudioURL != "" {
		existing.AudioURL = word.AudioURL
	}
	if word.ImageURL != "" {
		existing.ImageURL = word.ImageURL
	}
	if err := im.words.Update(ctx, existing); err != nil {
		return fmt.Errorf("failed to update word: %w", err)
	}
	result.Updated++
	return nil
}

func (im *Importer) importStudent(ctx context.Context, row []string, classIDs map[string]int64, result *ImportResult) error {
	number := strings.TrimSpace(cell(row, 0))
	name := strings.TrimSpace(cell(row, 1))
	className := strings.TrimSpace(cell(row, 2))
	if number == "" {
		return fmt.Errorf("student number cannot be empty")
	}
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if className == "" {
		return fmt.Errorf("class cannot be empty")
	}

	var chatID sql.NullInt64
	if raw := strings.TrimSpace(cell(row, 3)); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid telegram chat id %q", raw)
		}
		chatID = sql.NullInt64{Int64: id, Valid: true}
	}
	wordsPerDay := 0
	if raw := strings.TrimSpace(cell(row, 4)); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid words per day %q", raw)
		}
		wordsPerDay = n
	}

	classID, err := im.classID(ctx, className, classIDs, result)
	if err != nil {
		return err
	}

	existing, err := im.students.GetByStudentNumber(ctx, number)
	switch {
	case errors.Is(err, database.ErrNotFound):
		student := &models.Student{
			ClassID:          classID,
			StudentNumber:    number,
			Name:             name,
			TelegramChatID:   chatID,
			WordsPerDay:      wordsPerDay,
			NotificationHour: models.DefaultNotificationHour,
			IsActive:         true,
		}
		if err := im.students.Create(ctx, student); err != nil {
			return fmt.Errorf("failed to create student: %w", err)
		}
		result.Created++
		return nil
	case err != nil:
		return fmt.Errorf("failed to look up student: %w", err)
	}

	existing.ClassID = classID
	existing.Name = name
	existing.IsActive = true
	if chatID.Valid {
		existing.TelegramChatID = chatID
	}
	if wordsPerDay > 0 {
		existing.WordsPerDay = wordsPerDay
	}
	if err := im.students.Update(ctx, existing); err != nil {
		return fmt.Errorf("failed to update student: %w", err)
	}
	result.Updated++
	return nil
}

func (im *Importer) classID(ctx context.Context, name string, cache map[string]int64, result *ImportResult) (int64, error) {
	key := strings.ToLower(name)
	if id, ok := cache[key]; ok {
		return id, nil
	}

	class, err := im.classes.GetByName(ctx, name)
	if errors.Is(err, database.ErrNotFound) {
		class = &models.Class{Name: name}
		if err := im.classes.Create(ctx, class); err != nil {
			return 0, fmt.Errorf("failed to create class: %w", err)
		}
		result.ClassesCreated++
	} else if err != nil {
		return 0, fmt.Errorf("failed to look up class: %w", err)
	}

	cache[key] = class.ID
	return class.ID, nil
}

// readRows returns the data rows of the sheet, header rows dropped
func readRows(cfg ImportConfig) ([][]string, error) {
	var (
		rows [][]string
		err  error
	)
	if strings.ToLower(filepath.Ext(cfg.FilePath)) == ".csv" {
		rows, err = readCSV(cfg.FilePath)
	} else {
		rows, err = readExcel(cfg.FilePath, cfg.SheetName)
	}
	if err != nil {
		return nil, err
	}

	skip := startRow(cfg) - 1
	if skip >= len(rows) {
		return nil, nil
	}
	return rows[skip:], nil
}

func readExcel(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func startRow(cfg ImportConfig) int {
	if cfg.StartRow < 1 {
		return 1
	}
	return cfg.StartRow
}

func cell(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// cleanWord drops trailing notes such as "go (went, gone)"
func cleanWord(word string) string {
	if i := strings.Index(word, "("); i > 0 {
		return strings.TrimSpace(word[:i])
	}
	return strings.TrimSpace(word)
}
