package excel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/example/vocabplan/internal/database"
	"github.com/example/vocabplan/pkg/models"
)

func newTestImporter(t *testing.T) (*Importer, *database.Repositories) {
	t.Helper()
	db, err := database.Connect(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repos := database.NewRepositories(db)
	return NewImporter(repos, nil), repos
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestImportWords_CSV(t *testing.T) {
	im, repos := newTestImporter(t)
	ctx := context.Background()

	path := writeFile(t, "words.csv", `english,translation,example,difficulty,audio,image
apple,苹果,I eat an apple.,1,https://cdn/apple.mp3,
go (went; gone),去,,3,,
,missing word,,,,
,,,,,
banana,,,,,
`)
	res, err := im.ImportWords(ctx, DefaultImportConfig(path))
	require.NoError(t, err)
	assert.Equal(t, 4, res.TotalProcessed)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors[0], "Row 4")
	assert.Contains(t, res.Errors[1], "translation cannot be empty")

	apple, err := repos.Words.GetByEnglish(ctx, "APPLE")
	require.NoError(t, err)
	assert.Equal(t, models.DifficultyEasy, apple.Difficulty)
	assert.Equal(t, "https://cdn/apple.mp3", apple.AudioURL)

	_, err = repos.Words.GetByEnglish(ctx, "go")
	require.NoError(t, err)

	update := writeFile(t, "update.csv", "english,translation,example,difficulty\napple,苹果(n.),,5\n")
	res, err = im.ImportWords(ctx, DefaultImportConfig(update))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	apple, err = repos.Words.GetByEnglish(ctx, "apple")
	require.NoError(t, err)
	assert.Equal(t, "苹果(n.)", apple.Translation)
	assert.Equal(t, "I eat an apple.", apple.Example, "empty cells keep the stored example")
	assert.Equal(t, models.DifficultyHard, apple.Difficulty)
}

func TestImportStudents_XLSX(t *testing.T) {
	im, repos := newTestImporter(t)
	ctx := context.Background()

	f := excelize.NewFile()
	rows := [][]interface{}{
		{"number", "name", "class", "chat", "per day"},
		{"S001", "Li Lei", "Class 7A", "1001", "15"},
		{"S002", "Han Meimei", "class 7a", "", ""},
		{"S003", "Jim", "Class 7B", "not-a-number", ""},
		{"S004", "", "Class 7B", "", ""},
	}
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cellName, &row))
	}
	path := filepath.Join(t.TempDir(), "students.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	res, err := im.ImportStudents(ctx, DefaultImportConfig(path))
	require.NoError(t, err)
	assert.Equal(t, 4, res.TotalProcessed)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 1, res.ClassesCreated)
	assert.Len(t, res.Errors, 2)

	li, err := repos.Students.GetByStudentNumber(ctx, "S001")
	require.NoError(t, err)
	assert.Equal(t, 15, li.WordsPerDay)
	assert.True(t, li.TelegramChatID.Valid)
	assert.EqualValues(t, 1001, li.TelegramChatID.Int64)

	han, err := repos.Students.GetByStudentNumber(ctx, "S002")
	require.NoError(t, err)
	assert.Equal(t, li.ClassID, han.ClassID)
	assert.False(t, han.TelegramChatID.Valid)
}

func TestImportWords_MissingFile(t *testing.T) {
	im, _ := newTestImporter(t)
	_, err := im.ImportWords(context.Background(), DefaultImportConfig(filepath.Join(t.TempDir(), "none.xlsx")))
	assert.Error(t, err)
}

func TestCleanWord(t *testing.T) {
	assert.Equal(t, "go", cleanWord(" go (went, gone) "))
	assert.Equal(t, "apple", cleanWord("apple"))
	assert.Equal(t, "(x)", cleanWord("(x)"))
}
