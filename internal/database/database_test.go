package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/vocabplan/pkg/models"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := Connect(DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

type fixture struct {
	repos   *Repositories
	class   *models.Class
	student *models.Student
	words   []*models.Word
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	repos := NewRepositories(newTestDB(t))

	class, err := repos.Classes.GetOrCreate(ctx, "Grade 7 A")
	require.NoError(t, err)

	student := &models.Student{ClassID: class.ID, StudentNumber: "S001", Name: "Li Lei", WordsPerDay: 10, IsActive: true}
	require.NoError(t, repos.Students.Create(ctx, student))

	var words []*models.Word
	for _, en := range []string{"apple", "banana", "cherry"} {
		w := &models.Word{EnglishWord: en, Translation: "t-" + en, Difficulty: models.DifficultyMedium}
		require.NoError(t, repos.Words.Create(ctx, w))
		words = append(words, w)
	}
	return &fixture{repos: repos, class: class, student: student, words: words}
}

func TestClassRepository_GetOrCreateIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	again, err := f.repos.Classes.GetOrCreate(ctx, "grade 7 a")
	require.NoError(t, err)
	assert.Equal(t, f.class.ID, again.ID)

	all, err := f.repos.Classes.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStudentRepository(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.repos.Students.GetByStudentNumber(ctx, "S001")
	require.NoError(t, err)
	assert.Equal(t, "Li Lei", got.Name)
	assert.True(t, got.IsActive)
	assert.False(t, got.TelegramChatID.Valid)

	require.NoError(t, f.repos.Students.LinkTelegram(ctx, f.student.ID, 777))
	got, err = f.repos.Students.GetByTelegramChatID(ctx, 777)
	require.NoError(t, err)
	assert.Equal(t, f.student.ID, got.ID)

	other := &models.Student{ClassID: f.class.ID, StudentNumber: "S002", Name: "Han Meimei", IsActive: true}
	require.NoError(t, f.repos.Students.Create(ctx, other))

	active, err := f.repos.Students.ListActiveByClass(ctx, f.class.ID)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	require.NoError(t, f.repos.Students.Archive(ctx, other.ID))
	active, err = f.repos.Students.ListActiveByClass(ctx, f.class.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, f.student.ID, active[0].ID)

	byIDs, err := f.repos.Students.GetByIDs(ctx, []int64{other.ID, f.student.ID})
	require.NoError(t, err)
	assert.Len(t, byIDs, 2, "archived students can still be addressed explicitly")

	_, err = f.repos.Students.GetByID(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWordRepository(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	all, err := f.repos.Words.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, models.DifficultyMedium, all[0].Difficulty)

	w, err := f.repos.Words.GetByEnglish(ctx, "BANANA")
	require.NoError(t, err)
	assert.Equal(t, f.words[1].ID, w.ID)

	w.Difficulty = models.DifficultyHard
	w.AudioURL = "https://cdn/banana.mp3"
	require.NoError(t, f.repos.Words.Update(ctx, w))
	require.NoError(t, f.repos.Words.SetExample(ctx, w.ID, "A banana is yellow."))

	w, err = f.repos.Words.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DifficultyHard, w.Difficulty)
	assert.Equal(t, "A banana is yellow.", w.Example)

	some, err := f.repos.Words.GetByIDs(ctx, []int64{f.words[2].ID, f.words[0].ID})
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, f.words[0].ID, some[0].ID)
}

func TestStudentWordRepository_CreateIfAbsent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	next := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	plan := &models.StudentWord{StudentID: f.student.ID, WordID: f.words[0].ID, NextReviewAt: next, Status: models.PlanPending}
	created, err := f.repos.Plans.CreateIfAbsent(ctx, plan)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, plan.ID)

	dup := &models.StudentWord{StudentID: f.student.ID, WordID: f.words[0].ID, ReviewCount: 9, NextReviewAt: next.AddDate(0, 0, 5)}
	created, err = f.repos.Plans.CreateIfAbsent(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := f.repos.Plans.GetByStudentAndWord(ctx, f.student.ID, f.words[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.ReviewCount)
	assert.True(t, got.NextReviewAt.Equal(next))
	assert.Equal(t, models.PlanPending, got.Status)
}

func TestStudentWordRepository_Update(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	plan := &models.StudentWord{StudentID: f.student.ID, WordID: f.words[1].ID, NextReviewAt: time.Now(), Status: models.PlanPending}
	_, err := f.repos.Plans.CreateIfAbsent(ctx, plan)
	require.NoError(t, err)

	reviewed := time.Date(2024, 2, 3, 10, 0, 0, 0, time.UTC)
	plan.ReviewCount = 2
	plan.ConsecutiveCorrect = 1
	plan.TotalWrongCount = 4
	plan.IsDifficult = true
	plan.Status = models.PlanActive
	plan.LastReviewAt = sql.NullTime{Time: reviewed, Valid: true}
	plan.NextReviewAt = time.Date(2024, 2, 7, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.repos.Plans.Update(ctx, plan))

	plans, err := f.repos.Plans.ListByStudent(ctx, f.student.ID)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	got := plans[0]
	assert.Equal(t, 2, got.ReviewCount)
	assert.Equal(t, 4, got.TotalWrongCount)
	assert.True(t, got.IsDifficult)
	assert.False(t, got.IsMastered)
	assert.Equal(t, models.PlanActive, got.Status)
	assert.True(t, got.LastReviewAt.Time.Equal(reviewed))
	assert.True(t, got.NextReviewAt.Equal(plan.NextReviewAt))

	missing := &models.StudentWord{StudentID: f.student.ID, WordID: f.words[2].ID}
	assert.ErrorIs(t, f.repos.Plans.Update(ctx, missing), ErrNotFound)
}

func TestDailyTaskRepository(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tasks := []models.DailyTask{
		{BatchID: "b1", StudentID: f.student.ID, WordID: f.words[0].ID, TaskDate: day, QuestionType: models.FillInBlank},
		{BatchID: "b1", StudentID: f.student.ID, WordID: f.words[1].ID, TaskDate: day, QuestionType: models.Listening},
	}
	n, err := f.repos.Tasks.CreateBatch(ctx, tasks)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// A competing batch for the same day is rejected as a whole.
	competing := []models.DailyTask{
		{BatchID: "b2", StudentID: f.student.ID, WordID: f.words[1].ID, TaskDate: day, QuestionType: models.EnglishToChinese},
		{BatchID: "b2", StudentID: f.student.ID, WordID: f.words[2].ID, TaskDate: day, QuestionType: models.EnglishToChinese},
	}
	n, err = f.repos.Tasks.CreateBatch(ctx, competing)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	got, err := f.repos.Tasks.ListForDay(ctx, f.student.ID, day)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, task := range got {
		assert.Equal(t, "b1", task.BatchID)
	}
	assert.Equal(t, models.Listening, got[1].QuestionType)
	assert.Equal(t, models.TaskPending, got[0].Status)

	other, err := f.repos.Tasks.ListForDay(ctx, f.student.ID, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, other)

	ok, err := f.repos.Tasks.Complete(ctx, f.student.ID, f.words[0].ID, day, day.Add(9*time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.repos.Tasks.Complete(ctx, f.student.ID, f.words[0].ID, day, day.Add(10*time.Hour))
	require.NoError(t, err)
	assert.False(t, ok, "already completed")

	got, err = f.repos.Tasks.ListForDay(ctx, f.student.ID, day)
	require.NoError(t, err)
	assert.Equal(t, models.TaskCompleted, got[0].Status)
	assert.True(t, got[0].CompletedAt.Valid)
}

func TestAnswerRepository_RecentOutcomes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)

	for i, correct := range []bool{false, false, true, true, false} {
		a := &models.AnswerRecord{
			StudentID:    f.student.ID,
			WordID:       f.words[0].ID,
			QuestionType: models.EnglishToChinese,
			Correct:      correct,
			AnsweredAt:   base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, f.repos.Answers.Create(ctx, a))
	}

	recent, err := f.repos.Answers.RecentOutcomes(ctx, f.student.ID, f.words[0].ID, 3)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true, true}, recent)

	none, err := f.repos.Answers.RecentOutcomes(ctx, f.student.ID, f.words[1].ID, 3)
	require.NoError(t, err)
	assert.Empty(t, none)

	history, err := f.repos.Answers.ListByStudent(ctx, f.student.ID, 10)
	require.NoError(t, err)
	assert.Len(t, history, 5)
}

func TestStatisticsRepository(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	today := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)

	plans := []*models.StudentWord{
		{StudentID: f.student.ID, WordID: f.words[0].ID, NextReviewAt: today.AddDate(0, 0, -2), Status: models.PlanActive, IsDifficult: true},
		{StudentID: f.student.ID, WordID: f.words[1].ID, NextReviewAt: today, Status: models.PlanCompleted, IsMastered: true},
		{StudentID: f.student.ID, WordID: f.words[2].ID, NextReviewAt: tomorrow, Status: models.PlanPending},
	}
	for _, p := range plans {
		_, err := f.repos.Plans.CreateIfAbsent(ctx, p)
		require.NoError(t, err)
	}
	require.NoError(t, f.repos.Answers.Create(ctx, &models.AnswerRecord{StudentID: f.student.ID, WordID: f.words[0].ID, QuestionType: models.FillInBlank, Correct: true, AnsweredAt: today}))

	stats, err := f.repos.Statistics.GetStudentStats(ctx, f.student.ID, tomorrow)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalWords)
	assert.Equal(t, 1, stats.MasteredWords)
	assert.Equal(t, 1, stats.DifficultWords)
	assert.Equal(t, 1, stats.DueToday)
	assert.Equal(t, 1, stats.TotalAnswers)
	assert.Equal(t, 1, stats.CorrectAnswers)

	summaries, err := f.repos.Statistics.GetClassSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "Grade 7 A", summaries[0].ClassName)
	assert.Equal(t, 1, summaries[0].Students)
	assert.Equal(t, 3, summaries[0].PlannedWords)
}

func TestDailyTaskRepository_CreateBatchRejectsMixedBatches(t *testing.T) {
	f := newFixture(t)
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := f.repos.Tasks.CreateBatch(context.Background(), []models.DailyTask{
		{BatchID: "b1", StudentID: f.student.ID, WordID: f.words[0].ID, TaskDate: day, QuestionType: models.FillInBlank},
		{BatchID: "b2", StudentID: f.student.ID, WordID: f.words[1].ID, TaskDate: day, QuestionType: models.Listening},
	})
	require.Error(t, err)

	got, err := f.repos.Tasks.ListForDay(context.Background(), f.student.ID, day)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRepositories_WithinTx(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	answer := func() *models.AnswerRecord {
		return &models.AnswerRecord{StudentID: f.student.ID, WordID: f.words[0].ID, QuestionType: models.EnglishToChinese, Correct: true, AnsweredAt: at}
	}

	err := f.repos.WithinTx(ctx, func(tx *Repositories) error {
		require.NoError(t, tx.Answers.Create(ctx, answer()))
		return errors.New("abort")
	})
	require.EqualError(t, err, "abort")

	got, err := f.repos.Answers.ListByStudent(ctx, f.student.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, got, "rolled back")

	err = f.repos.WithinTx(ctx, func(tx *Repositories) error {
		if err := tx.Answers.Create(ctx, answer()); err != nil {
			return err
		}
		// Nested calls join the outer transaction.
		return tx.WithinTx(ctx, func(inner *Repositories) error {
			return inner.Answers.Create(ctx, answer())
		})
	})
	require.NoError(t, err)

	got, err = f.repos.Answers.ListByStudent(ctx, f.student.ID, 10)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestIsUnavailable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"not found", ErrNotFound, false},
		{"plain", errors.New("constraint failed"), false},
		{"bad conn", fmt.Errorf("create plan: %w", driver.ErrBadConn), true},
		{"conn done", sql.ErrConnDone, true},
		{"pq connection failure", &pq.Error{Code: "08006"}, true},
		{"pq admin shutdown", &pq.Error{Code: "57P01"}, true},
		{"pq unique violation", &pq.Error{Code: "23505"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUnavailable(tt.err))
		})
	}
}

func TestIsUnavailable_ClosedDatabase(t *testing.T) {
	db, err := Connect(DriverSQLite, ":memory:")
	require.NoError(t, err)
	repos := NewRepositories(db)
	require.NoError(t, db.Close())

	_, err = repos.Words.GetAll(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
}
