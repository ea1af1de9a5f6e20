package quiz

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/example/vocabplan/pkg/models"
)

// Blank replaces the word in a fill-in-blank sentence
const Blank = "_______"

// ExampleSource produces an example sentence for words that have none
type ExampleSource interface {
	ExampleSentence(ctx context.Context, word models.Word) (string, error)
}

// Question is a concrete question shown to a student
type Question struct {
	WordID       int64
	Type         models.QuestionType
	Prompt       string   // Text shown to the student
	AudioURL     string   // Pronunciation to play (listening)
	Options      []string // Possible answers (choice types)
	CorrectIndex int      // Index of correct answer in options
	Answer       string   // Expected text (fill-in-blank)
}

// CheckOption grades a choice answer by option index
func (q Question) CheckOption(idx int) bool {
	return q.Type.IsChoice() && idx == q.CorrectIndex
}

// CheckText grades a typed answer. Choice questions also accept the option
// text or its 1-based number.
func (q Question) CheckText(answer string) bool {
	answer = strings.TrimSpace(answer)
	if !q.Type.IsChoice() {
		return strings.EqualFold(answer, q.Answer)
	}
	if n, err := strconv.Atoi(answer); err == nil {
		return q.CheckOption(n - 1)
	}
	return q.CorrectIndex < len(q.Options) && strings.EqualFold(answer, q.Options[q.CorrectIndex])
}

// Builder creates the questions a word supports
type Builder struct {
	alloc       *Allocator
	examples    ExampleSource
	distractors int
}

// NewBuilder creates a builder; examples may be nil
func NewBuilder(alloc *Allocator, examples ExampleSource) *Builder {
	return &Builder{alloc: alloc, examples: examples, distractors: 3}
}

// Available returns every question that can be asked about word, drawing
// wrong options from pool. Listening needs audio and fill-in-blank needs an
// example sentence containing the word.
func (b *Builder) Available(ctx context.Context, word models.Word, pool []models.Word) []Question {
	return b.available(ctx, word, pool, true)
}

// For returns one question about word, of the target type when the word
// supports it and otherwise a random supported one. A missing example
// sentence is only generated when fill-in-blank is the target.
func (b *Builder) For(ctx context.Context, word models.Word, pool []models.Word, target models.QuestionType) (Question, bool) {
	if q, ok := b.build(ctx, word, pool, target, target == models.FillInBlank); ok {
		return q, true
	}
	return b.alloc.SelectQuestionForWord(b.available(ctx, word, pool, false), target)
}

func (b *Builder) available(ctx context.Context, word models.Word, pool []models.Word, generate bool) []Question {
	var questions []Question
	for _, qt := range []models.QuestionType{models.EnglishToChinese, models.ChineseToEnglish, models.Listening, models.FillInBlank} {
		if q, ok := b.build(ctx, word, pool, qt, generate); ok {
			questions = append(questions, q)
		}
	}
	return questions
}

func (b *Builder) build(ctx context.Context, word models.Word, pool []models.Word, qt models.QuestionType, generate bool) (Question, bool) {
	switch qt {
	case models.EnglishToChinese:
		return b.choice(word, qt, word.EnglishWord, word.Translation, translations(word, pool)), true
	case models.ChineseToEnglish:
		return b.choice(word, qt, word.Translation, word.EnglishWord, englishWords(word, pool)), true
	case models.Listening:
		if word.AudioURL == "" {
			return Question{}, false
		}
		q := b.choice(word, qt, "Listen and choose the meaning", word.Translation, translations(word, pool))
		q.AudioURL = word.AudioURL
		return q, true
	case models.FillInBlank:
		return b.fillInBlank(ctx, word, generate)
	}
	return Question{}, false
}

func (b *Builder) choice(word models.Word, qt models.QuestionType, prompt, correct string, wrong []string) Question {
	b.alloc.shuffleStrings(wrong)
	if len(wrong) > b.distractors {
		wrong = wrong[:b.distractors]
	}

	options := append([]string{correct}, wrong...)
	b.alloc.shuffleStrings(options)

	correctIndex := 0
	for i, o := range options {
		if o == correct {
			correctIndex = i
			break
		}
	}

	return Question{
		WordID:       word.ID,
		Type:         qt,
		Prompt:       prompt,
		Options:      options,
		CorrectIndex: correctIndex,
	}
}

func (b *Builder) fillInBlank(ctx context.Context, word models.Word, generate bool) (Question, bool) {
	sentence := word.Example
	if sentence == "" && generate && b.examples != nil {
		generated, err := b.examples.ExampleSentence(ctx, word)
		if err == nil {
			sentence = generated
		}
	}
	if sentence == "" {
		return Question{}, false
	}

	blanked, ok := ReplaceWordWithBlank(sentence, word.EnglishWord)
	if !ok {
		return Question{}, false
	}
	return Question{
		WordID: word.ID,
		Type:   models.FillInBlank,
		Prompt: blanked + "\n(" + word.Translation + ")",
		Answer: word.EnglishWord,
	}, true
}

// ReplaceWordWithBlank blanks the first whole-word, case-insensitive match
func ReplaceWordWithBlank(sentence, word string) (string, bool) {
	word = strings.TrimSpace(word)
	if word == "" {
		return sentence, false
	}
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
	loc := re.FindStringIndex(sentence)
	if loc == nil {
		return sentence, false
	}
	return sentence[:loc[0]] + Blank + sentence[loc[1]:], true
}

func translations(word models.Word, pool []models.Word) []string {
	return distinct(word, pool, word.Translation, func(w models.Word) string { return w.Translation })
}

func englishWords(word models.Word, pool []models.Word) []string {
	return distinct(word, pool, word.EnglishWord, func(w models.Word) string { return w.EnglishWord })
}

func distinct(word models.Word, pool []models.Word, correct string, field func(models.Word) string) []string {
	seen := map[string]bool{strings.ToLower(correct): true}
	var out []string
	for _, w := range pool {
		v := field(w)
		if w.ID == word.ID || v == "" || seen[strings.ToLower(v)] {
			continue
		}
		seen[strings.ToLower(v)] = true
		out = append(out, v)
	}
	return out
}
