package symptom

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrUnknownBodyPart     = errors.New("unknown body part")
	ErrInvalidSessionState = errors.New("invalid session state")
	ErrInvalidOption       = errors.New("invalid answer option")
)

// Question is what the user is asked next.
type Question struct {
	Index   int      `json:"question_index"`
	Key     string   `json:"key"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// Step is the outcome of submitting an answer: either the next question or,
// once every question is answered, the recommendation.
type Step struct {
	Question       *Question
	Recommendation *Recommendation
}

func (s Step) Terminal() bool { return s.Recommendation != nil }

type Engine struct {
	table *Table
	now   func() time.Time
}

func NewEngine(table *Table) *Engine {
	if table == nil {
		table = DefaultTable()
	}
	return &Engine{table: table, now: time.Now}
}

func (e *Engine) Table() *Table { return e.table }

// Start opens a session for bodyPart positioned at the first question.
func (e *Engine) Start(bodyPart string, userID int64) (*Session, Question, error) {
	rule, ok := e.table.Rule(bodyPart)
	if !ok {
		return nil, Question{}, fmt.Errorf("%w: %q", ErrUnknownBodyPart, bodyPart)
	}
	sess := &Session{
		UserID:    userID,
		BodyPart:  bodyPart,
		Answers:   []Answer{},
		StartedAt: e.now(),
	}
	return sess, questionAt(rule, 0), nil
}

// Answer records answerText for questionIndex, which must be the session's
// current question, and advances the session.
func (e *Engine) Answer(sess *Session, questionIndex int, answerText string) (Step, error) {
	rule, err := e.ruleFor(sess)
	if err != nil {
		return Step{}, err
	}
	if questionIndex != sess.CurrentQuestion {
		return Step{}, fmt.Errorf("%w: answer for question %d, session at %d",
			ErrInvalidSessionState, questionIndex, sess.CurrentQuestion)
	}

	sess.record(rule.Questions[questionIndex].Key, answerText)
	sess.CurrentQuestion++

	if sess.CurrentQuestion == len(rule.Questions) {
		rec := recommend(rule, sess.Answers)
		return Step{Recommendation: &rec}, nil
	}
	q := questionAt(rule, sess.CurrentQuestion)
	return Step{Question: &q}, nil
}

// Current returns the question the session is waiting on.
func (e *Engine) Current(sess *Session) (Question, error) {
	rule, err := e.ruleFor(sess)
	if err != nil {
		return Question{}, err
	}
	return questionAt(rule, sess.CurrentQuestion), nil
}

// Option resolves a keyboard button index to the option text of a question.
func (e *Engine) Option(sess *Session, questionIndex, optionIndex int) (string, error) {
	rule, err := e.ruleFor(sess)
	if err != nil {
		return "", err
	}
	if questionIndex < 0 || questionIndex >= len(rule.Questions) {
		return "", fmt.Errorf("%w: question %d", ErrInvalidOption, questionIndex)
	}
	opts := rule.Questions[questionIndex].Options
	if optionIndex < 0 || optionIndex >= len(opts) {
		return "", fmt.Errorf("%w: option %d of question %d", ErrInvalidOption, optionIndex, questionIndex)
	}
	return opts[optionIndex], nil
}

func (e *Engine) ruleFor(sess *Session) (Rule, error) {
	if sess == nil {
		return Rule{}, fmt.Errorf("%w: nil session", ErrInvalidSessionState)
	}
	rule, ok := e.table.Rule(sess.BodyPart)
	if !ok {
		return Rule{}, fmt.Errorf("%w: %q", ErrUnknownBodyPart, sess.BodyPart)
	}
	if sess.CurrentQuestion < 0 || sess.CurrentQuestion >= len(rule.Questions) {
		return Rule{}, fmt.Errorf("%w: session already at question %d of %d",
			ErrInvalidSessionState, sess.CurrentQuestion, len(rule.Questions))
	}
	return rule, nil
}

func questionAt(rule Rule, i int) Question {
	q := rule.Questions[i]
	opts := make([]string, len(q.Options))
	copy(opts, q.Options)
	return Question{Index: i, Key: q.Key, Text: q.Text, Options: opts}
}

// recommend looks the canonical answers key up literally; anything that
// does not match exactly gets the default entry.
func recommend(rule Rule, answers []Answer) Recommendation {
	if rec, ok := rule.Recommendations[AnswersKey(answers)]; ok {
		return rec
	}
	return rule.Recommendations[DefaultKey]
}

// AnswersKey joins the answers in collection order, lower-cased with spaces
// replaced by underscores.
func AnswersKey(answers []Answer) string {
	parts := make([]string, 0, len(answers))
	for _, a := range answers {
		parts = append(parts, strings.ReplaceAll(strings.ToLower(a.Text), " ", "_"))
	}
	return strings.Join(parts, "_")
}
