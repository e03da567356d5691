package symptom

import "time"

// Answer is one recorded reply. Sessions keep answers in collection order.
type Answer struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// Session is a user's in-progress walk through one body part's questionnaire.
type Session struct {
	UserID          int64     `json:"user_id"`
	BodyPart        string    `json:"body_part"`
	CurrentQuestion int       `json:"current_question"`
	Answers         []Answer  `json:"answers"`
	StartedAt       time.Time `json:"started_at"`
}

// AnswerFor returns the recorded answer for a question key.
func (s *Session) AnswerFor(key string) (string, bool) {
	for _, a := range s.Answers {
		if a.Key == key {
			return a.Text, true
		}
	}
	return "", false
}

func (s *Session) record(key, text string) {
	for i := range s.Answers {
		if s.Answers[i].Key == key {
			s.Answers[i].Text = text
			return
		}
	}
	s.Answers = append(s.Answers, Answer{Key: key, Text: text})
}
