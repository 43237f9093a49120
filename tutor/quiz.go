package tutor

import (
	"encoding/json"
	"strings"
)

// QuizQuestion is one multiple-choice question of a generated quiz.
type QuizQuestion struct {
	Question      string            `json:"question"`
	Options       map[string]string `json:"options"`
	CorrectAnswer string            `json:"correct_answer"`
	Explanation   string            `json:"explanation"`
}

type Quiz struct {
	Questions []QuizQuestion `json:"questions"`
}

// ParseQuiz extracts the quiz JSON from a model response. Models wrap the
// object in markdown fences or chatty preambles often enough that we strip
// fences first and then scan for the outermost balanced object.
func ParseQuiz(text string) (*Quiz, bool) {
	text = strings.TrimSpace(text)
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	var quiz Quiz
	if err := json.Unmarshal([]byte(text), &quiz); err == nil && len(quiz.Questions) > 0 {
		return &quiz, true
	}

	obj, ok := extractObject(text)
	if !ok {
		return nil, false
	}
	if err := json.Unmarshal([]byte(obj), &quiz); err != nil || len(quiz.Questions) == 0 {
		return nil, false
	}
	return &quiz, true
}

// extractObject returns the first balanced top-level {...} in text, respecting
// string literals and escapes.
func extractObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
