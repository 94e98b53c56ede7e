package domain

import "fmt"

// ValidateQuiz checks the structural invariants every loaded definition must
// hold: at least one question, two or more options per question, at least one
// correct option, exactly one for single-type questions, and unique ids.
// Authoring lives elsewhere, so a violation here means corrupt stored content.
func ValidateQuiz(quiz QuizDefinition) error {
	if len(quiz.Questions) == 0 {
		return fmt.Errorf("quiz %q has no questions", quiz.ID)
	}
	seenQuestions := make(map[string]struct{}, len(quiz.Questions))
	for _, q := range quiz.Questions {
		if _, ok := seenQuestions[q.ID]; ok {
			return fmt.Errorf("quiz %q: duplicate question id %q", quiz.ID, q.ID)
		}
		seenQuestions[q.ID] = struct{}{}

		if len(q.Options) < 2 {
			return fmt.Errorf("quiz %q: question %q has fewer than two options", quiz.ID, q.ID)
		}
		seenOptions := make(map[string]struct{}, len(q.Options))
		correct := 0
		for _, opt := range q.Options {
			if _, ok := seenOptions[opt.ID]; ok {
				return fmt.Errorf("quiz %q: question %q has duplicate option id %q", quiz.ID, q.ID, opt.ID)
			}
			seenOptions[opt.ID] = struct{}{}
			if opt.Correct {
				correct++
			}
		}
		switch q.Type {
		case QuestionSingle:
			if correct != 1 {
				return fmt.Errorf("quiz %q: single-type question %q must have exactly one correct option, has %d", quiz.ID, q.ID, correct)
			}
		case QuestionMultiple:
			if correct == 0 {
				return fmt.Errorf("quiz %q: question %q has no correct option", quiz.ID, q.ID)
			}
		default:
			return fmt.Errorf("quiz %q: question %q has unknown type %q", quiz.ID, q.ID, q.Type)
		}
	}
	return nil
}
