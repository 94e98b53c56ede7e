package app

import "quiz-session-service/internal/domain"

// Grade scores a full answer set against a quiz definition. It is a pure
// function: no I/O, no clock, and identical inputs always produce identical
// output. Every question of the definition contributes to maxScore whether or
// not it was answered; an answer referencing an id outside the definition is
// an error, never silently dropped.
func Grade(quiz domain.QuizDefinition, answers domain.AnswerSet) ([]domain.QuestionScore, int, int, error) {
	questions := make(map[string]struct{}, len(quiz.Questions))
	for _, q := range quiz.Questions {
		questions[q.ID] = struct{}{}
	}
	for questionID := range answers {
		if _, ok := questions[questionID]; !ok {
			return nil, 0, 0, &domain.InvalidAnswerError{QuestionID: questionID}
		}
	}

	scores := make([]domain.QuestionScore, 0, len(quiz.Questions))
	total, max := 0, 0
	for _, q := range quiz.Questions {
		points, err := gradeQuestion(q, answers[q.ID])
		if err != nil {
			return nil, 0, 0, err
		}
		weight := questionWeight(q)
		scores = append(scores, domain.QuestionScore{QuestionID: q.ID, Points: points, MaxPoints: weight})
		total += points
		max += weight
	}
	return scores, total, max, nil
}

// gradeQuestion applies the partial-credit rule to one question. Choosing any
// incorrect option zeroes the question; otherwise credit is proportional to
// the share of correct options chosen, rounded half-up once at question level.
func gradeQuestion(q domain.Question, chosen []string) (int, error) {
	valid := make(map[string]bool, len(q.Options))
	for _, opt := range q.Options {
		valid[opt.ID] = opt.Correct
	}

	// Validate every reference before judging correctness so an unknown option
	// id fails the whole submission even when a wrong choice is also present.
	chosenSet := make(map[string]struct{}, len(chosen))
	for _, optionID := range chosen {
		if _, ok := valid[optionID]; !ok {
			return 0, &domain.InvalidAnswerError{QuestionID: q.ID, OptionID: optionID}
		}
		chosenSet[optionID] = struct{}{}
	}
	for optionID := range chosenSet {
		if !valid[optionID] {
			return 0, nil
		}
	}
	if len(chosenSet) == 0 {
		return 0, nil
	}

	correctCount := 0
	for _, opt := range q.Options {
		if opt.Correct {
			correctCount++
		}
	}
	// round-half-up of weight*|chosen|/|correct| in integer arithmetic
	weight := questionWeight(q)
	return (2*weight*len(chosenSet) + correctCount) / (2 * correctCount), nil
}

func questionWeight(q domain.Question) int {
	if q.Weight > 0 {
		return q.Weight
	}
	return 1
}
