package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/model"
)

func gradingQuestions() []model.Question {
	return []model.Question{
		{ID: uuid.New(), Options: []model.Option{{ID: "a1", IsCorrect: true}, {ID: "a2"}}},
		{ID: uuid.New(), Options: []model.Option{{ID: "b1"}, {ID: "b2", IsCorrect: true}}},
		{ID: uuid.New(), Options: []model.Option{{ID: "c1", IsCorrect: true}, {ID: "c2"}}},
	}
}

func TestGradeAnswersScoresByOptionIdentity(t *testing.T) {
	qs := gradingQuestions()
	submitted := []model.CreateSubmissionAnswer{
		{QuestionID: qs[0].ID, SelectedOption: "a1"},
		{QuestionID: qs[1].ID, SelectedOption: "b1"},
	}

	answers, score := gradeAnswers(qs, submitted)

	if score != 1 {
		t.Errorf("score = %d, want 1", score)
	}
	if len(answers) != 3 {
		t.Fatalf("len(answers) = %d, want every question recorded", len(answers))
	}
	if !answers[0].IsCorrect || answers[1].IsCorrect {
		t.Errorf("correctness = %v %v, want true false", answers[0].IsCorrect, answers[1].IsCorrect)
	}
	// Question never answered: recorded with empty selection, incorrect.
	if answers[2].SelectedOption != "" || answers[2].IsCorrect {
		t.Errorf("missing answer recorded as %+v", answers[2])
	}
}

func TestGradeAnswersEmptySelectionNeverCorrect(t *testing.T) {
	q := model.Question{ID: uuid.New(), Options: []model.Option{{ID: "", IsCorrect: true}}}
	answers, score := gradeAnswers([]model.Question{q}, []model.CreateSubmissionAnswer{
		{QuestionID: q.ID, SelectedOption: ""},
	})

	if score != 0 || answers[0].IsCorrect {
		t.Errorf("empty selection graded correct against empty-ID option")
	}
}

func TestGradeAnswersCarriesCodeAnswer(t *testing.T) {
	qs := gradingQuestions()[:1]
	answers, _ := gradeAnswers(qs, []model.CreateSubmissionAnswer{
		{QuestionID: qs[0].ID, SelectedOption: "a2", CodeAnswer: "print('x')"},
	})

	if answers[0].CodeAnswer != "print('x')" {
		t.Errorf("CodeAnswer = %q", answers[0].CodeAnswer)
	}
}
