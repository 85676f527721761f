package session

import (
	"context"
	"fmt"

	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/invigilo/invigilo-backend/internal/proctor"
	"github.com/rs/zerolog"
)

// SubmissionAPI is the single write path for durable submissions.
type SubmissionAPI interface {
	CreateSubmission(ctx context.Context, req model.CreateSubmissionRequest) (*model.Submission, error)
}

// CheatingLogAPI persists finalized violation logs for teacher review.
type CheatingLogAPI interface {
	SaveCheatingLog(ctx context.Context, req model.SaveCheatingLogRequest) (*model.CheatingLog, error)
}

// Result reports what the reconciler managed to persist. The submission and
// the cheating log are separate records written by separate calls; they are
// not atomic with each other. CheatingLogErr is non-nil when the submission
// succeeded but the log write failed.
type Result struct {
	Submission     *model.Submission
	CheatingLog    *model.CheatingLog
	CheatingLogErr error
}

// Reconciler assembles one durable submission from the attempt state and the
// session log snapshot, and persists both records.
type Reconciler struct {
	submissions SubmissionAPI
	cheatLogs   CheatingLogAPI
	log         zerolog.Logger
}

// NewReconciler creates a reconciler over the two persistence APIs.
func NewReconciler(submissions SubmissionAPI, cheatLogs CheatingLogAPI, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		submissions: submissions,
		cheatLogs:   cheatLogs,
		log:         log.With().Str("component", "submission_reconciler").Logger(),
	}
}

// GradeAnswers builds the ordered answer list for the submission. For each
// question the option flagged correct is compared by identity with the
// student's selection; an empty selection is simply incorrect, never an
// error. The returned score is the number of correct answers.
func GradeAnswers(questions []model.Question, answers map[string]string) ([]model.SubmissionAnswer, int) {
	graded := make([]model.SubmissionAnswer, 0, len(questions))
	score := 0

	for _, q := range questions {
		selected := answers[q.ID.String()]
		correct := q.CorrectOption()
		isCorrect := correct != nil && selected != "" && correct.ID == selected
		if isCorrect {
			score++
		}
		graded = append(graded, model.SubmissionAnswer{
			QuestionID:     q.ID,
			SelectedOption: selected,
			IsCorrect:      isCorrect,
		})
	}

	return graded, score
}

// Submit persists the attempt as one Submission, then the session log as one
// CheatingLog.
//
// Ordering decision: the submission is written first, it is the record the
// student's result hangs off. If it fails, nothing has been persisted and
// the caller's local state is untouched; the error is returned so the
// student can retry explicitly. A cheating-log failure after a successful
// submission does not undo the submission; it is logged and reported in the
// Result for the caller to surface.
func (r *Reconciler) Submit(
	ctx context.Context,
	state State,
	questions []model.Question,
	logSnap proctor.Snapshot,
	status model.SubmissionStatus,
	attemptNumber int,
	reason string,
) (*Result, error) {
	byID := make(map[string]string, len(state.Answers))
	for qid, sel := range state.Answers {
		byID[qid.String()] = sel
	}

	graded, score := GradeAnswers(questions, byID)

	subReq := model.CreateSubmissionRequest{
		ExamID:        state.ExamID,
		AttemptNumber: attemptNumber,
		Status:        status,
		Reason:        reason,
		CodingAnswer:  state.CodingAnswer,
	}
	for _, g := range graded {
		subReq.Answers = append(subReq.Answers, model.CreateSubmissionAnswer{
			QuestionID:     g.QuestionID,
			SelectedOption: g.SelectedOption,
		})
	}

	sub, err := r.submissions.CreateSubmission(ctx, subReq)
	if err != nil {
		return nil, fmt.Errorf("persist submission: %w", err)
	}

	r.log.Info().
		Str("exam_id", state.ExamID.String()).
		Int("score", score).
		Int("total_violations", logSnap.TotalViolations).
		Msg("Submission persisted")

	res := &Result{Submission: sub}

	logReq := model.SaveCheatingLogRequest{
		ExamID:                logSnap.ExamID,
		Username:              logSnap.Username,
		Email:                 logSnap.Email,
		NoFaceCount:           logSnap.NoFaceCount,
		MultipleFaceCount:     logSnap.MultipleFaceCount,
		CellPhoneCount:        logSnap.CellPhoneCount,
		ProhibitedObjectCount: logSnap.ProhibitedObjectCount,
		Screenshots:           logSnap.Screenshots,
		Reason:                reason,
	}

	cheatLog, err := r.cheatLogs.SaveCheatingLog(ctx, logReq)
	if err != nil {
		r.log.Error().Err(err).
			Str("exam_id", logSnap.ExamID.String()).
			Msg("Cheating log persistence failed after successful submission")
		res.CheatingLogErr = err
		return res, nil
	}
	res.CheatingLog = cheatLog

	return res, nil
}
