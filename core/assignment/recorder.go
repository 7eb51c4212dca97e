package assignment

import (
	"context"

	"github.com/trezcool/paku/core"
)

var ErrAlreadyEvaluated = core.NewConflictError("This task has already been completed.")

// Recorder persists a self-evaluation and completes the assignment in a single transaction.
type Recorder struct {
	repo          Repository
	allowResubmit bool
}

func NewRecorder(repo Repository, conf *core.Config) *Recorder {
	return &Recorder{repo: repo, allowResubmit: conf.Evaluation.AllowResubmit}
}

// Submit records the sentiment of the calling participant on one of their assignments.
// Either both the evaluation and the Completed status are written, or neither is.
func (rec *Recorder) Submit(ctx context.Context, actor core.Actor, assignmentID, sentiment string) (Evaluation, error) {
	snt, err := ParseSentiment(sentiment)
	if err != nil {
		return Evaluation{}, core.NewValidationError(err, core.FieldError{Field: "sentiment", Error: "invalid sentiment value"})
	}
	if err = actor.RequireRole(core.RoleParticipant, "only participants can evaluate their tasks"); err != nil {
		return Evaluation{}, err
	}
	assignmentID = core.CleanString(assignmentID)

	var eval Evaluation
	err = rec.repo.WithinTx(ctx, func(repo Repository) error {
		a, err := repo.GetAssignmentForUpdate(ctx, assignmentID)
		if err != nil {
			return err
		}
		if a.ParticipantID != actor.ID {
			return ErrNotFound
		}
		if a.Status.IsFinal() && !rec.allowResubmit {
			return ErrAlreadyEvaluated
		}

		eval, err = repo.InsertEvaluation(ctx, Evaluation{
			AssignmentID:  a.ID,
			ParticipantID: actor.ID,
			Sentiment:     snt,
			EvaluatedAt:   NowFunc().UTC(),
		})
		if err != nil {
			return err
		}

		if a.Status == StatusCompleted {
			return nil // re-submission on an already completed assignment
		}
		// the row is locked, Completed wins whatever the status was
		return repo.SetStatus(ctx, a.ID, StatusCompleted)
	})
	if err != nil {
		return Evaluation{}, err
	}
	return eval, nil
}
