package service

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ledgerline/ledgerline/internal/domain/document"
	"github.com/ledgerline/ledgerline/internal/domain/numbering"
	ierr "github.com/ledgerline/ledgerline/internal/errors"
	"github.com/ledgerline/ledgerline/internal/types"
)

// TransitionService coordinates the first transition of a document out of
// DRAFT into a finalized status: the draft number is vacated with a
// transient placeholder, the next final number is computed and both the
// number and the target status are written in one transaction. A commit-time
// uniqueness violation means another transition claimed the same number
// first; the whole attempt is recomputed from scratch, up to the configured
// budget.
type TransitionService interface {
	TransitionToFinal(ctx context.Context, documentID string, targetStatus types.DocumentStatus) (*document.Document, error)
}

type transitionService struct {
	ServiceParams
	numberingSvc NumberingService
}

func NewTransitionService(params ServiceParams, numberingSvc NumberingService) TransitionService {
	return &transitionService{
		ServiceParams: params,
		numberingSvc:  numberingSvc,
	}
}

func (s *transitionService) TransitionToFinal(ctx context.Context, documentID string, targetStatus types.DocumentStatus) (*document.Document, error) {
	doc, err := s.DocumentRepo.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}

	// Re-finalizing is a no-op: the record is returned unchanged and no
	// number is reallocated.
	if doc.DocumentStatus.IsFinalized() {
		return doc, nil
	}

	if !targetStatus.IsFinalized() || !doc.DocumentType.CanTransition(types.DocumentStatusDraft, targetStatus) {
		return nil, ierr.NewErrorf("cannot transition %s from %s to %s",
			doc.DocumentType, doc.DocumentStatus, targetStatus).
			WithHint("The requested status change is not allowed for this document type").
			WithReportableDetails(map[string]any{
				"document_id":   documentID,
				"document_type": doc.DocumentType,
				"from":          doc.DocumentStatus,
				"to":            targetStatus,
			}).
			Mark(numbering.ErrInvalidTransition)
	}

	attempts := s.numbering().TransitionAttempts
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 10 * time.Millisecond
	bo.MaxInterval = 250 * time.Millisecond
	bo.Clock = s.clock()
	sleep := s.sleep()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		final, err := s.attemptTransition(ctx, documentID, targetStatus)
		if err == nil {
			return final, nil
		}

		if !isRetriableTransitionErr(err) {
			return nil, err
		}

		lastErr = err
		s.Logger.Warnw("transition lost the number race, recomputing",
			"document_id", documentID,
			"attempt", attempt,
			"error", err)

		if attempt < attempts {
			sleep(bo.NextBackOff())
		}
	}

	return nil, ierr.WithError(lastErr).
		WithHint("The document could not be numbered due to concurrent activity, please retry").
		WithReportableDetails(map[string]any{
			"document_id": documentID,
			"attempts":    attempts,
		}).
		Mark(numbering.ErrConcurrentNumberingConflict)
}

// attemptTransition runs one full placeholder-compute-write cycle inside a
// transaction. The document is re-read on every attempt so a retry never
// reuses a stale candidate.
func (s *transitionService) attemptTransition(ctx context.Context, documentID string, targetStatus types.DocumentStatus) (*document.Document, error) {
	var result *document.Document

	err := s.DB.WithTx(ctx, func(txCtx context.Context) error {
		doc, err := s.DocumentRepo.Get(txCtx, documentID)
		if err != nil {
			return err
		}

		// A concurrent caller finalized this document between attempts.
		if doc.DocumentStatus.IsFinalized() {
			result = doc
			return nil
		}

		scope, err := doc.Scope(numbering.NamespaceFinal)
		if err != nil {
			return err
		}

		// Vacate the draft number's unique-index slot before computing, so
		// two racing transitions collide on the index instead of silently
		// double-claiming a stale candidate.
		placeholder := numbering.NewPlaceholder(s.clock().Now())
		if err := s.DocumentRepo.UpdateNumber(txCtx, doc.ID, placeholder); err != nil {
			return err
		}

		allocation, err := s.numberingSvc.AllocateFinalNumber(txCtx, scope, types.DocumentStatusCanceled)
		if err != nil {
			return err
		}

		doc.Number = allocation.Number
		doc.DocumentStatus = targetStatus
		if err := s.DocumentRepo.Update(txCtx, doc); err != nil {
			return err
		}

		s.Logger.Infow("document finalized",
			"document_id", doc.ID,
			"number", doc.Number,
			"status", doc.DocumentStatus)

		result = doc
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// isRetriableTransitionErr reports whether a failed attempt should be
// recomputed: uniqueness violations and transaction timeouts both mean the
// attempt was aborted without partial state.
func isRetriableTransitionErr(err error) bool {
	return ierr.IsAlreadyExists(err) ||
		errors.Is(err, context.DeadlineExceeded)
}
