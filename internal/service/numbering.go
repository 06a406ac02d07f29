package service

import (
	"context"

	"github.com/ledgerline/ledgerline/internal/domain/document"
	"github.com/ledgerline/ledgerline/internal/domain/numbering"
	ierr "github.com/ledgerline/ledgerline/internal/errors"
	"github.com/ledgerline/ledgerline/internal/types"
	"github.com/samber/lo"
)

// AllocationResult is the outcome of a number allocation: the number the
// requesting document gets to keep, and any pre-existing documents that had
// to be relocated to make room for it.
type AllocationResult struct {
	Number  string               `json:"number"`
	Renamed []*document.Document `json:"renamed,omitempty"`
}

// NumberingService computes candidate numbers and reconciles collisions.
// All computation is optimistic; the storage unique index remains the final
// arbiter and callers must treat write-time conflicts as retriable.
type NumberingService interface {
	// NextNumber computes the next sequential number for a scope. Read-only;
	// the race window it opens is closed by Reconcile and by the unique index.
	NextNumber(ctx context.Context, scope numbering.ScopeKey, excludeStatuses []types.DocumentStatus) (string, error)

	// AllocateDraftNumber picks the number for a new draft document, either
	// from the manual override or from the sequence, relocating conflicting
	// drafts as needed.
	AllocateDraftNumber(ctx context.Context, scope numbering.ScopeKey, manualNumber *string, forDocumentID string) (*AllocationResult, error)

	// AllocateFinalNumber picks the next free final number for a scope,
	// optionally excluding workflow statuses from the sequence scan.
	AllocateFinalNumber(ctx context.Context, scope numbering.ScopeKey, excludeStatuses ...types.DocumentStatus) (*AllocationResult, error)

	// Reconcile makes candidateNumber available to the document identified by
	// newDocumentID, relocating conflicting draft holders. Final-namespace
	// conflicts are rejected, never relocated.
	Reconcile(ctx context.Context, scope numbering.ScopeKey, candidateNumber string, newDocumentID string) (*AllocationResult, error)
}

type numberingService struct {
	ServiceParams
}

func NewNumberingService(params ServiceParams) NumberingService {
	return &numberingService{
		ServiceParams: params,
	}
}

func (s *numberingService) NextNumber(ctx context.Context, scope numbering.ScopeKey, excludeStatuses []types.DocumentStatus) (string, error) {
	next, width, err := s.nextSequence(ctx, scope, excludeStatuses)
	if err != nil {
		return "", err
	}
	return s.renderCandidate(scope, next, width)
}

// nextSequence scans the scope and returns the next sequence value along
// with the padding width of the widest existing number.
func (s *numberingService) nextSequence(ctx context.Context, scope numbering.ScopeKey, excludeStatuses []types.DocumentStatus) (int64, int, error) {
	docs, err := s.DocumentRepo.ListByScope(ctx, document.ScopeFilter{
		Scope:           scope,
		ExcludeStatuses: excludeStatuses,
	})
	if err != nil {
		return 0, 0, err
	}

	var max int64
	width := s.numbering().PadWidth
	for _, doc := range docs {
		// Legacy free-text numbers are skipped here; Reconcile still guards
		// them against exact-string collisions.
		seq, ok := numbering.ParseSequence(doc.Number)
		if !ok {
			continue
		}
		if seq > max {
			max = seq
		}
		if w := numbering.SequenceWidth(doc.Number); w > width {
			width = w
		}
	}

	return max + 1, width, nil
}

// renderCandidate formats a sequence value for the scope's namespace,
// applying the draft marker exactly once.
func (s *numberingService) renderCandidate(scope numbering.ScopeKey, seq int64, width int) (string, error) {
	base := numbering.FormatSequence(seq, width)
	if !scope.IsDraft() {
		return base, nil
	}
	return numbering.WrapDraft(base)
}

func (s *numberingService) AllocateDraftNumber(ctx context.Context, scope numbering.ScopeKey, manualNumber *string, forDocumentID string) (*AllocationResult, error) {
	if !scope.IsDraft() {
		return nil, ierr.NewError("draft allocation requires a draft-namespace scope").
			WithReportableDetails(map[string]any{
				"scope": scope,
			}).
			Mark(numbering.ErrInvalidScope)
	}

	if manual := types.FromNillableString(manualNumber); manual != "" {
		base := numbering.NormalizeManual(manual)
		if base == "" {
			return nil, ierr.NewError("manual number is empty after normalization").
				WithHint("Provide a non-empty document number").
				WithReportableDetails(map[string]any{
					"manual_number": manual,
				}).
				Mark(ierr.ErrValidation)
		}
		candidate, err := numbering.WrapDraft(base)
		if err != nil {
			return nil, err
		}
		res, err := s.Reconcile(ctx, scope, candidate, forDocumentID)
		if err != nil {
			if ierr.Is(err, numbering.ErrNumberingExhausted) {
				return nil, s.manualConflict(ctx, scope, candidate, err)
			}
			return nil, err
		}
		return res, nil
	}

	return s.allocateSequential(ctx, scope, nil)
}

func (s *numberingService) AllocateFinalNumber(ctx context.Context, scope numbering.ScopeKey, excludeStatuses ...types.DocumentStatus) (*AllocationResult, error) {
	if scope.IsDraft() {
		return nil, ierr.NewError("final allocation requires a final-namespace scope").
			WithReportableDetails(map[string]any{
				"scope": scope,
			}).
			Mark(numbering.ErrInvalidScope)
	}
	return s.allocateSequential(ctx, scope, excludeStatuses)
}

// allocateSequential computes the next sequence value and walks forward past
// exact-string conflicts (another writer's fresh claim, a canceled document
// still holding its slot, a legacy free-text number that happens to match).
// The candidate is never reused after a rejection.
func (s *numberingService) allocateSequential(ctx context.Context, scope numbering.ScopeKey, excludeStatuses []types.DocumentStatus) (*AllocationResult, error) {
	next, width, err := s.nextSequence(ctx, scope, excludeStatuses)
	if err != nil {
		return nil, err
	}

	attempts := s.numbering().RenameAttempts
	for i := 0; i < attempts; i++ {
		candidate, err := s.renderCandidate(scope, next+int64(i), width)
		if err != nil {
			return nil, err
		}

		conflicts, err := s.DocumentRepo.FindByNumber(ctx, scope, candidate)
		if err != nil {
			return nil, err
		}
		if len(conflicts) == 0 {
			return &AllocationResult{Number: candidate}, nil
		}

		s.Logger.Debugw("sequential candidate already claimed, advancing",
			"candidate", candidate,
			"scope", scope)
	}

	return nil, ierr.NewError("could not find a free sequential number").
		WithHint("Please retry the operation").
		WithReportableDetails(map[string]any{
			"scope":    scope,
			"attempts": attempts,
		}).
		Mark(numbering.ErrNumberingExhausted)
}

func (s *numberingService) Reconcile(ctx context.Context, scope numbering.ScopeKey, candidateNumber string, newDocumentID string) (*AllocationResult, error) {
	conflicts, err := s.DocumentRepo.FindByNumber(ctx, scope, candidateNumber)
	if err != nil {
		return nil, err
	}

	// The requesting document itself is not a conflict; retried requests
	// re-reconcile the number they already hold.
	conflicts = lo.Filter(conflicts, func(d *document.Document, _ int) bool {
		return d.ID != newDocumentID
	})

	if len(conflicts) == 0 {
		return &AllocationResult{Number: candidateNumber}, nil
	}

	if !scope.IsDraft() {
		// Finalized documents are immutable and possibly externally
		// referenced; they never yield their number.
		return nil, ierr.NewError("number is held by a finalized document").
			WithHintf("Number %s is already in use", candidateNumber).
			WithReportableDetails(map[string]any{
				"number": candidateNumber,
				"scope":  scope,
			}).
			Mark(numbering.ErrFinalNumberTaken)
	}

	renamed, err := s.relocateConflicts(ctx, scope, conflicts)
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("relocated conflicting drafts",
		"candidate", candidateNumber,
		"scope", scope,
		"relocated", len(renamed))

	return &AllocationResult{
		Number:  candidateNumber,
		Renamed: renamed,
	}, nil
}

// manualConflict reports an unreconcilable manual number, offering a free
// disambiguated alternative when one exists.
func (s *numberingService) manualConflict(ctx context.Context, scope numbering.ScopeKey, candidate string, cause error) error {
	details := map[string]any{
		"number": candidate,
	}

	alternative := numbering.Disambiguate(candidate, s.clock().Now().UnixNano())
	if existing, err := s.DocumentRepo.FindByNumber(ctx, scope, alternative); err == nil && len(existing) == 0 {
		details["suggested_number"] = alternative
	}

	return ierr.WithError(cause).
		WithHintf("Number %s is already in use and could not be reconciled", candidate).
		WithReportableDetails(details).
		Mark(numbering.ErrManualNumberConflict)
}

// relocateConflicts moves every conflicting draft to a disambiguated number.
// FindByNumber returns documents newest first, so the most recent holder is
// relocated first; each relocation takes a distinct disambiguator.
func (s *numberingService) relocateConflicts(ctx context.Context, scope numbering.ScopeKey, conflicts []*document.Document) ([]*document.Document, error) {
	renamed := make([]*document.Document, 0, len(conflicts))
	disambiguator := s.clock().Now().UnixNano()

	for _, conflict := range conflicts {
		relocated, next, err := s.relocateOne(ctx, scope, conflict, disambiguator)
		if err != nil {
			return nil, err
		}
		renamed = append(renamed, relocated)
		disambiguator = next
	}

	return renamed, nil
}

// relocateOne renames a single conflicting draft, re-checking the
// disambiguated form before committing and bumping the disambiguator on
// residual conflicts. The stored number is reused verbatim, so a relocated
// draft can never gain a second marker.
func (s *numberingService) relocateOne(ctx context.Context, scope numbering.ScopeKey, conflict *document.Document, disambiguator int64) (*document.Document, int64, error) {
	attempts := s.numbering().RenameAttempts

	for i := 0; i < attempts; i++ {
		candidate := numbering.Disambiguate(conflict.Number, disambiguator)
		disambiguator++

		existing, err := s.DocumentRepo.FindByNumber(ctx, scope, candidate)
		if err != nil {
			return nil, 0, err
		}
		if len(existing) > 0 {
			continue
		}

		err = s.DocumentRepo.UpdateNumber(ctx, conflict.ID, candidate)
		if err != nil {
			// The index caught a racing claim on the disambiguated form;
			// bump the disambiguator and try again.
			if ierr.IsAlreadyExists(err) {
				continue
			}
			return nil, 0, err
		}

		s.Logger.Infow("relocated conflicting draft",
			"document_id", conflict.ID,
			"from", conflict.Number,
			"to", candidate)

		relocated := *conflict
		relocated.Number = candidate
		return &relocated, disambiguator, nil
	}

	return nil, 0, ierr.NewError("could not disambiguate conflicting draft").
		WithHint("Document number conflict could not be resolved automatically").
		WithReportableDetails(map[string]any{
			"document_id": conflict.ID,
			"number":      conflict.Number,
			"attempts":    attempts,
		}).
		Mark(numbering.ErrNumberingExhausted)
}
