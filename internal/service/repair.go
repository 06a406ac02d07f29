package service

import (
	"context"

	"github.com/ledgerline/ledgerline/internal/domain/document"
	"github.com/ledgerline/ledgerline/internal/domain/numbering"
)

// RepairReport summarizes a duplicate-number audit or repair run.
type RepairReport struct {
	GroupsFound  int                       `json:"groups_found"`
	Relocated    []*document.Document      `json:"relocated,omitempty"`
	SkippedFinal []document.DuplicateGroup `json:"skipped_final,omitempty"`
	DryRun       bool                      `json:"dry_run"`
}

// RepairService audits a workspace for documents erroneously sharing a
// number and repairs draft-namespace duplicates through the renamer. It
// replaces the ad hoc repair scripts that used to chase these conflicts:
// duplicates stopped being routine once the unique index became the write
// arbiter, but historical rows may still carry them.
type RepairService interface {
	FindDuplicateNumbers(ctx context.Context, workspaceID string) ([]document.DuplicateGroup, error)
	RepairDuplicateNumbers(ctx context.Context, workspaceID string, dryRun bool) (*RepairReport, error)
}

type repairService struct {
	ServiceParams
	numberingSvc NumberingService
}

func NewRepairService(params ServiceParams, numberingSvc NumberingService) RepairService {
	return &repairService{
		ServiceParams: params,
		numberingSvc:  numberingSvc,
	}
}

func (s *repairService) FindDuplicateNumbers(ctx context.Context, workspaceID string) ([]document.DuplicateGroup, error) {
	return s.DocumentRepo.ListDuplicateNumbers(ctx, workspaceID)
}

func (s *repairService) RepairDuplicateNumbers(ctx context.Context, workspaceID string, dryRun bool) (*RepairReport, error) {
	groups, err := s.FindDuplicateNumbers(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	report := &RepairReport{
		GroupsFound: len(groups),
		DryRun:      dryRun,
	}

	for _, group := range groups {
		// Finalized numbers are never renamed automatically; these need a
		// human decision and are only reported.
		if !numbering.IsDraftNumber(group.Number) {
			s.Logger.Errorw("finalized documents share a number, manual intervention required",
				"workspace_id", workspaceID,
				"document_type", group.DocumentType,
				"prefix", group.Prefix,
				"issue_year", group.IssueYear,
				"number", group.Number,
				"count", len(group.Documents))
			report.SkippedFinal = append(report.SkippedFinal, group)
			continue
		}

		if dryRun || len(group.Documents) == 0 {
			continue
		}

		scope := numbering.ScopeKey{
			WorkspaceID:  workspaceID,
			DocumentType: group.DocumentType,
			Prefix:       group.Prefix,
			IssueYear:    group.IssueYear,
			Namespace:    numbering.NamespaceDraft,
		}

		// Documents come back newest first; the most recent keeps the
		// number, everything older is relocated.
		keeper := group.Documents[0]
		result, err := s.numberingSvc.Reconcile(ctx, scope, group.Number, keeper.ID)
		if err != nil {
			return nil, err
		}
		report.Relocated = append(report.Relocated, result.Renamed...)
	}

	return report, nil
}
