package service

import (
	"context"
	"time"

	"github.com/ledgerline/ledgerline/internal/domain/document"
	"github.com/ledgerline/ledgerline/internal/domain/numbering"
	ierr "github.com/ledgerline/ledgerline/internal/errors"
	"github.com/ledgerline/ledgerline/internal/types"
	"github.com/ledgerline/ledgerline/internal/validator"
	"github.com/shopspring/decimal"
)

// CreateDocumentRequest carries what the engine needs from a
// document-creation workflow. The surrounding subsystem owns everything
// else about the document's content.
type CreateDocumentRequest struct {
	DocumentType types.DocumentType `json:"document_type" validate:"required"`
	Prefix       string             `json:"prefix" validate:"omitempty,max=10"`
	IssueDate    time.Time          `json:"issue_date"`
	ManualNumber *string            `json:"manual_number,omitempty"`
	Total        decimal.Decimal    `json:"total"`
	Currency     string             `json:"currency" validate:"omitempty,len=3"`
	Memo         string             `json:"memo"`
}

// DocumentService is the engine's entry point for document-creation
// workflows: every new document starts life as a draft with a
// draft-namespace number.
type DocumentService interface {
	CreateDraft(ctx context.Context, req CreateDocumentRequest) (*document.Document, error)
	Get(ctx context.Context, id string) (*document.Document, error)
}

type documentService struct {
	ServiceParams
	numberingSvc NumberingService
}

func NewDocumentService(params ServiceParams, numberingSvc NumberingService) DocumentService {
	return &documentService{
		ServiceParams: params,
		numberingSvc:  numberingSvc,
	}
}

func (s *documentService) CreateDraft(ctx context.Context, req CreateDocumentRequest) (*document.Document, error) {
	if err := validator.ValidateRequest(req); err != nil {
		return nil, err
	}

	issueDate := req.IssueDate
	if issueDate.IsZero() {
		issueDate = s.clock().Now()
	}

	scope, err := numbering.ResolveScope(types.GetWorkspaceID(ctx), req.DocumentType, req.Prefix, issueDate, true)
	if err != nil {
		return nil, err
	}

	doc := document.New(ctx, req.DocumentType)
	doc.Prefix = scope.Prefix
	doc.IssueDate = issueDate.UTC()
	doc.IssueYear = scope.IssueYear
	doc.Total = req.Total
	doc.Currency = req.Currency
	doc.Memo = req.Memo

	if err := doc.Validate(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid document").
			Mark(ierr.ErrValidation)
	}

	// The allocation is optimistic; the insert below revalidates it against
	// the unique index, and an auto-numbered draft that loses the race is
	// recomputed with a fresh candidate.
	attempts := s.numbering().TransitionAttempts
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := s.DB.WithTx(ctx, func(txCtx context.Context) error {
			allocation, err := s.numberingSvc.AllocateDraftNumber(txCtx, scope, req.ManualNumber, doc.ID)
			if err != nil {
				return err
			}
			doc.Number = allocation.Number
			return s.DocumentRepo.Create(txCtx, doc)
		})
		if err == nil {
			s.Logger.Infow("created draft document",
				"document_id", doc.ID,
				"number", doc.Number,
				"document_type", doc.DocumentType)
			return doc, nil
		}
		if !ierr.IsAlreadyExists(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, ierr.WithError(lastErr).
		WithHint("The document could not be numbered due to concurrent activity, please retry").
		WithReportableDetails(map[string]any{
			"document_id": doc.ID,
		}).
		Mark(numbering.ErrConcurrentNumberingConflict)
}

func (s *documentService) Get(ctx context.Context, id string) (*document.Document, error) {
	return s.DocumentRepo.Get(ctx, id)
}
