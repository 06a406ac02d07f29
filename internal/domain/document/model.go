package document

import (
	"context"
	"time"

	"github.com/ledgerline/ledgerline/internal/domain/numbering"
	"github.com/ledgerline/ledgerline/internal/types"
	"github.com/shopspring/decimal"
)

// Document is the engine's view of a business document record. The engine
// owns the numbering fields (Prefix, Number, IssueYear, DocumentStatus at
// the draft/final boundary); everything else belongs to the surrounding
// document-management subsystem.
type Document struct {
	ID             string               `db:"id" json:"id"`
	DocumentType   types.DocumentType   `db:"document_type" json:"document_type"`
	Prefix         string               `db:"prefix" json:"prefix"`
	Number         string               `db:"number" json:"number"`
	IssueDate      time.Time            `db:"issue_date" json:"issue_date"`
	IssueYear      int                  `db:"issue_year" json:"issue_year"`
	DocumentStatus types.DocumentStatus `db:"document_status" json:"document_status"`
	Total          decimal.Decimal      `db:"total" json:"total"`
	Currency       string               `db:"currency" json:"currency"`
	Memo           string               `db:"memo" json:"memo"`
	types.BaseModel
}

// New returns a document shell with identity and audit fields populated
// from the workspace-scoped context.
func New(ctx context.Context, documentType types.DocumentType) *Document {
	return &Document{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_DOCUMENT),
		DocumentType:   documentType,
		DocumentStatus: types.DocumentStatusDraft,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
}

// Namespace reports which numbering namespace the stored number belongs to.
// Placeholders and unallocated documents belong to neither and report false.
func (d *Document) Namespace() (numbering.Namespace, bool) {
	switch {
	case d.Number == "" || numbering.IsPlaceholder(d.Number):
		return "", false
	case numbering.IsDraftNumber(d.Number):
		return numbering.NamespaceDraft, true
	default:
		return numbering.NamespaceFinal, true
	}
}

// Scope derives the document's numbering scope from its own prefix and
// issue year, pointed at the requested namespace.
func (d *Document) Scope(ns numbering.Namespace) (numbering.ScopeKey, error) {
	key, err := numbering.ResolveScope(d.WorkspaceID, d.DocumentType, d.Prefix, d.IssueDate, ns == numbering.NamespaceDraft)
	if err != nil {
		return numbering.ScopeKey{}, err
	}
	// The record's stored issue year wins over the derived one; a document
	// issued in December and recorded in January keeps its fiscal year.
	if d.IssueYear != 0 {
		key.IssueYear = d.IssueYear
	}
	return key, nil
}

// Validate checks the fields the engine relies on.
func (d *Document) Validate() error {
	if d.WorkspaceID == "" {
		return NewValidationError("workspace_id", "must not be empty")
	}
	if err := d.DocumentType.Validate(); err != nil {
		return NewValidationError("document_type", err.Error())
	}
	if len(d.Prefix) > numbering.MaxPrefixLength {
		return NewValidationError("prefix", "exceeds maximum length")
	}
	if d.Total.IsNegative() {
		return NewValidationError("total", "must be non negative")
	}
	return nil
}
