package types

import (
	"fmt"
	"time"

	"github.com/samber/lo"
)

// DocumentType identifies the kind of business document being numbered.
type DocumentType string

const (
	DocumentTypeInvoice       DocumentType = "INVOICE"
	DocumentTypeQuote         DocumentType = "QUOTE"
	DocumentTypePurchaseOrder DocumentType = "PURCHASE_ORDER"
	DocumentTypeCreditNote    DocumentType = "CREDIT_NOTE"
)

func (t DocumentType) Validate() error {
	if _, ok := documentTypeConfigs[t]; !ok {
		return fmt.Errorf("invalid document type: %s", t)
	}
	return nil
}

// DocumentStatus is the workflow state of a document. DRAFT is the initial
// state for every type; every other status counts as finalized.
type DocumentStatus string

const (
	DocumentStatusDraft      DocumentStatus = "DRAFT"
	DocumentStatusPending    DocumentStatus = "PENDING"
	DocumentStatusConfirmed  DocumentStatus = "CONFIRMED"
	DocumentStatusInProgress DocumentStatus = "IN_PROGRESS"
	DocumentStatusCompleted  DocumentStatus = "COMPLETED"
	DocumentStatusDelivered  DocumentStatus = "DELIVERED"
	DocumentStatusCanceled   DocumentStatus = "CANCELED"
)

// IsFinalized reports whether the status is any state other than DRAFT.
func (s DocumentStatus) IsFinalized() bool {
	return s != DocumentStatusDraft
}

// DocumentTypeConfig holds the per-type numbering and workflow rules:
// the default prefix convention and the allowed-transition graph.
type DocumentTypeConfig struct {
	// DefaultPrefix derives the fiscal-period prefix from the issue date.
	DefaultPrefix func(issueDate time.Time) string
	// Transitions maps each status to the statuses reachable from it.
	// CANCELED is reachable from every non-terminal status.
	Transitions map[DocumentStatus][]DocumentStatus
}

var documentTypeConfigs = map[DocumentType]DocumentTypeConfig{
	DocumentTypeInvoice: {
		DefaultPrefix: func(d time.Time) string { return fmt.Sprintf("F-%s-", d.Format("200601")) },
		Transitions: map[DocumentStatus][]DocumentStatus{
			DocumentStatusDraft:   {DocumentStatusPending, DocumentStatusCanceled},
			DocumentStatusPending: {DocumentStatusCompleted, DocumentStatusCanceled},
		},
	},
	DocumentTypeQuote: {
		DefaultPrefix: func(d time.Time) string { return fmt.Sprintf("D-%s-", d.Format("200601")) },
		Transitions: map[DocumentStatus][]DocumentStatus{
			DocumentStatusDraft:     {DocumentStatusPending, DocumentStatusCanceled},
			DocumentStatusPending:   {DocumentStatusConfirmed, DocumentStatusCanceled},
			DocumentStatusConfirmed: {DocumentStatusCanceled},
		},
	},
	DocumentTypePurchaseOrder: {
		DefaultPrefix: func(d time.Time) string { return fmt.Sprintf("BC-%s", d.Format("200601")) },
		Transitions: map[DocumentStatus][]DocumentStatus{
			DocumentStatusDraft:      {DocumentStatusConfirmed, DocumentStatusCanceled},
			DocumentStatusConfirmed:  {DocumentStatusInProgress, DocumentStatusCanceled},
			DocumentStatusInProgress: {DocumentStatusDelivered, DocumentStatusCanceled},
		},
	},
	DocumentTypeCreditNote: {
		DefaultPrefix: func(d time.Time) string { return fmt.Sprintf("A-%s-", d.Format("200601")) },
		Transitions: map[DocumentStatus][]DocumentStatus{
			DocumentStatusDraft:   {DocumentStatusPending, DocumentStatusCanceled},
			DocumentStatusPending: {DocumentStatusCompleted, DocumentStatusCanceled},
		},
	},
}

// GetDocumentTypeConfig returns the numbering and workflow rules for a type.
func GetDocumentTypeConfig(t DocumentType) (DocumentTypeConfig, error) {
	cfg, ok := documentTypeConfigs[t]
	if !ok {
		return DocumentTypeConfig{}, fmt.Errorf("invalid document type: %s", t)
	}
	return cfg, nil
}

// DefaultPrefix returns the type's default prefix for the given issue date.
func (t DocumentType) DefaultPrefix(issueDate time.Time) string {
	cfg, ok := documentTypeConfigs[t]
	if !ok {
		return ""
	}
	return cfg.DefaultPrefix(issueDate)
}

// CanTransition reports whether moving a document of this type from one
// status to another is allowed by the type's transition graph.
func (t DocumentType) CanTransition(from, to DocumentStatus) bool {
	cfg, ok := documentTypeConfigs[t]
	if !ok {
		return false
	}
	return lo.Contains(cfg.Transitions[from], to)
}

// FinalizationTargets returns the statuses a DRAFT document of this type may
// move to directly, excluding cancellation.
func (t DocumentType) FinalizationTargets() []DocumentStatus {
	cfg, ok := documentTypeConfigs[t]
	if !ok {
		return nil
	}
	return lo.Filter(cfg.Transitions[DocumentStatusDraft], func(s DocumentStatus, _ int) bool {
		return s != DocumentStatusCanceled
	})
}
