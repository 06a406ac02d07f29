package numbering

import (
	"time"

	ierr "github.com/ledgerline/ledgerline/internal/errors"
	"github.com/ledgerline/ledgerline/internal/types"
)

// Namespace separates the draft and final numbering domains of a scope.
type Namespace string

const (
	NamespaceDraft Namespace = "draft"
	NamespaceFinal Namespace = "final"
)

// MaxPrefixLength bounds the user-controllable prefix component of a scope.
const MaxPrefixLength = 10

// ScopeKey identifies the domain within which document numbers must be
// unique: one workspace, one document type, one fiscal-period prefix, one
// issue year, one namespace. It is derived, never persisted.
type ScopeKey struct {
	WorkspaceID  string             `json:"workspace_id"`
	DocumentType types.DocumentType `json:"document_type"`
	Prefix       string             `json:"prefix"`
	IssueYear    int                `json:"issue_year"`
	Namespace    Namespace          `json:"namespace"`
}

// IsDraft reports whether the scope addresses the draft namespace.
func (k ScopeKey) IsDraft() bool {
	return k.Namespace == NamespaceDraft
}

// WithNamespace returns a copy of the scope pointing at the given namespace.
func (k ScopeKey) WithNamespace(ns Namespace) ScopeKey {
	k.Namespace = ns
	return k
}

// ResolveScope derives the numbering scope from a request. Every consumer of
// the engine normalizes through this single function; ad hoc prefix
// concatenation is what historically produced double-prefixed draft numbers.
//
// The prefix defaults to the document type's convention for the issue date,
// and the issue date defaults to now when zero. Pure: no side effects.
func ResolveScope(workspaceID string, documentType types.DocumentType, prefix string, issueDate time.Time, draft bool) (ScopeKey, error) {
	if workspaceID == "" {
		return ScopeKey{}, ierr.NewError("workspace id is required").
			WithHint("A workspace must be selected before numbering documents").
			Mark(ErrInvalidScope)
	}

	if err := documentType.Validate(); err != nil {
		return ScopeKey{}, ierr.WithError(err).
			WithHint("Unknown document type").
			WithReportableDetails(map[string]any{
				"document_type": documentType,
			}).
			Mark(ErrInvalidScope)
	}

	if issueDate.IsZero() {
		issueDate = time.Now().UTC()
	}

	if prefix == "" {
		prefix = documentType.DefaultPrefix(issueDate)
	}

	if len(prefix) > MaxPrefixLength {
		return ScopeKey{}, ierr.NewErrorf("prefix exceeds %d characters", MaxPrefixLength).
			WithHint("Use a shorter document number prefix").
			WithReportableDetails(map[string]any{
				"prefix": prefix,
			}).
			Mark(ErrInvalidScope)
	}

	namespace := NamespaceFinal
	if draft {
		namespace = NamespaceDraft
	}

	return ScopeKey{
		WorkspaceID:  workspaceID,
		DocumentType: documentType,
		Prefix:       prefix,
		IssueYear:    issueDate.Year(),
		Namespace:    namespace,
	}, nil
}
