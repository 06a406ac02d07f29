package document

import (
	"context"

	"github.com/ledgerline/ledgerline/internal/domain/numbering"
	"github.com/ledgerline/ledgerline/internal/types"
)

// ScopeFilter selects the live documents of one numbering scope, optionally
// excluding workflow statuses from the scan (e.g. drafts and cancellations
// when computing the next strictly increasing final number).
type ScopeFilter struct {
	Scope           numbering.ScopeKey
	ExcludeStatuses []types.DocumentStatus
}

// DuplicateGroup is a set of live documents erroneously sharing one number
// inside one scope, as surfaced by the repair tooling.
type DuplicateGroup struct {
	DocumentType types.DocumentType
	Prefix       string
	IssueYear    int
	Number       string
	Documents    []*Document
}

// Repository defines the interface for document persistence operations.
// Create, Update and UpdateNumber must surface storage-level uniqueness
// violations marked as ierr.ErrAlreadyExists; the unique index is the final
// arbiter of number ownership.
type Repository interface {
	// Create creates a new document
	Create(ctx context.Context, doc *Document) error

	// Get retrieves a document by ID
	Get(ctx context.Context, id string) (*Document, error)

	// Update updates an existing document
	Update(ctx context.Context, doc *Document) error

	// UpdateNumber rewrites only the number of an existing document
	UpdateNumber(ctx context.Context, id string, number string) error

	// ListByScope retrieves live documents matching the scope filter
	ListByScope(ctx context.Context, filter ScopeFilter) ([]*Document, error)

	// FindByNumber retrieves live documents in a scope holding the exact number
	FindByNumber(ctx context.Context, scope numbering.ScopeKey, number string) ([]*Document, error)

	// Count returns the number of live documents matching the scope filter
	Count(ctx context.Context, filter ScopeFilter) (int, error)

	// ListDuplicateNumbers returns groups of live documents sharing a number
	// within a scope of the workspace
	ListDuplicateNumbers(ctx context.Context, workspaceID string) ([]DuplicateGroup, error)
}
