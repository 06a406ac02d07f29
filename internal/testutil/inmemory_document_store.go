package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ledgerline/ledgerline/internal/domain/document"
	"github.com/ledgerline/ledgerline/internal/domain/numbering"
	ierr "github.com/ledgerline/ledgerline/internal/errors"
	"github.com/ledgerline/ledgerline/internal/types"
)

// InMemoryDocumentStore emulates the documents table including its compound
// unique index on (workspace_id, document_type, prefix, issue_year, number):
// any write that would duplicate a live number is rejected with the same
// ErrAlreadyExists-marked error the postgres repository produces. Tests can
// additionally inject write conflicts to simulate concurrent writers losing
// the index race deterministically.
type InMemoryDocumentStore struct {
	mu        sync.RWMutex
	documents map[string]*document.Document

	// pending injected conflicts: the next N number-writing operations fail
	// with a unique-violation error without being applied
	injectedConflicts int

	// OnUpdateNumber, when set, runs before a number update is applied. It
	// lets tests insert a concurrent claimant between compute and write.
	OnUpdateNumber func(ctx context.Context, id string, number string)
}

func NewInMemoryDocumentStore() *InMemoryDocumentStore {
	return &InMemoryDocumentStore{
		documents: make(map[string]*document.Document),
	}
}

// InjectWriteConflicts makes the next n number-writing operations fail with
// a unique-violation error, simulating concurrent writers winning the index
// race.
func (s *InMemoryDocumentStore) InjectWriteConflicts(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.injectedConflicts = n
}

func (s *InMemoryDocumentStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = make(map[string]*document.Document)
	s.injectedConflicts = 0
	s.OnUpdateNumber = nil
}

func (s *InMemoryDocumentStore) Create(ctx context.Context, doc *document.Document) error {
	if doc == nil {
		return fmt.Errorf("document cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.documents[doc.ID]; exists {
		return ierr.NewError("document already exists").
			WithReportableDetails(map[string]any{"document_id": doc.ID}).
			Mark(ierr.ErrAlreadyExists)
	}

	if err := s.takeInjectedConflictLocked(doc.Number); err != nil {
		return err
	}
	if err := s.checkUniqueLocked(doc, doc.Number); err != nil {
		return err
	}

	copied := *doc
	s.documents[doc.ID] = &copied
	return nil
}

// ForceCreate inserts a document without the unique-number check. It seeds
// the historical duplicate rows that predate the unique index, which is the
// state the repair tooling exists to clean up.
func (s *InMemoryDocumentStore) ForceCreate(doc *document.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *doc
	s.documents[doc.ID] = &copied
}

func (s *InMemoryDocumentStore) Get(ctx context.Context, id string) (*document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, exists := s.documents[id]
	if !exists || doc.Status == types.StatusDeleted {
		return nil, ierr.WithError(document.ErrDocumentNotFound).
			WithHintf("Document with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}

	copied := *doc
	return &copied, nil
}

func (s *InMemoryDocumentStore) Update(ctx context.Context, doc *document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.documents[doc.ID]
	if !exists || existing.Status == types.StatusDeleted {
		return ierr.WithError(document.ErrDocumentNotFound).
			WithHintf("Document with ID %s was not found", doc.ID).
			Mark(ierr.ErrNotFound)
	}

	if doc.Number != existing.Number {
		if err := s.takeInjectedConflictLocked(doc.Number); err != nil {
			return err
		}
	}
	if err := s.checkUniqueLocked(doc, doc.Number); err != nil {
		return err
	}

	copied := *doc
	s.documents[doc.ID] = &copied
	return nil
}

func (s *InMemoryDocumentStore) UpdateNumber(ctx context.Context, id string, number string) error {
	if hook := s.OnUpdateNumber; hook != nil {
		hook(ctx, id, number)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.documents[id]
	if !exists || existing.Status == types.StatusDeleted {
		return ierr.WithError(document.ErrDocumentNotFound).
			WithHintf("Document with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}

	if err := s.takeInjectedConflictLocked(number); err != nil {
		return err
	}
	if err := s.checkUniqueLocked(existing, number); err != nil {
		return err
	}

	existing.Number = number
	return nil
}

func (s *InMemoryDocumentStore) ListByScope(ctx context.Context, filter document.ScopeFilter) ([]*document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	excluded := make(map[types.DocumentStatus]bool, len(filter.ExcludeStatuses))
	for _, st := range filter.ExcludeStatuses {
		excluded[st] = true
	}

	var result []*document.Document
	for _, doc := range s.documents {
		if !inScope(doc, filter.Scope) {
			continue
		}
		if !inNamespace(doc.Number, filter.Scope.Namespace) {
			continue
		}
		if excluded[doc.DocumentStatus] {
			continue
		}
		copied := *doc
		result = append(result, &copied)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

func (s *InMemoryDocumentStore) FindByNumber(ctx context.Context, scope numbering.ScopeKey, number string) ([]*document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*document.Document
	for _, doc := range s.documents {
		if !inScope(doc, scope) {
			continue
		}
		if doc.Number != number {
			continue
		}
		copied := *doc
		result = append(result, &copied)
	}

	// newest first, matching the repository's created_at DESC ordering
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	return result, nil
}

func (s *InMemoryDocumentStore) Count(ctx context.Context, filter document.ScopeFilter) (int, error) {
	docs, err := s.ListByScope(ctx, filter)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

func (s *InMemoryDocumentStore) ListDuplicateNumbers(ctx context.Context, workspaceID string) ([]document.DuplicateGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type groupKey struct {
		documentType types.DocumentType
		prefix       string
		issueYear    int
		number       string
	}

	grouped := make(map[groupKey][]*document.Document)
	for _, doc := range s.documents {
		if doc.WorkspaceID != workspaceID || doc.Status == types.StatusDeleted || doc.Number == "" {
			continue
		}
		key := groupKey{doc.DocumentType, doc.Prefix, doc.IssueYear, doc.Number}
		copied := *doc
		grouped[key] = append(grouped[key], &copied)
	}

	var groups []document.DuplicateGroup
	for key, docs := range grouped {
		if len(docs) < 2 {
			continue
		}
		sort.Slice(docs, func(i, j int) bool {
			if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
				return docs[i].CreatedAt.After(docs[j].CreatedAt)
			}
			return docs[i].ID > docs[j].ID
		})
		groups = append(groups, document.DuplicateGroup{
			DocumentType: key.documentType,
			Prefix:       key.prefix,
			IssueYear:    key.issueYear,
			Number:       key.number,
			Documents:    docs,
		})
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Number < groups[j].Number
	})

	return groups, nil
}

func (s *InMemoryDocumentStore) takeInjectedConflictLocked(number string) error {
	if s.injectedConflicts <= 0 || number == "" {
		return nil
	}
	s.injectedConflicts--
	return numberTakenErr("", number)
}

// checkUniqueLocked rejects a write that would duplicate a live number
// within the document's scope, mirroring the storage unique index.
func (s *InMemoryDocumentStore) checkUniqueLocked(doc *document.Document, number string) error {
	if number == "" {
		return nil
	}
	for _, other := range s.documents {
		if other.ID == doc.ID || other.Status == types.StatusDeleted {
			continue
		}
		if other.WorkspaceID == doc.WorkspaceID &&
			other.DocumentType == doc.DocumentType &&
			other.Prefix == doc.Prefix &&
			other.IssueYear == doc.IssueYear &&
			other.Number == number {
			return numberTakenErr(doc.ID, number)
		}
	}
	return nil
}

func numberTakenErr(documentID, number string) error {
	return ierr.WithError(document.ErrNumberTaken).
		WithHint("A document with the same number already exists in this scope").
		WithReportableDetails(map[string]any{
			"document_id": documentID,
			"number":      number,
		}).
		Mark(ierr.ErrAlreadyExists)
}

func inScope(doc *document.Document, scope numbering.ScopeKey) bool {
	return doc.Status != types.StatusDeleted &&
		doc.WorkspaceID == scope.WorkspaceID &&
		doc.DocumentType == scope.DocumentType &&
		doc.Prefix == scope.Prefix &&
		doc.IssueYear == scope.IssueYear
}

func inNamespace(number string, ns numbering.Namespace) bool {
	switch ns {
	case numbering.NamespaceDraft:
		return strings.HasPrefix(number, numbering.DraftMarker)
	default:
		return number != "" &&
			!strings.HasPrefix(number, numbering.DraftMarker) &&
			!strings.HasPrefix(number, numbering.PlaceholderMarker)
	}
}
