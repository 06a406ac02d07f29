package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/ledgerline/ledgerline/internal/domain/document"
	"github.com/ledgerline/ledgerline/internal/domain/numbering"
	ierr "github.com/ledgerline/ledgerline/internal/errors"
	"github.com/ledgerline/ledgerline/internal/logger"
	dbc "github.com/ledgerline/ledgerline/internal/postgres"
	"github.com/ledgerline/ledgerline/internal/types"
	"github.com/lib/pq"
)

// UniqueScopeNumberConstraint is the compound unique index on
// (workspace_id, document_type, prefix, issue_year, number). It is the
// final arbiter of number ownership; every write path must expect it.
const UniqueScopeNumberConstraint = "idx_documents_scope_number_unique"

const pqUniqueViolation = "23505"

const documentColumns = `
	id, workspace_id, document_type, prefix,
	COALESCE(number, '') AS number,
	issue_date, issue_year, document_status,
	total, currency, memo,
	status, created_at, updated_at, created_by, updated_by`

type documentRepository struct {
	client dbc.IClient
	logger *logger.Logger
}

func NewDocumentRepository(client dbc.IClient, logger *logger.Logger) document.Repository {
	return &documentRepository{
		client: client,
		logger: logger,
	}
}

func (r *documentRepository) Create(ctx context.Context, doc *document.Document) error {
	q := r.client.Querier(ctx)

	_, err := q.ExecContext(ctx, `
		INSERT INTO documents (
			id, workspace_id, document_type, prefix, number,
			issue_date, issue_year, document_status,
			total, currency, memo,
			status, created_at, updated_at, created_by, updated_by
		) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		doc.ID, doc.WorkspaceID, doc.DocumentType, doc.Prefix, doc.Number,
		doc.IssueDate, doc.IssueYear, doc.DocumentStatus,
		doc.Total, doc.Currency, doc.Memo,
		doc.Status, doc.CreatedAt, doc.UpdatedAt, doc.CreatedBy, doc.UpdatedBy,
	)
	if err != nil {
		r.logger.Errorw("failed to create document", "error", err, "document_id", doc.ID)
		return r.wrapWriteError(err, doc.ID, doc.Number)
	}

	return nil
}

func (r *documentRepository) Get(ctx context.Context, id string) (*document.Document, error) {
	q := r.client.Querier(ctx)

	var doc document.Document
	err := q.GetContext(ctx, &doc, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE id = $1 AND status != $2`,
		id, types.StatusDeleted,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.WithError(document.ErrDocumentNotFound).
				WithHintf("Document with ID %s was not found", id).
				WithReportableDetails(map[string]any{
					"document_id": id,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to retrieve document").
			Mark(ierr.ErrDatabase)
	}

	return &doc, nil
}

func (r *documentRepository) Update(ctx context.Context, doc *document.Document) error {
	q := r.client.Querier(ctx)

	doc.UpdatedAt = time.Now().UTC()
	doc.UpdatedBy = types.GetUserID(ctx)

	res, err := q.ExecContext(ctx, `
		UPDATE documents SET
			prefix = $2,
			number = NULLIF($3, ''),
			issue_date = $4,
			issue_year = $5,
			document_status = $6,
			total = $7,
			currency = $8,
			memo = $9,
			status = $10,
			updated_at = $11,
			updated_by = $12
		WHERE id = $1 AND status != $13`,
		doc.ID, doc.Prefix, doc.Number, doc.IssueDate, doc.IssueYear,
		doc.DocumentStatus, doc.Total, doc.Currency, doc.Memo,
		doc.Status, doc.UpdatedAt, doc.UpdatedBy, types.StatusDeleted,
	)
	if err != nil {
		r.logger.Errorw("failed to update document", "error", err, "document_id", doc.ID)
		return r.wrapWriteError(err, doc.ID, doc.Number)
	}

	return r.requireRowAffected(res, doc.ID)
}

func (r *documentRepository) UpdateNumber(ctx context.Context, id string, number string) error {
	q := r.client.Querier(ctx)

	res, err := q.ExecContext(ctx, `
		UPDATE documents SET
			number = NULLIF($2, ''),
			updated_at = $3,
			updated_by = $4
		WHERE id = $1 AND status != $5`,
		id, number, time.Now().UTC(), types.GetUserID(ctx), types.StatusDeleted,
	)
	if err != nil {
		r.logger.Errorw("failed to update document number",
			"error", err,
			"document_id", id,
			"number", number)
		return r.wrapWriteError(err, id, number)
	}

	return r.requireRowAffected(res, id)
}

func (r *documentRepository) ListByScope(ctx context.Context, filter document.ScopeFilter) ([]*document.Document, error) {
	q := r.client.Querier(ctx)

	query := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE workspace_id = ?
		  AND document_type = ?
		  AND prefix = ?
		  AND issue_year = ?
		  AND status != ?
		  AND ` + namespacePredicate(filter.Scope.Namespace)
	args := []interface{}{
		filter.Scope.WorkspaceID,
		filter.Scope.DocumentType,
		filter.Scope.Prefix,
		filter.Scope.IssueYear,
		types.StatusDeleted,
	}

	if len(filter.ExcludeStatuses) > 0 {
		query += ` AND document_status NOT IN (?)`
		args = append(args, filter.ExcludeStatuses)
	}

	query += ` ORDER BY created_at ASC`

	query, inArgs, err := sqlx.In(query, args...)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to build scope query").
			Mark(ierr.ErrSystem)
	}
	query = sqlx.Rebind(sqlx.DOLLAR, query)

	var docs []*document.Document
	if err := q.SelectContext(ctx, &docs, query, inArgs...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to scan documents in scope").
			WithReportableDetails(map[string]any{
				"scope": filter.Scope,
			}).
			Mark(ierr.ErrDatabase)
	}

	return docs, nil
}

func (r *documentRepository) FindByNumber(ctx context.Context, scope numbering.ScopeKey, number string) ([]*document.Document, error) {
	q := r.client.Querier(ctx)

	var docs []*document.Document
	err := q.SelectContext(ctx, &docs, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE workspace_id = $1
		  AND document_type = $2
		  AND prefix = $3
		  AND issue_year = $4
		  AND number = $5
		  AND status != $6
		ORDER BY created_at DESC`,
		scope.WorkspaceID, scope.DocumentType, scope.Prefix, scope.IssueYear,
		number, types.StatusDeleted,
	)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to look up document number").
			WithReportableDetails(map[string]any{
				"number": number,
			}).
			Mark(ierr.ErrDatabase)
	}

	return docs, nil
}

func (r *documentRepository) Count(ctx context.Context, filter document.ScopeFilter) (int, error) {
	docs, err := r.ListByScope(ctx, filter)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

func (r *documentRepository) ListDuplicateNumbers(ctx context.Context, workspaceID string) ([]document.DuplicateGroup, error) {
	q := r.client.Querier(ctx)

	type dupRow struct {
		DocumentType types.DocumentType `db:"document_type"`
		Prefix       string             `db:"prefix"`
		IssueYear    int                `db:"issue_year"`
		Number       string             `db:"number"`
	}

	var rows []dupRow
	err := q.SelectContext(ctx, &rows, `
		SELECT document_type, prefix, issue_year, number
		FROM documents
		WHERE workspace_id = $1 AND status != $2 AND number IS NOT NULL
		GROUP BY document_type, prefix, issue_year, number
		HAVING COUNT(*) > 1
		ORDER BY document_type, prefix, issue_year, number`,
		workspaceID, types.StatusDeleted,
	)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to scan for duplicate numbers").
			Mark(ierr.ErrDatabase)
	}

	groups := make([]document.DuplicateGroup, 0, len(rows))
	for _, row := range rows {
		scope := numbering.ScopeKey{
			WorkspaceID:  workspaceID,
			DocumentType: row.DocumentType,
			Prefix:       row.Prefix,
			IssueYear:    row.IssueYear,
		}
		docs, err := r.FindByNumber(ctx, scope, row.Number)
		if err != nil {
			return nil, err
		}
		groups = append(groups, document.DuplicateGroup{
			DocumentType: row.DocumentType,
			Prefix:       row.Prefix,
			IssueYear:    row.IssueYear,
			Number:       row.Number,
			Documents:    docs,
		})
	}

	return groups, nil
}

// wrapWriteError converts storage uniqueness violations into
// ErrAlreadyExists-marked errors the numbering layers retry on; anything
// else is a database error.
func (r *documentRepository) wrapWriteError(err error, documentID, number string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		if pqErr.Constraint == UniqueScopeNumberConstraint {
			return ierr.WithError(document.ErrNumberTaken).
				WithHint("A document with the same number already exists in this scope").
				WithReportableDetails(map[string]any{
					"document_id": documentID,
					"number":      number,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Document already exists").
			WithReportableDetails(map[string]any{
				"document_id": documentID,
			}).
			Mark(ierr.ErrAlreadyExists)
	}

	return ierr.WithError(err).
		WithHint("Document write failed").
		WithReportableDetails(map[string]any{
			"document_id": documentID,
		}).
		Mark(ierr.ErrDatabase)
}

func (r *documentRepository) requireRowAffected(res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to confirm document write").
			Mark(ierr.ErrDatabase)
	}
	if affected == 0 {
		return ierr.WithError(document.ErrDocumentNotFound).
			WithHintf("Document with ID %s was not found", id).
			WithReportableDetails(map[string]any{
				"document_id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

// namespacePredicate translates a namespace into its stored-number shape.
func namespacePredicate(ns numbering.Namespace) string {
	if ns == numbering.NamespaceDraft {
		return `number LIKE 'DRAFT-%'`
	}
	return `number IS NOT NULL AND number NOT LIKE 'DRAFT-%' AND number NOT LIKE 'TEMP-%'`
}
