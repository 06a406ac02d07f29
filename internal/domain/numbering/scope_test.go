package numbering

import (
	"testing"
	"time"

	"github.com/ledgerline/ledgerline/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveScope(t *testing.T) {
	issueDate := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

	t.Run("explicit prefix is kept verbatim", func(t *testing.T) {
		scope, err := ResolveScope("ws_1", types.DocumentTypeInvoice, "INV-", issueDate, false)
		require.NoError(t, err)
		assert.Equal(t, ScopeKey{
			WorkspaceID:  "ws_1",
			DocumentType: types.DocumentTypeInvoice,
			Prefix:       "INV-",
			IssueYear:    2025,
			Namespace:    NamespaceFinal,
		}, scope)
	})

	t.Run("empty prefix falls back to the type convention", func(t *testing.T) {
		scope, err := ResolveScope("ws_1", types.DocumentTypeInvoice, "", issueDate, true)
		require.NoError(t, err)
		assert.Equal(t, "F-202501-", scope.Prefix)
		assert.True(t, scope.IsDraft())
	})

	t.Run("each document type has its own convention", func(t *testing.T) {
		for docType, wantPrefix := range map[types.DocumentType]string{
			types.DocumentTypeInvoice:       "F-202501-",
			types.DocumentTypeQuote:         "D-202501-",
			types.DocumentTypePurchaseOrder: "BC-202501",
			types.DocumentTypeCreditNote:    "A-202501-",
		} {
			scope, err := ResolveScope("ws_1", docType, "", issueDate, false)
			require.NoError(t, err)
			assert.Equal(t, wantPrefix, scope.Prefix)
		}
	})

	t.Run("zero issue date defaults to now", func(t *testing.T) {
		scope, err := ResolveScope("ws_1", types.DocumentTypeInvoice, "INV-", time.Time{}, false)
		require.NoError(t, err)
		assert.Equal(t, time.Now().UTC().Year(), scope.IssueYear)
	})

	t.Run("missing workspace is rejected", func(t *testing.T) {
		_, err := ResolveScope("", types.DocumentTypeInvoice, "INV-", issueDate, false)
		require.Error(t, err)
		assert.True(t, IsInvalidScope(err))
	})

	t.Run("unknown document type is rejected", func(t *testing.T) {
		_, err := ResolveScope("ws_1", types.DocumentType("RECEIPT"), "", issueDate, false)
		require.Error(t, err)
		assert.True(t, IsInvalidScope(err))
	})

	t.Run("over-long prefix is rejected", func(t *testing.T) {
		_, err := ResolveScope("ws_1", types.DocumentTypeInvoice, "VERYLONGPREFIX-", issueDate, false)
		require.Error(t, err)
		assert.True(t, IsInvalidScope(err))
	})
}

func TestScopeKeyNamespace(t *testing.T) {
	scope := ScopeKey{
		WorkspaceID:  "ws_1",
		DocumentType: types.DocumentTypeInvoice,
		Prefix:       "INV-",
		IssueYear:    2025,
		Namespace:    NamespaceDraft,
	}

	final := scope.WithNamespace(NamespaceFinal)
	assert.False(t, final.IsDraft())
	// WithNamespace copies; the original scope is untouched.
	assert.True(t, scope.IsDraft())
	assert.Equal(t, scope.Prefix, final.Prefix)
}
