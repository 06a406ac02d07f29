package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/ledgerline/ledgerline/internal/domain/document"
	"github.com/ledgerline/ledgerline/internal/domain/numbering"
	ierr "github.com/ledgerline/ledgerline/internal/errors"
	"github.com/ledgerline/ledgerline/internal/testutil"
	"github.com/ledgerline/ledgerline/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type NumberingServiceSuite struct {
	testutil.BaseServiceTestSuite
	service NumberingService
	repo    *testutil.InMemoryDocumentStore
}

func TestNumberingService(t *testing.T) {
	suite.Run(t, new(NumberingServiceSuite))
}

func (s *NumberingServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.repo = s.GetStores().DocumentRepo.(*testutil.InMemoryDocumentStore)
	s.service = NewNumberingService(ServiceParams{
		Logger:       s.GetLogger(),
		Config:       s.GetConfig(),
		DB:           s.GetDB(),
		Clock:        s.GetClock(),
		Sleep:        func(time.Duration) {},
		DocumentRepo: s.repo,
	})
}

func (s *NumberingServiceSuite) draftScope() numbering.ScopeKey {
	return numbering.ScopeKey{
		WorkspaceID:  types.GetWorkspaceID(s.GetContext()),
		DocumentType: types.DocumentTypeInvoice,
		Prefix:       "INV-",
		IssueYear:    2025,
		Namespace:    numbering.NamespaceDraft,
	}
}

func (s *NumberingServiceSuite) finalScope() numbering.ScopeKey {
	return s.draftScope().WithNamespace(numbering.NamespaceFinal)
}

// seedDocument inserts a live invoice holding the given number, aged so that
// later seeds are newer than earlier ones.
func (s *NumberingServiceSuite) seedDocument(number string, status types.DocumentStatus, age time.Duration) *document.Document {
	doc := document.New(s.GetContext(), types.DocumentTypeInvoice)
	doc.Prefix = "INV-"
	doc.IssueDate = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	doc.IssueYear = 2025
	doc.Number = number
	doc.DocumentStatus = status
	doc.CreatedAt = s.GetNow().Add(-age)
	doc.UpdatedAt = doc.CreatedAt
	s.NoError(s.repo.Create(s.GetContext(), doc))
	return doc
}

func (s *NumberingServiceSuite) TestNextNumberEmptyScope() {
	got, err := s.service.NextNumber(s.GetContext(), s.finalScope(), nil)
	s.NoError(err)
	s.Equal("000001", got)

	got, err = s.service.NextNumber(s.GetContext(), s.draftScope(), nil)
	s.NoError(err)
	s.Equal("DRAFT-000001", got)
}

func (s *NumberingServiceSuite) TestNextNumberIncrementsPastMax() {
	s.seedDocument("000001", types.DocumentStatusPending, 3*time.Hour)
	s.seedDocument("000007", types.DocumentStatusPending, 2*time.Hour)
	s.seedDocument("000004", types.DocumentStatusCompleted, time.Hour)

	got, err := s.service.NextNumber(s.GetContext(), s.finalScope(), nil)
	s.NoError(err)
	s.Equal("000008", got)
}

func (s *NumberingServiceSuite) TestNextNumberPreservesWiderPadding() {
	s.seedDocument("00000042", types.DocumentStatusPending, time.Hour)

	got, err := s.service.NextNumber(s.GetContext(), s.finalScope(), nil)
	s.NoError(err)
	s.Equal("00000043", got)
}

func (s *NumberingServiceSuite) TestNextNumberSkipsLegacyFreeText() {
	s.seedDocument("LEGACY/2024/7", types.DocumentStatusPending, 2*time.Hour)
	s.seedDocument("000002", types.DocumentStatusPending, time.Hour)

	got, err := s.service.NextNumber(s.GetContext(), s.finalScope(), nil)
	s.NoError(err)
	s.Equal("000003", got)
}

func (s *NumberingServiceSuite) TestNextNumberIgnoresOtherNamespaces() {
	// Draft numbers and transition placeholders never feed the final sequence.
	s.seedDocument("DRAFT-000009", types.DocumentStatusDraft, 2*time.Hour)
	s.seedDocument(numbering.NewPlaceholder(s.GetNow()), types.DocumentStatusDraft, time.Hour)

	got, err := s.service.NextNumber(s.GetContext(), s.finalScope(), nil)
	s.NoError(err)
	s.Equal("000001", got)
}

func (s *NumberingServiceSuite) TestNextNumberScopesAreIndependent() {
	s.seedDocument("000005", types.DocumentStatusPending, time.Hour)

	other := s.finalScope()
	other.Prefix = "EXP-"
	got, err := s.service.NextNumber(s.GetContext(), other, nil)
	s.NoError(err)
	s.Equal("000001", got)
}

func (s *NumberingServiceSuite) TestAllocateDraftSequential() {
	s.seedDocument("DRAFT-000001", types.DocumentStatusDraft, 2*time.Hour)
	s.seedDocument("DRAFT-000002", types.DocumentStatusDraft, time.Hour)

	res, err := s.service.AllocateDraftNumber(s.GetContext(), s.draftScope(), nil, "doc_new")
	s.NoError(err)
	s.Equal("DRAFT-000003", res.Number)
	s.Empty(res.Renamed)
}

func (s *NumberingServiceSuite) TestAllocateDraftRejectsFinalScope() {
	_, err := s.service.AllocateDraftNumber(s.GetContext(), s.finalScope(), nil, "doc_new")
	s.Error(err)
	s.True(numbering.IsInvalidScope(err))
}

func (s *NumberingServiceSuite) TestAllocateFinalRejectsDraftScope() {
	_, err := s.service.AllocateFinalNumber(s.GetContext(), s.draftScope())
	s.Error(err)
	s.True(numbering.IsInvalidScope(err))
}

func (s *NumberingServiceSuite) TestAllocateDraftManualFree() {
	res, err := s.service.AllocateDraftNumber(s.GetContext(), s.draftScope(), lo.ToPtr("000042"), "doc_new")
	s.NoError(err)
	s.Equal("DRAFT-000042", res.Number)
	s.Empty(res.Renamed)
}

func (s *NumberingServiceSuite) TestAllocateDraftManualNeverDoublesMarker() {
	res, err := s.service.AllocateDraftNumber(s.GetContext(), s.draftScope(), lo.ToPtr("DRAFT-DRAFT-000042"), "doc_new")
	s.NoError(err)
	s.Equal("DRAFT-000042", res.Number)
}

func (s *NumberingServiceSuite) TestAllocateDraftManualEmptyAfterNormalize() {
	_, err := s.service.AllocateDraftNumber(s.GetContext(), s.draftScope(), lo.ToPtr("  DRAFT-  "), "doc_new")
	s.Error(err)
	s.True(ierr.Is(err, ierr.ErrValidation))
}

func (s *NumberingServiceSuite) TestAllocateDraftManualCollisionRelocatesHolder() {
	holder := s.seedDocument("DRAFT-000003", types.DocumentStatusDraft, time.Hour)

	res, err := s.service.AllocateDraftNumber(s.GetContext(), s.draftScope(), lo.ToPtr("000003"), "doc_new")
	s.NoError(err)

	// The manual number goes to the requester; the previous holder moves to
	// a disambiguated form of its old number.
	s.Equal("DRAFT-000003", res.Number)
	s.Require().Len(res.Renamed, 1)
	s.Equal(holder.ID, res.Renamed[0].ID)
	s.Regexp(`^DRAFT-000003-\d+$`, res.Renamed[0].Number)

	stored, err := s.repo.Get(s.GetContext(), holder.ID)
	s.NoError(err)
	s.Equal(res.Renamed[0].Number, stored.Number)
}

func (s *NumberingServiceSuite) TestReconcileSelfHoldIsNoop() {
	holder := s.seedDocument("DRAFT-000003", types.DocumentStatusDraft, time.Hour)

	res, err := s.service.Reconcile(s.GetContext(), s.draftScope(), "DRAFT-000003", holder.ID)
	s.NoError(err)
	s.Equal("DRAFT-000003", res.Number)
	s.Empty(res.Renamed)

	stored, err := s.repo.Get(s.GetContext(), holder.ID)
	s.NoError(err)
	s.Equal("DRAFT-000003", stored.Number)
}

func (s *NumberingServiceSuite) TestReconcileFinalConflictRejected() {
	holder := s.seedDocument("000005", types.DocumentStatusPending, time.Hour)

	_, err := s.service.Reconcile(s.GetContext(), s.finalScope(), "000005", "doc_new")
	s.Error(err)
	s.True(ierr.Is(err, numbering.ErrFinalNumberTaken))

	// The finalized holder is untouched.
	stored, err := s.repo.Get(s.GetContext(), holder.ID)
	s.NoError(err)
	s.Equal("000005", stored.Number)
}

func (s *NumberingServiceSuite) TestRelocationRetriesOnIndexRace() {
	s.seedDocument("DRAFT-000003", types.DocumentStatusDraft, time.Hour)
	s.repo.InjectWriteConflicts(1)

	res, err := s.service.AllocateDraftNumber(s.GetContext(), s.draftScope(), lo.ToPtr("000003"), "doc_new")
	s.NoError(err)
	s.Equal("DRAFT-000003", res.Number)
	s.Require().Len(res.Renamed, 1)

	// The first disambiguated form lost the race; the retry advanced the
	// disambiguator past the fake clock's instant.
	want := fmt.Sprintf("DRAFT-000003-%d", s.GetNow().UnixNano()+1)
	s.Equal(want, res.Renamed[0].Number)
}

func (s *NumberingServiceSuite) TestManualConflictWhenRelocationExhausted() {
	s.seedDocument("DRAFT-000003", types.DocumentStatusDraft, time.Hour)

	// Occupy every disambiguated form the renamer will try, so relocation
	// cannot free the manual number.
	base := s.GetNow().UnixNano()
	for i := int64(0); i < 5; i++ {
		s.seedDocument(fmt.Sprintf("DRAFT-000003-%d", base+i), types.DocumentStatusDraft, time.Duration(i+2)*time.Minute)
	}

	_, err := s.service.AllocateDraftNumber(s.GetContext(), s.draftScope(), lo.ToPtr("000003"), "doc_new")
	s.Error(err)
	s.True(ierr.Is(err, numbering.ErrManualNumberConflict))
}

func (s *NumberingServiceSuite) TestAllocateFinalWalksPastCanceledNumbers() {
	// The canceled document is excluded from the sequence scan but its
	// number is never reissued to a live document.
	s.seedDocument("000002", types.DocumentStatusCompleted, 2*time.Hour)
	s.seedDocument("000003", types.DocumentStatusCanceled, time.Hour)

	res, err := s.service.AllocateFinalNumber(s.GetContext(), s.finalScope(), types.DocumentStatusCanceled)
	s.NoError(err)
	s.Equal("000004", res.Number)
}

func (s *NumberingServiceSuite) TestAllocateFinalExhaustsWhenEveryCandidateIsTaken() {
	for i := 1; i <= 5; i++ {
		s.seedDocument(fmt.Sprintf("%06d", i), types.DocumentStatusCanceled, time.Duration(i)*time.Minute)
	}

	_, err := s.service.AllocateFinalNumber(s.GetContext(), s.finalScope(), types.DocumentStatusCanceled)
	s.Error(err)
	s.True(numbering.IsNumberingExhausted(err))
}
