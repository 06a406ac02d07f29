package service

import (
	"testing"
	"time"

	"github.com/ledgerline/ledgerline/internal/domain/numbering"
	ierr "github.com/ledgerline/ledgerline/internal/errors"
	"github.com/ledgerline/ledgerline/internal/testutil"
	"github.com/ledgerline/ledgerline/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type DocumentServiceSuite struct {
	testutil.BaseServiceTestSuite
	service DocumentService
	repo    *testutil.InMemoryDocumentStore
}

func TestDocumentService(t *testing.T) {
	suite.Run(t, new(DocumentServiceSuite))
}

func (s *DocumentServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.repo = s.GetStores().DocumentRepo.(*testutil.InMemoryDocumentStore)

	params := ServiceParams{
		Logger:       s.GetLogger(),
		Config:       s.GetConfig(),
		DB:           s.GetDB(),
		Clock:        s.GetClock(),
		Sleep:        func(time.Duration) {},
		DocumentRepo: s.repo,
	}
	s.service = NewDocumentService(params, NewNumberingService(params))
}

func (s *DocumentServiceSuite) newRequest() CreateDocumentRequest {
	return CreateDocumentRequest{
		DocumentType: types.DocumentTypeInvoice,
		Prefix:       "INV-",
		IssueDate:    time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		Total:        decimal.NewFromInt(120),
		Currency:     "EUR",
	}
}

func (s *DocumentServiceSuite) TestCreateDraftAssignsSequentialNumbers() {
	first, err := s.service.CreateDraft(s.GetContext(), s.newRequest())
	s.NoError(err)
	s.Equal("DRAFT-000001", first.Number)
	s.Equal(types.DocumentStatusDraft, first.DocumentStatus)
	s.Equal(2025, first.IssueYear)

	second, err := s.service.CreateDraft(s.GetContext(), s.newRequest())
	s.NoError(err)
	s.Equal("DRAFT-000002", second.Number)
}

func (s *DocumentServiceSuite) TestCreateDraftDefaultsPrefixAndDate() {
	req := s.newRequest()
	req.Prefix = ""
	req.IssueDate = time.Time{}

	doc, err := s.service.CreateDraft(s.GetContext(), req)
	s.NoError(err)

	// The fake clock drives the defaults.
	s.Equal("F-202501-", doc.Prefix)
	s.Equal(2025, doc.IssueYear)
	s.Equal(s.GetNow(), doc.IssueDate)
}

func (s *DocumentServiceSuite) TestCreateDraftWithManualNumber() {
	doc, err := s.service.CreateDraft(s.GetContext(), s.newRequest())
	s.NoError(err)
	s.Equal("DRAFT-000001", doc.Number)

	req := s.newRequest()
	req.ManualNumber = types.ToNillableString("000042")
	manual, err := s.service.CreateDraft(s.GetContext(), req)
	s.NoError(err)
	s.Equal("DRAFT-000042", manual.Number)
}

func (s *DocumentServiceSuite) TestCreateDraftManualCollisionDisplacesHolder() {
	req := s.newRequest()
	req.ManualNumber = types.ToNillableString("000042")
	holder, err := s.service.CreateDraft(s.GetContext(), req)
	s.NoError(err)

	taker, err := s.service.CreateDraft(s.GetContext(), req)
	s.NoError(err)
	s.Equal("DRAFT-000042", taker.Number)

	displaced, err := s.service.Get(s.GetContext(), holder.ID)
	s.NoError(err)
	s.Regexp(`^DRAFT-000042-\d+$`, displaced.Number)
}

func (s *DocumentServiceSuite) TestCreateDraftValidatesRequest() {
	req := s.newRequest()
	req.DocumentType = ""
	_, err := s.service.CreateDraft(s.GetContext(), req)
	s.Error(err)
	s.True(ierr.IsValidation(err))

	req = s.newRequest()
	req.Currency = "EURO"
	_, err = s.service.CreateDraft(s.GetContext(), req)
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *DocumentServiceSuite) TestCreateDraftRejectsNegativeTotal() {
	req := s.newRequest()
	req.Total = decimal.NewFromInt(-1)
	_, err := s.service.CreateDraft(s.GetContext(), req)
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *DocumentServiceSuite) TestCreateDraftRetriesLostRaces() {
	s.repo.InjectWriteConflicts(2)

	doc, err := s.service.CreateDraft(s.GetContext(), s.newRequest())
	s.NoError(err)
	s.Equal("DRAFT-000001", doc.Number)
}

func (s *DocumentServiceSuite) TestCreateDraftGivesUpAfterBudget() {
	s.repo.InjectWriteConflicts(3)

	_, err := s.service.CreateDraft(s.GetContext(), s.newRequest())
	s.Error(err)
	s.True(numbering.IsConcurrentConflict(err))
}

func (s *DocumentServiceSuite) TestGetUnknownDocument() {
	_, err := s.service.Get(s.GetContext(), "doc_missing")
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}
