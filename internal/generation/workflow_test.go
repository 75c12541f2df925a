package generation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"cardgen/internal/aamva"
	"cardgen/internal/ledger"
	dErrors "cardgen/pkg/domain-errors"
)

// fakeLedger records calls and fails on demand so workflow transitions can be
// asserted precisely.
type fakeLedger struct {
	balance ledger.Credits

	balanceErr error
	debitErr   error
	creditErr  error

	balanceCalls int
	debitCalls   int
	creditCalls  int

	lastDebit  ledger.Credits
	lastCredit ledger.Credits
}

func (f *fakeLedger) Balance(_ context.Context, _ ledger.AccountID) (ledger.Credits, error) {
	f.balanceCalls++
	if f.balanceErr != nil {
		return 0, f.balanceErr
	}
	return f.balance, nil
}

func (f *fakeLedger) Debit(_ context.Context, _ ledger.AccountID, amount ledger.Credits) (ledger.Credits, error) {
	f.debitCalls++
	f.lastDebit = amount
	if f.debitErr != nil {
		return 0, f.debitErr
	}
	f.balance -= amount
	return f.balance, nil
}

func (f *fakeLedger) Credit(_ context.Context, _ ledger.AccountID, amount ledger.Credits) (ledger.Credits, error) {
	f.creditCalls++
	f.lastCredit = amount
	if f.creditErr != nil {
		return 0, f.creditErr
	}
	f.balance += amount
	return f.balance, nil
}

// fakeRenderer returns a canned image or error and records invocations.
type fakeRenderer struct {
	image []byte
	err   error
	calls int
}

func (f *fakeRenderer) Render(_ context.Context, _ aamva.EncodedRecord, _, _ int) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.image, nil
}

type WorkflowSuite struct {
	suite.Suite
	ledger   *fakeLedger
	renderer *fakeRenderer
}

func TestWorkflowSuite(t *testing.T) {
	suite.Run(t, new(WorkflowSuite))
}

func (s *WorkflowSuite) SetupTest() {
	s.ledger = &fakeLedger{balance: 500}
	s.renderer = &fakeRenderer{image: []byte("png")}
}

func (s *WorkflowSuite) newWorkflow(cost ledger.Credits) *Workflow {
	w, err := New(s.ledger, s.renderer, cost)
	s.Require().NoError(err)
	return w
}

func (s *WorkflowSuite) request() Request {
	return Request{
		Attributes: aamva.AttributeSet{
			IssuerID:            "636000",
			AAMVAVersion:        "08",
			JurisdictionVersion: "00",
			EntryCount:          1,
			SubfileType:         "DL",
			FamilyName:          "Sample",
			FirstName:           "Alex",
			Jurisdiction:        "VA",
		},
		ErrorCorrectionLevel: 5,
		Columns:              13,
	}
}

func (s *WorkflowSuite) TestNew() {
	s.Run("nil collaborators are rejected", func() {
		_, err := New(nil, s.renderer, 100)
		s.Error(err)

		_, err = New(s.ledger, nil, 100)
		s.Error(err)
	})

	s.Run("non-positive cost is rejected", func() {
		_, err := New(s.ledger, s.renderer, 0)
		s.Error(err)
	})
}

func (s *WorkflowSuite) TestSuccessPath() {
	w := s.newWorkflow(100)

	result, err := w.Generate(context.Background(), "acct-1", s.request())
	s.Require().NoError(err)

	s.Equal(StateRendered, result.State)
	s.Equal([]byte("png"), result.Image)
	s.Equal(ledger.Credits(400), result.Balance)
	s.NotEmpty(result.Record)

	s.Equal(1, s.ledger.debitCalls, "exactly one debit")
	s.Equal(0, s.ledger.creditCalls, "zero compensating credits")
	s.Equal(ledger.Credits(100), s.ledger.lastDebit)
	s.Equal(1, s.renderer.calls)
}

func (s *WorkflowSuite) TestInsufficientBalance() {
	s.ledger.balance = 50
	w := s.newWorkflow(100)

	_, err := w.Generate(context.Background(), "acct-1", s.request())
	s.True(dErrors.Is(err, dErrors.CodeInsufficientCredits))

	s.Equal(0, s.ledger.debitCalls, "no debit may be attempted")
	s.Equal(0, s.ledger.creditCalls)
	s.Equal(0, s.renderer.calls, "no render may be attempted")
}

func (s *WorkflowSuite) TestDebitRejected() {
	s.ledger.debitErr = dErrors.New(dErrors.CodeDebitRejected, "ledger declined debit")
	w := s.newWorkflow(100)

	_, err := w.Generate(context.Background(), "acct-1", s.request())
	s.True(dErrors.Is(err, dErrors.CodeDebitRejected))

	s.Equal(1, s.ledger.debitCalls)
	s.Equal(0, s.ledger.creditCalls, "a rejected debit needs no compensation")
	s.Equal(0, s.renderer.calls)
}

func (s *WorkflowSuite) TestBalanceCheckFailure() {
	s.ledger.balanceErr = dErrors.New(dErrors.CodeTimeout, "ledger check balance timed out")
	w := s.newWorkflow(100)

	_, err := w.Generate(context.Background(), "acct-1", s.request())
	s.True(dErrors.Is(err, dErrors.CodeTimeout))
	s.Equal(0, s.ledger.debitCalls)
}

func (s *WorkflowSuite) TestPostDebitRenderFailureRefunds() {
	s.renderer.err = dErrors.New(dErrors.CodeCapacityExceeded, "payload too large")
	w := s.newWorkflow(100)

	_, err := w.Generate(context.Background(), "acct-1", s.request())
	s.True(dErrors.Is(err, dErrors.CodeCapacityExceeded),
		"with a successful refund the original render failure is surfaced")

	s.Equal(1, s.ledger.debitCalls)
	s.Equal(1, s.ledger.creditCalls, "exactly one compensating credit")
	s.Equal(ledger.Credits(100), s.ledger.lastCredit, "refund matches the debited amount")
	s.Equal(ledger.Credits(500), s.ledger.balance, "ledger is whole again")
}

func (s *WorkflowSuite) TestRefundFailureSurfacesCompensationFailed() {
	s.renderer.err = dErrors.New(dErrors.CodeRenderFailure, "engine exploded")
	s.ledger.creditErr = errors.New("ledger unreachable")
	w := s.newWorkflow(100)

	_, err := w.Generate(context.Background(), "acct-1", s.request())
	s.True(dErrors.Is(err, dErrors.CodeCompensationFailed),
		"a failed refund must not be hidden behind the render error")
	s.Contains(err.Error(), "engine exploded", "the original failure stays visible")
	s.Contains(err.Error(), "ledger unreachable")

	s.Equal(1, s.ledger.creditCalls)
}

func (s *WorkflowSuite) TestCancelledCallerStillRefunds() {
	s.renderer.err = dErrors.New(dErrors.CodeRenderFailure, "render failed")
	w := s.newWorkflow(100)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // caller abandoned the request

	_, err := w.Generate(ctx, "acct-1", s.request())
	s.Error(err)
	s.Equal(1, s.ledger.creditCalls, "compensation must run on a cancellation-immune context")
}

func (s *WorkflowSuite) TestCostAccessor() {
	w := s.newWorkflow(150)
	s.Equal(ledger.Credits(150), w.Cost())
}
