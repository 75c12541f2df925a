package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"cardgen/internal/generation"
	"cardgen/internal/generation/handler/mocks"
	"cardgen/internal/ledger"
	"cardgen/internal/platform/middleware"
	dErrors "cardgen/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/generation-mocks.go -package=mocks Service
type GenerationHandlerSuite struct {
	suite.Suite
}

func TestGenerationHandlerSuite(t *testing.T) {
	suite.Run(t, new(GenerationHandlerSuite))
}

func newTestHandler(t *testing.T) (*Handler, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handler := New(mockService, logger)
	r := chi.NewRouter()
	handler.Register(r)
	return handler, mockService
}

func validRequest() GenerateRequest {
	return GenerateRequest{
		Jurisdiction:         "GA",
		FamilyName:           "Sample",
		FirstName:            "Janice",
		MiddleName:           "Quinn",
		BirthDate:            "1990-03-15",
		Sex:                  "2",
		HeightFeet:           5,
		HeightInches:         6,
		EyeColor:             "BRO",
		Street1:              "123 Main St",
		City:                 "Atlanta",
		PostalCode:           "30301",
		CustomerID:           "123456789",
		IssueDate:            "2024-01-02",
		ExpiryDate:           "2032-03-15",
		ErrorCorrectionLevel: 5,
		Columns:              14,
	}
}

func postGenerate(t *testing.T, handler *Handler, req GenerateRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)

	httpReq := httptest.NewRequest(http.MethodPost, "/barcodes", bytes.NewReader(body))
	ctx := context.WithValue(httpReq.Context(), middleware.ContextKeyAccountID, "acct-1")
	httpReq = httpReq.WithContext(ctx)

	w := httptest.NewRecorder()
	handler.handleGenerate(w, httpReq)
	return w
}

func (s *GenerationHandlerSuite) TestGenerateSuccess() {
	handler, mockService := newTestHandler(s.T())

	image := []byte{0x89, 0x50, 0x4e, 0x47}
	var captured generation.Request
	mockService.EXPECT().
		Generate(gomock.Any(), ledger.AccountID("acct-1"), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ ledger.AccountID, req generation.Request) (*generation.Result, error) {
			captured = req
			return &generation.Result{
				State:   generation.StateRendered,
				Record:  "@record",
				Image:   image,
				Balance: ledger.Credits(400),
			}, nil
		})

	w := postGenerate(s.T(), handler, validRequest())

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp GenerateResponse
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "@record", resp.Record)
	assert.InDelta(s.T(), 4.0, resp.Balance, 0.001)

	decoded, err := base64.StdEncoding.DecodeString(resp.ImageBase64)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), image, decoded)

	assert.Equal(s.T(), 5, captured.ErrorCorrectionLevel)
	assert.Equal(s.T(), 14, captured.Columns)
	assert.Equal(s.T(), 66, captured.Attributes.HeightInches)
	// IIN is derived from the jurisdiction when no override is given.
	assert.Equal(s.T(), "636055", captured.Attributes.IssuerID)
	assert.Equal(s.T(), "08", captured.Attributes.AAMVAVersion)
	assert.Equal(s.T(), 1, captured.Attributes.EntryCount)
	assert.Equal(s.T(), "DL", captured.Attributes.SubfileType)
}

func (s *GenerationHandlerSuite) TestGenerateIssuerOverride() {
	handler, mockService := newTestHandler(s.T())

	var captured generation.Request
	mockService.EXPECT().
		Generate(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ ledger.AccountID, req generation.Request) (*generation.Result, error) {
			captured = req
			return &generation.Result{State: generation.StateRendered}, nil
		})

	req := validRequest()
	req.IssuerID = "636000"
	w := postGenerate(s.T(), handler, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), "636000", captured.Attributes.IssuerID)
}

func (s *GenerationHandlerSuite) TestGenerateInsufficientCredits() {
	handler, mockService := newTestHandler(s.T())

	mockService.EXPECT().
		Generate(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeInsufficientCredits, "balance 0.00 is below the generation cost 1.00"))

	w := postGenerate(s.T(), handler, validRequest())

	assert.Equal(s.T(), http.StatusPaymentRequired, w.Code)
	var resp map[string]string
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), string(dErrors.CodeInsufficientCredits), resp["error"])
}

func (s *GenerationHandlerSuite) TestGenerateRenderFailureStatuses() {
	cases := []struct {
		name string
		code dErrors.Code
		want int
	}{
		{"capacity exceeded", dErrors.CodeCapacityExceeded, http.StatusUnprocessableEntity},
		{"unsupported encoding", dErrors.CodeUnsupportedEncoding, http.StatusUnprocessableEntity},
		{"generic render failure", dErrors.CodeRenderFailure, http.StatusBadGateway},
		{"timeout", dErrors.CodeTimeout, http.StatusGatewayTimeout},
		{"compensation failed", dErrors.CodeCompensationFailed, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			handler, mockService := newTestHandler(s.T())
			mockService.EXPECT().
				Generate(gomock.Any(), gomock.Any(), gomock.Any()).
				Return(nil, dErrors.New(tc.code, "render failed"))

			w := postGenerate(s.T(), handler, validRequest())
			assert.Equal(s.T(), tc.want, w.Code)
		})
	}
}

func (s *GenerationHandlerSuite) TestGenerateValidation() {
	mutations := []struct {
		name   string
		mutate func(*GenerateRequest)
	}{
		{"unknown jurisdiction", func(r *GenerateRequest) { r.Jurisdiction = "ZZ" }},
		{"missing family name", func(r *GenerateRequest) { r.FamilyName = "  " }},
		{"missing first name", func(r *GenerateRequest) { r.FirstName = "" }},
		{"bad birth date", func(r *GenerateRequest) { r.BirthDate = "03/15/1990" }},
		{"bad expiry date", func(r *GenerateRequest) { r.ExpiryDate = "2032-3-15" }},
		{"bad sex code", func(r *GenerateRequest) { r.Sex = "M" }},
		{"bad eye color", func(r *GenerateRequest) { r.EyeColor = "XYZ" }},
		{"zero height", func(r *GenerateRequest) { r.HeightFeet = 0; r.HeightInches = 0 }},
		{"inches overflow", func(r *GenerateRequest) { r.HeightInches = 12 }},
		{"bad postal code", func(r *GenerateRequest) { r.PostalCode = "3018" }},
		{"bad weight", func(r *GenerateRequest) { r.Weight = "heavy" }},
		{"bad issuer override", func(r *GenerateRequest) { r.IssuerID = "63600" }},
		{"bad truncation", func(r *GenerateRequest) { r.FamilyNameTruncation = "X" }},
		{"bad compliance", func(r *GenerateRequest) { r.ComplianceType = "Z" }},
		{"bad revision date", func(r *GenerateRequest) { r.RevisionDate = "20240102" }},
		{"entry count out of range", func(r *GenerateRequest) { r.EntryCount = 100 }},
	}
	for _, tc := range mutations {
		s.Run(tc.name, func() {
			handler, _ := newTestHandler(s.T())
			req := validRequest()
			tc.mutate(&req)

			w := postGenerate(s.T(), handler, req)
			assert.Equal(s.T(), http.StatusBadRequest, w.Code, "service must not be reached")
		})
	}
}

func (s *GenerationHandlerSuite) TestGenerateHyphenatedPostalCodeAccepted() {
	handler, mockService := newTestHandler(s.T())
	mockService.EXPECT().
		Generate(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&generation.Result{State: generation.StateRendered}, nil)

	req := validRequest()
	req.PostalCode = "30180-4199"
	w := postGenerate(s.T(), handler, req)
	assert.Equal(s.T(), http.StatusOK, w.Code)
}

func (s *GenerationHandlerSuite) TestGenerateMalformedBody() {
	handler, _ := newTestHandler(s.T())

	httpReq := httptest.NewRequest(http.MethodPost, "/barcodes", bytes.NewReader([]byte("{not json")))
	ctx := context.WithValue(httpReq.Context(), middleware.ContextKeyAccountID, "acct-1")
	httpReq = httpReq.WithContext(ctx)

	w := httptest.NewRecorder()
	handler.handleGenerate(w, httpReq)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *GenerationHandlerSuite) TestGenerateMissingAccountContext() {
	handler, _ := newTestHandler(s.T())

	body, err := json.Marshal(validRequest())
	require.NoError(s.T(), err)
	httpReq := httptest.NewRequest(http.MethodPost, "/barcodes", bytes.NewReader(body))

	w := httptest.NewRecorder()
	handler.handleGenerate(w, httpReq)
	assert.Equal(s.T(), http.StatusInternalServerError, w.Code)
}
