package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"

	"cardgen/internal/aamva"
	"cardgen/internal/generation"
	"cardgen/internal/ledger"
	"cardgen/internal/platform/middleware"
	"cardgen/internal/transport/http/shared"
	dErrors "cardgen/pkg/domain-errors"
)

// Service runs metered generation attempts.
type Service interface {
	Generate(ctx context.Context, accountID ledger.AccountID, req generation.Request) (*generation.Result, error)
}

// Handler handles the barcode generation endpoint.
type Handler struct {
	workflow Service
	logger   *slog.Logger
}

// New creates a generation Handler.
func New(workflow Service, logger *slog.Logger) *Handler {
	return &Handler{
		workflow: workflow,
		logger:   logger,
	}
}

// Register registers the generation routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/barcodes", h.handleGenerate)
}

// GenerateRequest is the attribute payload plus render parameters. This
// handler is the form/validation surface: it enforces field-level syntax so
// the encoder downstream can trust its input.
type GenerateRequest struct {
	Jurisdiction        string `json:"jurisdiction"`
	IssuerID            string `json:"issuer_id,omitempty"` // defaults to the jurisdiction's IIN
	AAMVAVersion        string `json:"aamva_version"`
	JurisdictionVersion string `json:"jurisdiction_version"`
	EntryCount          int    `json:"entry_count"`
	SubfileType         string `json:"subfile_type"`

	FamilyName string `json:"family_name"`
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name,omitempty"`
	BirthDate  string `json:"birth_date"`
	Sex        string `json:"sex"`

	HeightFeet   int    `json:"height_feet"`
	HeightInches int    `json:"height_inches"`
	EyeColor     string `json:"eye_color,omitempty"`
	Weight       string `json:"weight,omitempty"`

	Street1    string `json:"street1"`
	Street2    string `json:"street2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country,omitempty"`

	CustomerID string `json:"customer_id"`
	IssueDate  string `json:"issue_date"`
	ExpiryDate string `json:"expiry_date"`

	VehicleClass     string `json:"vehicle_class,omitempty"`
	RestrictionCodes string `json:"restriction_codes,omitempty"`
	EndorsementCodes string `json:"endorsement_codes,omitempty"`
	Discriminator    string `json:"document_discriminator,omitempty"`

	FamilyNameTruncation string `json:"family_name_truncation,omitempty"`
	FirstNameTruncation  string `json:"first_name_truncation,omitempty"`
	MiddleNameTruncation string `json:"middle_name_truncation,omitempty"`
	ComplianceType       string `json:"compliance_type,omitempty"`
	RevisionDate         string `json:"revision_date,omitempty"`
	InventoryControl     string `json:"inventory_control,omitempty"`
	OrganDonor           bool   `json:"organ_donor,omitempty"`

	ErrorCorrectionLevel int `json:"error_correction_level"`
	Columns              int `json:"columns"`
}

// GenerateResponse carries the rendered barcode and the balance after the
// debit.
type GenerateResponse struct {
	ImageBase64 string  `json:"image_base64"`
	Record      string  `json:"record"`
	Balance     float64 `json:"balance"`
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	accountID := middleware.GetAccountID(ctx)
	if accountID == "" {
		h.logger.ErrorContext(ctx, "accountID missing from context despite auth middleware",
			"request_id", requestID,
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	attrs, err := buildAttributeSet(req)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid generation request",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	result, err := h.workflow.Generate(ctx, ledger.AccountID(accountID), generation.Request{
		Attributes:           attrs,
		ErrorCorrectionLevel: req.ErrorCorrectionLevel,
		Columns:              req.Columns,
	})
	if err != nil {
		if !dErrors.Is(err, dErrors.CodeInsufficientCredits) && !dErrors.Is(err, dErrors.CodeDebitRejected) {
			h.logger.ErrorContext(ctx, "generation attempt failed",
				"request_id", requestID,
				"code", string(dErrors.CodeOf(err)),
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, GenerateResponse{
		ImageBase64: base64.StdEncoding.EncodeToString(result.Image),
		Record:      string(result.Record),
		Balance:     result.Balance.Float64(),
	})
}

var (
	isoDatePattern    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	issuerIDPattern   = regexp.MustCompile(`^\d{6}$`)
	versionPattern    = regexp.MustCompile(`^\d{2}$`)
	postalCodePattern = regexp.MustCompile(`^\d{5}(-?\d{4})?$`)
	weightPattern     = regexp.MustCompile(`^\d{1,3}$`)
)

// buildAttributeSet validates field syntax and assembles the encoder input.
// Dates are checked for the normalized shape only; calendar correctness is
// not re-validated downstream.
func buildAttributeSet(req GenerateRequest) (aamva.AttributeSet, error) {
	var attrs aamva.AttributeSet

	jurisdiction, err := aamva.ParseJurisdiction(strings.ToUpper(strings.TrimSpace(req.Jurisdiction)))
	if err != nil {
		return attrs, err
	}

	issuerID := req.IssuerID
	if issuerID == "" {
		issuerID = jurisdiction.IIN()
	}
	if !issuerIDPattern.MatchString(issuerID) {
		return attrs, dErrors.New(dErrors.CodeBadRequest, "issuer_id must be six digits")
	}

	aamvaVersion := defaultStr(req.AAMVAVersion, "08")
	jurisdictionVersion := defaultStr(req.JurisdictionVersion, "00")
	if !versionPattern.MatchString(aamvaVersion) || !versionPattern.MatchString(jurisdictionVersion) {
		return attrs, dErrors.New(dErrors.CodeBadRequest, "version fields must be two digits")
	}

	entryCount := req.EntryCount
	if entryCount == 0 {
		entryCount = 1
	}
	if entryCount < 1 || entryCount > 99 {
		return attrs, dErrors.New(dErrors.CodeBadRequest, "entry_count must be between 1 and 99")
	}

	subfileType := strings.ToUpper(defaultStr(req.SubfileType, "DL"))
	if len(subfileType) != 2 {
		return attrs, dErrors.New(dErrors.CodeBadRequest, "subfile_type must be two characters")
	}

	for _, f := range []struct {
		name  string
		value string
	}{
		{"family_name", req.FamilyName},
		{"first_name", req.FirstName},
		{"city", req.City},
		{"street1", req.Street1},
		{"customer_id", req.CustomerID},
	} {
		if strings.TrimSpace(f.value) == "" {
			return attrs, dErrors.Newf(dErrors.CodeBadRequest, "%s is required", f.name)
		}
	}

	for _, f := range []struct {
		name  string
		value string
	}{
		{"birth_date", req.BirthDate},
		{"issue_date", req.IssueDate},
		{"expiry_date", req.ExpiryDate},
	} {
		if !isoDatePattern.MatchString(f.value) {
			return attrs, dErrors.Newf(dErrors.CodeBadRequest, "%s must be YYYY-MM-DD", f.name)
		}
	}
	if req.RevisionDate != "" && !isoDatePattern.MatchString(req.RevisionDate) {
		return attrs, dErrors.New(dErrors.CodeBadRequest, "revision_date must be YYYY-MM-DD")
	}

	sex, err := aamva.ParseSex(req.Sex)
	if err != nil {
		return attrs, err
	}

	var eyeColor aamva.EyeColor
	if req.EyeColor != "" {
		eyeColor, err = aamva.ParseEyeColor(strings.ToUpper(req.EyeColor))
		if err != nil {
			return attrs, err
		}
	}

	if req.HeightFeet < 0 || req.HeightFeet > 8 || req.HeightInches < 0 || req.HeightInches > 11 {
		return attrs, dErrors.New(dErrors.CodeBadRequest, "height must be 0-8 feet and 0-11 inches")
	}
	totalInches := req.HeightFeet*12 + req.HeightInches
	if totalInches == 0 {
		return attrs, dErrors.New(dErrors.CodeBadRequest, "height is required")
	}

	if req.Weight != "" && !weightPattern.MatchString(req.Weight) {
		return attrs, dErrors.New(dErrors.CodeBadRequest, "weight must be 1-3 digits")
	}

	if !postalCodePattern.MatchString(req.PostalCode) {
		return attrs, dErrors.New(dErrors.CodeBadRequest, "postal_code must be 5 or 9 digits")
	}

	truncations := make(map[string]aamva.Truncation, 3)
	for name, value := range map[string]string{
		"family_name_truncation": req.FamilyNameTruncation,
		"first_name_truncation":  req.FirstNameTruncation,
		"middle_name_truncation": req.MiddleNameTruncation,
	} {
		if value == "" {
			continue
		}
		trunc, err := aamva.ParseTruncation(strings.ToUpper(value))
		if err != nil {
			return attrs, dErrors.Newf(dErrors.CodeBadRequest, "%s must be N, T or U", name)
		}
		truncations[name] = trunc
	}

	var compliance aamva.ComplianceType
	if req.ComplianceType != "" {
		compliance, err = aamva.ParseComplianceType(strings.ToUpper(req.ComplianceType))
		if err != nil {
			return attrs, err
		}
	}

	organDonor := ""
	if req.OrganDonor {
		organDonor = "1"
	}

	return aamva.AttributeSet{
		IssuerID:            issuerID,
		AAMVAVersion:        aamvaVersion,
		JurisdictionVersion: jurisdictionVersion,
		EntryCount:          entryCount,
		SubfileType:         subfileType,

		FamilyName: strings.TrimSpace(req.FamilyName),
		FirstName:  strings.TrimSpace(req.FirstName),
		MiddleName: strings.TrimSpace(req.MiddleName),
		BirthDate:  req.BirthDate,
		Sex:        sex,

		HeightInches: totalInches,
		EyeColor:     eyeColor,
		Weight:       req.Weight,

		Street1:      strings.TrimSpace(req.Street1),
		Street2:      strings.TrimSpace(req.Street2),
		City:         strings.TrimSpace(req.City),
		Jurisdiction: jurisdiction,
		PostalCode:   req.PostalCode,
		Country:      strings.ToUpper(strings.TrimSpace(req.Country)),

		CustomerID: strings.TrimSpace(req.CustomerID),
		IssueDate:  req.IssueDate,
		ExpiryDate: req.ExpiryDate,

		VehicleClass:     req.VehicleClass,
		RestrictionCodes: req.RestrictionCodes,
		EndorsementCodes: req.EndorsementCodes,
		Discriminator:    req.Discriminator,

		FamilyNameTruncation: truncations["family_name_truncation"],
		FirstNameTruncation:  truncations["first_name_truncation"],
		MiddleNameTruncation: truncations["middle_name_truncation"],
		Compliance:           compliance,
		RevisionDate:         req.RevisionDate,
		InventoryControl:     req.InventoryControl,
		OrganDonor:           organDonor,
	}, nil
}

func defaultStr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
