package aamva

import (
	dErrors "cardgen/pkg/domain-errors"
)

// Sex is the AAMVA D-20 sex code carried in element DBC.
type Sex string

const (
	SexMale         Sex = "1"
	SexFemale       Sex = "2"
	SexNotSpecified Sex = "9"
)

// IsValid checks if the sex code is one of the supported enum values.
func (s Sex) IsValid() bool {
	switch s {
	case SexMale, SexFemale, SexNotSpecified:
		return true
	}
	return false
}

// ParseSex creates a Sex from a string, validating it.
func ParseSex(v string) (Sex, error) {
	s := Sex(v)
	if !s.IsValid() {
		return "", dErrors.Newf(dErrors.CodeBadRequest, "invalid sex code %q: must be 1, 2 or 9", v)
	}
	return s, nil
}

// EyeColor is the ANSI D-20 eye color code carried in element DAY.
type EyeColor string

const (
	EyeBlack  EyeColor = "BLK"
	EyeBlue   EyeColor = "BLU"
	EyeBrown  EyeColor = "BRO"
	EyeGray   EyeColor = "GRY"
	EyeGreen  EyeColor = "GRN"
	EyeHazel  EyeColor = "HAZ"
	EyeMaroon EyeColor = "MAR"
	EyePink   EyeColor = "PNK"
	EyeDichro EyeColor = "DIC"
	EyeMulti  EyeColor = "MUL"
	EyeOther  EyeColor = "OTH"
)

// IsValid checks if the eye color is one of the supported enum values.
func (c EyeColor) IsValid() bool {
	switch c {
	case EyeBlack, EyeBlue, EyeBrown, EyeGray, EyeGreen, EyeHazel,
		EyeMaroon, EyePink, EyeDichro, EyeMulti, EyeOther:
		return true
	}
	return false
}

// ParseEyeColor creates an EyeColor from a string, validating it.
func ParseEyeColor(v string) (EyeColor, error) {
	c := EyeColor(v)
	if !c.IsValid() {
		return "", dErrors.Newf(dErrors.CodeBadRequest, "invalid eye color code %q", v)
	}
	return c, nil
}

// Truncation is the name truncation indicator carried in elements DDE/DDF/DDG.
type Truncation string

const (
	TruncationNone      Truncation = "N"
	TruncationTruncated Truncation = "T"
	TruncationUnknown   Truncation = "U"
)

// IsValid checks if the truncation indicator is one of the supported values.
func (t Truncation) IsValid() bool {
	return t == TruncationNone || t == TruncationTruncated || t == TruncationUnknown
}

// ParseTruncation creates a Truncation from a string, validating it.
func ParseTruncation(v string) (Truncation, error) {
	t := Truncation(v)
	if !t.IsValid() {
		return "", dErrors.Newf(dErrors.CodeBadRequest, "invalid truncation indicator %q: must be N, T or U", v)
	}
	return t, nil
}

// ComplianceType is the REAL ID compliance indicator carried in element DDA.
type ComplianceType string

const (
	ComplianceFull ComplianceType = "F"
	ComplianceNone ComplianceType = "N"
)

// IsValid checks if the compliance type is one of the supported values.
func (c ComplianceType) IsValid() bool {
	return c == ComplianceFull || c == ComplianceNone
}

// ParseComplianceType creates a ComplianceType from a string, validating it.
func ParseComplianceType(v string) (ComplianceType, error) {
	c := ComplianceType(v)
	if !c.IsValid() {
		return "", dErrors.Newf(dErrors.CodeBadRequest, "invalid compliance type %q: must be F or N", v)
	}
	return c, nil
}

// AttributeSet is the validated in-memory representation of one credential.
// It is pure data: the upstream form surface guarantees field-level syntax
// (lengths, patterns, enumerations) before an AttributeSet is constructed,
// and the encoder trusts it.
//
// One named field per AAMVA element keeps the encoder compile-time checked
// against the record layout.
type AttributeSet struct {
	// Header fields.
	IssuerID            string // IIN, fixed-width numeric
	AAMVAVersion        string // standard version, zero-padded
	JurisdictionVersion string // jurisdiction version, zero-padded
	EntryCount          int    // number of subfile entries
	SubfileType         string // subfile designator, e.g. "DL"

	// Subject.
	FamilyName string // DCS
	FirstName  string // DAC
	MiddleName string // DAD, optional
	BirthDate  string // DBB, YYYY-MM-DD
	Sex        Sex    // DBC

	// Physical description.
	HeightInches int      // DAU, total inches
	EyeColor     EyeColor // DAY, optional
	Weight       string   // DAW, optional, pounds

	// Address.
	Street1      string       // DAG
	Street2      string       // DAH, optional
	City         string       // DAI
	Jurisdiction Jurisdiction // DAJ
	PostalCode   string       // DAK, digits with optional hyphen
	Country      string       // DCG, defaults to USA

	// Credential.
	CustomerID       string // DAQ
	IssueDate        string // DBD, YYYY-MM-DD
	ExpiryDate       string // DBA, YYYY-MM-DD
	VehicleClass     string // DCA, optional
	RestrictionCodes string // DCB, optional
	EndorsementCodes string // DCD, optional
	Discriminator    string // DCF, optional

	// Administrative.
	FamilyNameTruncation Truncation     // DDE, optional
	FirstNameTruncation  Truncation     // DDF, optional
	MiddleNameTruncation Truncation     // DDG, optional
	Compliance           ComplianceType // DDA, optional
	RevisionDate         string         // DDB, optional, YYYY-MM-DD
	InventoryControl     string         // DCK, optional
	OrganDonor           string         // DDK, optional
}

// EncodedRecord is the immutable wire-format record produced by Encode. Its
// structural delimiters (LF, RS 0x1E, CR) are part of the payload and must
// never be stripped by consumers.
type EncodedRecord string
