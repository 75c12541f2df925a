package aamva

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// baseAttributes returns a fully populated AttributeSet used as the starting
// point for encoder tests.
func baseAttributes() AttributeSet {
	return AttributeSet{
		IssuerID:            "636000",
		AAMVAVersion:        "08",
		JurisdictionVersion: "00",
		EntryCount:          1,
		SubfileType:         "DL",

		FamilyName: "Sample",
		FirstName:  "Alex",
		MiddleName: "Quinn",
		BirthDate:  "1990-06-15",
		Sex:        SexFemale,

		HeightInches: 69,
		EyeColor:     EyeBrown,
		Weight:       "150",

		Street1:      "123 Main St",
		Street2:      "Apt 4",
		City:         "Richmond",
		Jurisdiction: "VA",
		PostalCode:   "23220",
		Country:      "USA",

		CustomerID: "T16700185",
		IssueDate:  "2023-01-02",
		ExpiryDate: "2031-01-02",

		VehicleClass:     "C",
		RestrictionCodes: "B",
		EndorsementCodes: "NONE",
		Discriminator:    "0123456789",

		FamilyNameTruncation: TruncationNone,
		FirstNameTruncation:  TruncationNone,
		MiddleNameTruncation: TruncationNone,
		Compliance:           ComplianceFull,
		RevisionDate:         "2020-03-01",
		InventoryControl:     "0123456789012345",
		OrganDonor:           "1",
	}
}

// elementIDs extracts the two/three-letter element IDs from the subfile body
// in emission order.
func elementIDs(t *testing.T, record EncodedRecord) []string {
	t.Helper()

	payload := string(record)
	idx := strings.Index(payload, "ANSI ")
	require.GreaterOrEqual(t, idx, 0)

	lines := strings.Split(payload[idx:], "\n")
	// lines[0] is the header remainder, lines[1] the subfile designator.
	require.Greater(t, len(lines), 2)

	var ids []string
	for _, line := range lines[2:] {
		line = strings.TrimSuffix(line, "\r")
		if len(line) >= 3 {
			ids = append(ids, line[:3])
		}
	}
	return ids
}

func TestEncodeDeterminism(t *testing.T) {
	attrs := baseAttributes()
	first := Encode(attrs)
	for range 10 {
		assert.Equal(t, first, Encode(attrs))
	}
}

func TestEncodePreamble(t *testing.T) {
	record := string(Encode(baseAttributes()))

	assert.True(t, strings.HasPrefix(record, "@\n\rANSI 6360000800"+"01\n"),
		"preamble must carry marker, control characters, file tag, IIN, versions and entry count")
	assert.True(t, strings.HasSuffix(record, "\r"), "subfile must terminate with a bare CR")
	assert.False(t, strings.HasSuffix(record, "\r\n"))
}

func TestEncodeSubfileDesignatorUppercased(t *testing.T) {
	attrs := baseAttributes()
	attrs.SubfileType = "dl"

	record := string(Encode(attrs))
	assert.Contains(t, record, "01\nDL\n")
}

func TestEncodeFieldOrdering(t *testing.T) {
	canonical := []string{
		"DAQ", "DCS", "DAC", "DAD", "DBD", "DBB", "DBA", "DBC",
		"DAU", "DAY", "DAW",
		"DAG", "DAH", "DAI", "DAJ", "DAK", "DCG",
		"DCA", "DCB", "DCD", "DCF",
		"DDE", "DDF", "DDG", "DDA", "DDB", "DCK", "DDK",
	}

	t.Run("all fields present", func(t *testing.T) {
		ids := elementIDs(t, Encode(baseAttributes()))
		assert.Equal(t, canonical, ids)
	})

	t.Run("optional fields absent keep relative order", func(t *testing.T) {
		attrs := baseAttributes()
		attrs.MiddleName = ""
		attrs.EyeColor = ""
		attrs.Weight = ""
		attrs.Street2 = ""
		attrs.VehicleClass = ""
		attrs.RestrictionCodes = ""
		attrs.EndorsementCodes = ""
		attrs.Discriminator = ""
		attrs.FamilyNameTruncation = ""
		attrs.FirstNameTruncation = ""
		attrs.MiddleNameTruncation = ""
		attrs.Compliance = ""
		attrs.RevisionDate = ""
		attrs.InventoryControl = ""
		attrs.OrganDonor = ""

		ids := elementIDs(t, Encode(attrs))
		assert.Equal(t, []string{
			"DAQ", "DCS", "DAC", "DBD", "DBB", "DBA", "DBC",
			"DAU", "DAG", "DAI", "DAJ", "DAK", "DCG",
		}, ids)
	})
}

func TestEncodeOmissionRule(t *testing.T) {
	t.Run("optional empty values are omitted", func(t *testing.T) {
		attrs := baseAttributes()
		attrs.MiddleName = ""
		attrs.OrganDonor = ""

		record := string(Encode(attrs))
		assert.NotContains(t, record, "DAD")
		assert.NotContains(t, record, "DDK")
	})

	t.Run("mandatory empty values emit a bare ID", func(t *testing.T) {
		attrs := baseAttributes()
		attrs.FamilyName = ""
		attrs.Street1 = ""

		record := string(Encode(attrs))
		assert.Contains(t, record, "DCS\n")
		assert.Contains(t, record, "DAG\n")
	})
}

func TestEncodeValueUppercasing(t *testing.T) {
	attrs := baseAttributes()
	attrs.FamilyName = "de la Cruz"

	record := string(Encode(attrs))
	assert.Contains(t, record, "DCSDE LA CRUZ\n")
}

func TestEncodeHeightFormatting(t *testing.T) {
	attrs := baseAttributes()
	attrs.HeightInches = 69

	record := string(Encode(attrs))
	assert.Contains(t, record, "DAU069 IN\n")
}

func TestEncodePostalCodeNormalization(t *testing.T) {
	plain := baseAttributes()
	plain.PostalCode = "301804199"

	hyphenated := baseAttributes()
	hyphenated.PostalCode = "30180-4199"

	assert.Equal(t, Encode(plain), Encode(hyphenated))
	assert.Contains(t, string(Encode(hyphenated)), "DAK301804199\n")
}

func TestEncodeCountryDefault(t *testing.T) {
	attrs := baseAttributes()
	attrs.Country = ""

	record := string(Encode(attrs))
	assert.Contains(t, record, "DCGUSA\n")
}

func TestEncodeDateTransposition(t *testing.T) {
	t.Run("normalized dates transpose to MMDDYYYY", func(t *testing.T) {
		attrs := baseAttributes()
		attrs.BirthDate = "1990-06-15"

		record := string(Encode(attrs))
		assert.Contains(t, record, "DBB06151990\n")
	})

	t.Run("malformed mandatory date encodes as empty value", func(t *testing.T) {
		attrs := baseAttributes()
		attrs.BirthDate = "15/06/1990"

		record := string(Encode(attrs))
		assert.Contains(t, record, "DBB\n")
	})

	t.Run("malformed optional date is omitted", func(t *testing.T) {
		attrs := baseAttributes()
		attrs.RevisionDate = "bogus"

		record := string(Encode(attrs))
		assert.NotContains(t, record, "DDB")
	})
}

func TestEncodeEntryCountZeroPadded(t *testing.T) {
	attrs := baseAttributes()
	attrs.EntryCount = 3

	record := string(Encode(attrs))
	assert.Contains(t, record, "080003\n")
}

func TestJurisdictionIIN(t *testing.T) {
	j, err := ParseJurisdiction("VA")
	require.NoError(t, err)
	assert.Equal(t, "636000", j.IIN())

	_, err = ParseJurisdiction("ZZ")
	assert.Error(t, err)
}

func TestEnumParsing(t *testing.T) {
	_, err := ParseSex("3")
	assert.Error(t, err)

	sex, err := ParseSex("9")
	require.NoError(t, err)
	assert.Equal(t, SexNotSpecified, sex)

	_, err = ParseEyeColor("RED")
	assert.Error(t, err)

	_, err = ParseTruncation("X")
	assert.Error(t, err)

	_, err = ParseComplianceType("Z")
	assert.Error(t, err)
}
