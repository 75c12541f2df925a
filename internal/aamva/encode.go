package aamva

import (
	"fmt"
	"regexp"
	"strings"
)

// Structural control characters of the AAMVA record. Consumers must treat
// them as delimiters, never strip them.
const (
	lf = "\n" // line feed, element terminator
	rs = ""  // record separator
	cr = "\r" // carriage return, segment terminator
)

const (
	complianceMarker = "@"
	fileTypeTag      = "ANSI "
	defaultCountry   = "USA"
	heightUnitSuffix = " IN"
)

var isoDateShape = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// transposeDate converts a normalized YYYY-MM-DD date into the MMDDYYYY form
// required by AAMVA date elements. Inputs that do not match the normalized
// shape encode as the empty string: calendar validation belongs to the form
// surface, not to the encoder.
func transposeDate(isoDate string) string {
	if !isoDateShape.MatchString(isoDate) {
		return ""
	}
	year, month, day := isoDate[:4], isoDate[5:7], isoDate[8:10]
	return month + day + year
}

// Encode serializes an AttributeSet into the AAMVA wire-format record. It is
// total and deterministic: byte-identical output for identical input, no I/O,
// no side effects. Malformed input is a caller contract violation, not a
// recoverable condition here.
func Encode(attrs AttributeSet) EncodedRecord {
	var b strings.Builder

	// Preamble: compliance marker, the three structural control characters,
	// file type tag, IIN, standard and jurisdiction versions, entry count.
	b.WriteString(complianceMarker)
	b.WriteString(lf)
	b.WriteString(rs)
	b.WriteString(cr)
	b.WriteString(fileTypeTag)
	b.WriteString(attrs.IssuerID)
	b.WriteString(attrs.AAMVAVersion)
	b.WriteString(attrs.JurisdictionVersion)
	b.WriteString(fmt.Sprintf("%02d", attrs.EntryCount))
	b.WriteString(lf)

	// Subfile designator.
	b.WriteString(strings.ToUpper(attrs.SubfileType))
	b.WriteString(lf)

	// element emits one <ID><VALUE><LF> line. Optional elements with an
	// empty value are omitted entirely; structurally mandatory elements
	// still emit the bare ID.
	element := func(id, value string, mandatory bool) {
		if value != "" {
			b.WriteString(id)
			b.WriteString(strings.ToUpper(value))
			b.WriteString(lf)
		} else if mandatory {
			b.WriteString(id)
			b.WriteString(lf)
		}
	}

	country := attrs.Country
	if country == "" {
		country = defaultCountry
	}

	// Element order is fixed and significant.
	element("DAQ", attrs.CustomerID, true)
	element("DCS", attrs.FamilyName, true)
	element("DAC", attrs.FirstName, true)
	element("DAD", attrs.MiddleName, false)
	element("DBD", transposeDate(attrs.IssueDate), true)
	element("DBB", transposeDate(attrs.BirthDate), true)
	element("DBA", transposeDate(attrs.ExpiryDate), true)
	element("DBC", string(attrs.Sex), true)

	element("DAU", fmt.Sprintf("%03d%s", attrs.HeightInches, heightUnitSuffix), true)
	element("DAY", string(attrs.EyeColor), false)
	element("DAW", attrs.Weight, false)

	element("DAG", attrs.Street1, true)
	element("DAH", attrs.Street2, false)
	element("DAI", attrs.City, true)
	element("DAJ", string(attrs.Jurisdiction), true)
	element("DAK", strings.ReplaceAll(attrs.PostalCode, "-", ""), true)
	element("DCG", country, false)

	element("DCA", attrs.VehicleClass, false)
	element("DCB", attrs.RestrictionCodes, false)
	element("DCD", attrs.EndorsementCodes, false)
	element("DCF", attrs.Discriminator, false)

	element("DDE", string(attrs.FamilyNameTruncation), false)
	element("DDF", string(attrs.FirstNameTruncation), false)
	element("DDG", string(attrs.MiddleNameTruncation), false)
	element("DDA", string(attrs.Compliance), false)
	element("DDB", transposeDate(attrs.RevisionDate), false)
	element("DCK", attrs.InventoryControl, false)
	element("DDK", attrs.OrganDonor, false)

	// Segment terminator for the subfile: a single CR, no trailing LF.
	b.WriteString(cr)

	return EncodedRecord(b.String())
}
