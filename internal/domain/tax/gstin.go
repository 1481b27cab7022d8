package tax

import (
	"regexp"

	"github.com/erp/gst/internal/domain/shared"
)

// GSTINLength is the fixed length of a GST identification number.
const GSTINLength = 15

// gstinPattern checks layout only. The trailing check character is not
// verified against the first 14 characters.
var gstinPattern = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z]{1}[1-9A-Z]{1}Z[0-9A-Z]{1}$`)

// ErrInvalidGSTIN is returned by ParseGSTIN for malformed input.
var ErrInvalidGSTIN = shared.NewDomainError("INVALID_GSTIN", "Invalid GSTIN format")

// GSTIN is a parsed GST identification number.
type GSTIN struct {
	Value        string
	StateCode    string
	StateName    string // empty when the code is not in StateCodes
	PAN          string
	EntityNumber string
	CheckChar    string
}

// ValidateGSTIN reports whether gstin has the 15-character GSTIN layout.
func ValidateGSTIN(gstin string) bool {
	if len(gstin) != GSTINLength {
		return false
	}
	return gstinPattern.MatchString(gstin)
}

// StateCodeFromGSTIN returns the leading state code of a well-formed GSTIN.
// The boolean is false when gstin is malformed.
func StateCodeFromGSTIN(gstin string) (string, bool) {
	if !ValidateGSTIN(gstin) {
		return "", false
	}
	return gstin[:2], true
}

// ParseGSTIN splits a well-formed GSTIN into its components.
func ParseGSTIN(gstin string) (GSTIN, error) {
	if !ValidateGSTIN(gstin) {
		return GSTIN{}, ErrInvalidGSTIN
	}
	code := gstin[:2]
	name, _ := StateNameForCode(code)
	return GSTIN{
		Value:        gstin,
		StateCode:    code,
		StateName:    name,
		PAN:          gstin[2:12],
		EntityNumber: gstin[12:13],
		CheckChar:    gstin[14:15],
	}, nil
}
