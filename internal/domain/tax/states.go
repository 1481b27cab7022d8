package tax

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// States lists the 28 Indian states accepted as a place of supply.
var States = []string{
	"Andhra Pradesh",
	"Arunachal Pradesh",
	"Assam",
	"Bihar",
	"Chhattisgarh",
	"Goa",
	"Gujarat",
	"Haryana",
	"Himachal Pradesh",
	"Jharkhand",
	"Karnataka",
	"Kerala",
	"Madhya Pradesh",
	"Maharashtra",
	"Manipur",
	"Meghalaya",
	"Mizoram",
	"Nagaland",
	"Odisha",
	"Punjab",
	"Rajasthan",
	"Sikkim",
	"Tamil Nadu",
	"Telangana",
	"Tripura",
	"Uttar Pradesh",
	"Uttarakhand",
	"West Bengal",
}

// UnionTerritories lists the 8 Indian union territories.
var UnionTerritories = []string{
	"Andaman and Nicobar Islands",
	"Chandigarh",
	"Dadra and Nagar Haveli and Daman and Diu",
	"Delhi",
	"Jammu and Kashmir",
	"Ladakh",
	"Lakshadweep",
	"Puducherry",
}

// StateCodes maps the two-digit GST state code (the first two characters of a
// GSTIN) to the state or union territory it identifies.
var StateCodes = map[string]string{
	"01": "Jammu and Kashmir",
	"02": "Himachal Pradesh",
	"03": "Punjab",
	"04": "Chandigarh",
	"05": "Uttarakhand",
	"06": "Haryana",
	"07": "Delhi",
	"08": "Rajasthan",
	"09": "Uttar Pradesh",
	"10": "Bihar",
	"11": "Sikkim",
	"12": "Arunachal Pradesh",
	"13": "Nagaland",
	"14": "Manipur",
	"15": "Mizoram",
	"16": "Tripura",
	"17": "Meghalaya",
	"18": "Assam",
	"19": "West Bengal",
	"20": "Jharkhand",
	"21": "Odisha",
	"22": "Chhattisgarh",
	"23": "Madhya Pradesh",
	"24": "Gujarat",
	"25": "Dadra and Nagar Haveli and Daman and Diu", // legacy Daman and Diu code
	"26": "Dadra and Nagar Haveli and Daman and Diu",
	"27": "Maharashtra",
	"28": "Andhra Pradesh", // pre-2014 registrations
	"29": "Karnataka",
	"30": "Goa",
	"31": "Lakshadweep",
	"32": "Kerala",
	"33": "Tamil Nadu",
	"34": "Puducherry",
	"35": "Andaman and Nicobar Islands",
	"36": "Telangana",
	"37": "Andhra Pradesh",
	"38": "Ladakh",
	"97": "Other Territory",
}

var (
	// knownStates is keyed by normalized name and holds the canonical spelling.
	knownStates = buildKnownStates()

	unionTerritorySet = func() map[string]struct{} {
		m := make(map[string]struct{}, len(UnionTerritories))
		for _, ut := range UnionTerritories {
			m[ut] = struct{}{}
		}
		return m
	}()
)

func buildKnownStates() map[string]string {
	m := make(map[string]string, len(States)+len(UnionTerritories))
	for _, s := range States {
		m[NormalizeStateName(s)] = s
	}
	for _, ut := range UnionTerritories {
		m[NormalizeStateName(ut)] = ut
	}
	return m
}

// NormalizeStateName trims surrounding whitespace and lowercases the name.
// A Caser holds state, so one is built per call.
func NormalizeStateName(name string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(name))
}

// IsValidState reports whether name is a state or union territory, ignoring
// case and surrounding whitespace.
func IsValidState(name string) bool {
	_, ok := knownStates[NormalizeStateName(name)]
	return ok
}

// CanonicalStateName returns the reference spelling for name.
func CanonicalStateName(name string) (string, bool) {
	s, ok := knownStates[NormalizeStateName(name)]
	return s, ok
}

// ValidateStates checks the bill-to state first and then the ship-to state.
func ValidateStates(billToState, shipToState string) error {
	if !IsValidState(billToState) {
		return &InvalidStateError{State: billToState}
	}
	if !IsValidState(shipToState) {
		return &InvalidStateError{State: shipToState}
	}
	return nil
}

// IsUnionTerritory is an exact, case-sensitive lookup. Callers holding user
// input should pass it through CanonicalStateName first.
func IsUnionTerritory(stateName string) bool {
	_, ok := unionTerritorySet[stateName]
	return ok
}

// IsIntraState reports whether both parties are in the same state.
func IsIntraState(billToState, shipToState string) bool {
	return NormalizeStateName(billToState) == NormalizeStateName(shipToState)
}

// StateNameForCode resolves a GST state code such as "27".
func StateNameForCode(code string) (string, bool) {
	name, ok := StateCodes[code]
	return name, ok
}

// SortedStateCodes returns the state code table ordered by code.
func SortedStateCodes() []StateCode {
	codes := make([]StateCode, 0, len(StateCodes))
	for code, name := range StateCodes {
		codes = append(codes, StateCode{Code: code, Name: name})
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i].Code < codes[j].Code })
	return codes
}

// StateCode pairs a GST state code with its state name.
type StateCode struct {
	Code string
	Name string
}
