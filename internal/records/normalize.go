package records

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// AreaUnknown is assigned when a branch name matches no known locality.
const AreaUnknown = "Unknown"

// builtinAreas maps locality keywords found in branch names to display names.
var builtinAreas = map[string]string{
	"gulshan":       "Gulshan",
	"korangi":       "Korangi",
	"saddar":        "Saddar",
	"nazimabad":     "Nazimabad",
	"malir":         "Malir",
	"clifton":       "Clifton",
	"pechs":         "PECHS",
	"north karachi": "North Karachi",
	"johar":         "Johar",
	"lyari":         "Lyari",
	"defence":       "Defence",
	"dha":           "Defence",
}

var missingTokens = map[string]bool{
	"":     true,
	"na":   true,
	"n/a":  true,
	"null": true,
	"none": true,
	"nan":  true,
	"-":    true,
}

// IsMissing reports whether a raw cell denotes an absent value.
func IsMissing(s string) bool {
	return missingTokens[strings.ToLower(strings.TrimSpace(s))]
}

type areaKeyword struct {
	keyword string
	area    string
}

// AreaMapper resolves branch names to areas by keyword. The longest matching keyword wins.
type AreaMapper struct {
	keywords []areaKeyword
}

// NewAreaMapper combines the built-in localities with extra keyword→area pairs.
// Extra entries override built-ins with the same keyword.
func NewAreaMapper(extra map[string]string) *AreaMapper {
	merged := make(map[string]string, len(builtinAreas)+len(extra))
	for k, v := range builtinAreas {
		merged[k] = v
	}
	for k, v := range extra {
		k = wordKey(k)
		if k == "" || strings.TrimSpace(v) == "" {
			continue
		}
		merged[k] = strings.TrimSpace(v)
	}
	m := &AreaMapper{}
	for k, v := range merged {
		m.keywords = append(m.keywords, areaKeyword{keyword: k, area: v})
	}
	sort.Slice(m.keywords, func(i, j int) bool {
		a, b := m.keywords[i], m.keywords[j]
		if len(a.keyword) != len(b.keyword) {
			return len(a.keyword) > len(b.keyword)
		}
		return a.keyword < b.keyword
	})
	return m
}

// AreaFor returns the area for a branch name, or AreaUnknown.
func (m *AreaMapper) AreaFor(branch string) string {
	key := wordKey(branch)
	if key == "" {
		return AreaUnknown
	}
	padded := " " + key + " "
	for _, kw := range m.keywords {
		if strings.Contains(padded, " "+kw.keyword+" ") {
			return kw.area
		}
	}
	return AreaUnknown
}

// wordKey lowercases s and reduces every run of non-alphanumerics to one space.
func wordKey(s string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		space = true
	}
	return b.String()
}

// NormalizeResult holds deduplicated appointments and what normalization observed.
type NormalizeResult struct {
	Appointments []Appointment
	Duplicates   []ParseError
	Missing      MissingCounts
}

// Normalizer canonicalizes text fields, assigns areas and drops duplicate visits.
// It is not safe for concurrent use.
type Normalizer struct {
	areas *AreaMapper
	title cases.Caser
}

func NewNormalizer(areas *AreaMapper) *Normalizer {
	if areas == nil {
		areas = NewAreaMapper(nil)
	}
	return &Normalizer{areas: areas, title: cases.Title(language.Und)}
}

// Normalize returns canonical copies of the input. The first occurrence of a visit id wins;
// later ones are reported as duplicates.
func (n *Normalizer) Normalize(in []Appointment) *NormalizeResult {
	res := &NormalizeResult{Missing: MissingCounts{}}
	for _, col := range Columns {
		res.Missing[col] = 0
	}
	seen := make(map[string]bool, len(in))
	for _, a := range in {
		a = n.normalizeOne(a)
		if seen[a.VisitID] {
			res.Duplicates = append(res.Duplicates, ParseError{Row: a.Row, VisitID: a.VisitID, Reason: ReasonDuplicateVisitID})
			continue
		}
		seen[a.VisitID] = true
		for _, col := range Columns {
			if a.Field(col) == "" {
				res.Missing[col]++
			}
		}
		res.Appointments = append(res.Appointments, a)
	}
	return res
}

func (n *Normalizer) normalizeOne(a Appointment) Appointment {
	a.VisitID = strings.ToUpper(CleanText(a.VisitID))
	a.PatientID = strings.ToUpper(CleanText(a.PatientID))
	a.PatientName = n.name(a.PatientName)
	a.Gender = n.gender(a.Gender)
	a.DoctorName = n.name(a.DoctorName)
	a.Specialty = n.name(a.Specialty)
	a.BranchName = n.name(a.BranchName)
	a.DiseaseName = n.name(a.DiseaseName)
	a.Area = n.areas.AreaFor(a.BranchName)
	return a
}

// name title-cases values written entirely in one case and keeps mixed case as given.
func (n *Normalizer) name(s string) string {
	s = CleanText(s)
	if s == "" {
		return ""
	}
	if s == strings.ToLower(s) || s == strings.ToUpper(s) {
		return n.title.String(s)
	}
	return s
}

func (n *Normalizer) gender(s string) string {
	s = CleanText(s)
	switch strings.ToLower(s) {
	case "":
		return ""
	case "m", "male":
		return "Male"
	case "f", "female":
		return "Female"
	case "o", "other":
		return "Other"
	}
	return n.title.String(strings.ToLower(s))
}

// CleanText applies NFC, drops distracting punctuation, collapses whitespace and maps
// missing-value tokens to "".
func CleanText(s string) string {
	s = norm.NFC.String(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '"', '`', '*', '#':
			return -1
		}
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Trim(s, "'_,;: ")
	if IsMissing(s) {
		return ""
	}
	return s
}
