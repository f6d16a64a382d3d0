package responder

import (
	"sort"
	"strings"
	"unicode"

	"github.com/KaramelBytes/medloom/internal/kb"
)

// entityWeight is the score an entity name adds to its group; a plain keyword adds 1.
const entityWeight = 2

// GroupMatch is one statistic group that matched a query.
type GroupMatch struct {
	Group kb.Group `json:"group"`
	Score int      `json:"score"`
	Terms []string `json:"terms"`
}

var groupKeywords = map[kb.Group][]string{
	kb.GroupDiseaseTrends: {
		"disease", "diagnosis", "diagnoses", "condition", "illness", "sickness", "sick",
		"ailment", "common", "prevalent", "trend", "case", "infection",
	},
	kb.GroupDoctorWorkload: {
		"doctor", "dr", "physician", "workload", "busiest", "busy", "specialist",
		"specialty", "staff", "load", "consultant",
	},
	kb.GroupGeographic: {
		"area", "branch", "location", "region", "geographic", "geography", "where",
		"clinic", "city", "district", "locality", "neighborhood", "served",
	},
	kb.GroupTemporal: {
		"time", "when", "day", "daily", "date", "week", "weekday", "weekly", "month",
		"monthly", "peak", "temporal", "season", "period", "hour", "schedule",
	},
	kb.GroupSummary: {
		"summary", "overview", "total", "overall", "insight", "statistic", "stats",
		"patient", "everything", "highlight", "key",
	},
}

// groupPhrases are multi-word cues; each counts as two keywords.
var groupPhrases = map[kb.Group][]string{
	kb.GroupDiseaseTrends:  {"most common", "top disease"},
	kb.GroupDoctorWorkload: {"most visits", "visits per doctor"},
	kb.GroupGeographic:     {"which area", "which branch"},
	kb.GroupTemporal:       {"busiest day", "peak day", "per day", "average daily", "day of the week"},
	kb.GroupSummary:        {"how many", "key insights"},
}

var keywordIndex = func() map[string][]kb.Group {
	idx := map[string][]kb.Group{}
	for _, g := range kb.Groups {
		for _, k := range groupKeywords[g] {
			idx[k] = append(idx[k], g)
		}
	}
	return idx
}()

// normalize lowercases text and turns every non-alphanumeric run into one space,
// padded so whole-word lookups can use " word ".
func normalize(s string) string {
	var b strings.Builder
	b.WriteByte(' ')
	space := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	if !space {
		b.WriteByte(' ')
	}
	return b.String()
}

// stem maps plural tokens onto known keywords.
func stem(tok string) string {
	if _, ok := keywordIndex[tok]; ok {
		return tok
	}
	for _, suf := range []string{"es", "s"} {
		if len(tok) > len(suf)+2 && strings.HasSuffix(tok, suf) {
			if _, ok := keywordIndex[tok[:len(tok)-len(suf)]]; ok {
				return tok[:len(tok)-len(suf)]
			}
		}
	}
	return tok
}

// Match scores every statistic group against query and returns the groups that matched,
// best first. Equal scores keep kb.Groups order.
func Match(doc *kb.KnowledgeBase, query string) []GroupMatch {
	q := normalize(query)
	if strings.TrimSpace(q) == "" {
		return nil
	}
	scores := map[kb.Group]*GroupMatch{}
	hit := func(g kb.Group, term string, weight int) {
		m, ok := scores[g]
		if !ok {
			m = &GroupMatch{Group: g}
			scores[g] = m
		}
		m.Score += weight
		m.Terms = append(m.Terms, term)
	}
	for _, tok := range strings.Fields(q) {
		tok = stem(tok)
		for _, g := range keywordIndex[tok] {
			hit(g, tok, 1)
		}
	}
	for _, g := range kb.Groups {
		for _, p := range groupPhrases[g] {
			if strings.Contains(q, " "+p+" ") {
				hit(g, p, 2)
			}
		}
	}
	if doc != nil {
		seen := map[string]bool{}
		for _, e := range entityNames(doc) {
			id := string(e.group) + "/" + e.name
			if seen[id] || !strings.Contains(q, e.key) {
				continue
			}
			seen[id] = true
			hit(e.group, e.name, entityWeight)
		}
	}

	out := make([]GroupMatch, 0, len(scores))
	for _, g := range kb.Groups {
		if m, ok := scores[g]; ok {
			out = append(out, *m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

type entityName struct {
	group kb.Group
	name  string
	key   string
}

// entityNames lists the knowledge-base entities as padded lookup keys. Doctor names are
// also matched without their "Dr." prefix.
func entityNames(doc *kb.KnowledgeBase) []entityName {
	var out []entityName
	add := func(g kb.Group, name string) {
		key := normalize(name)
		if len(strings.TrimSpace(key)) < 3 || strings.TrimSpace(key) == "unknown" {
			return
		}
		out = append(out, entityName{group: g, name: name, key: key})
	}
	e := doc.Entities
	for _, d := range e.Doctors {
		add(kb.GroupDoctorWorkload, d.Name)
		if key := normalize(d.Name); strings.HasPrefix(key, " dr ") && len(key) > len(" dr ")+3 {
			out = append(out, entityName{group: kb.GroupDoctorWorkload, name: d.Name, key: key[3:]})
		}
	}
	for _, d := range e.Diseases {
		add(kb.GroupDiseaseTrends, d.Name)
	}
	for _, b := range e.Branches {
		add(kb.GroupGeographic, b.Name)
	}
	for _, a := range e.Areas {
		add(kb.GroupGeographic, a)
	}
	return out
}
