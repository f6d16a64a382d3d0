package quality

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/medloom/internal/records"
)

// maxListedRejections caps the per-row listing in the rendered report.
const maxListedRejections = 20

// Markdown renders a plain-text view of the report for terminals.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[RUN]\n")
	b.WriteString(fmt.Sprintf("Run: %s\n", r.RunID))
	b.WriteString(fmt.Sprintf("Generated: %s\n", r.GeneratedAt))
	if r.InputFile != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.InputFile))
	}
	b.WriteString(fmt.Sprintf("Status: %s\n\n", r.Status))

	b.WriteString("[ROWS]\n")
	b.WriteString(fmt.Sprintf("Read: %d, accepted: %d, rejected: %d\n", r.Rows.Read, r.Rows.Accepted, r.Rows.Rejected))
	if r.DateRange.Start != "" {
		b.WriteString(fmt.Sprintf("Visits from %s to %s\n", r.DateRange.Start, r.DateRange.End))
	}
	b.WriteString("\n")

	if len(r.Rejections) > 0 {
		b.WriteString("[REJECTIONS]\n")
		reasons := make([]string, 0, len(r.RejectionReasons))
		for k := range r.RejectionReasons {
			reasons = append(reasons, k)
		}
		sort.Strings(reasons)
		for _, k := range reasons {
			b.WriteString(fmt.Sprintf("- %s: %d\n", k, r.RejectionReasons[k]))
		}
		for i, e := range r.Rejections {
			if i == maxListedRejections {
				b.WriteString(fmt.Sprintf("  ... %d more\n", len(r.Rejections)-maxListedRejections))
				break
			}
			b.WriteString("  " + e.Error())
			if e.VisitID != "" {
				b.WriteString(fmt.Sprintf(" (visit %s)", e.VisitID))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("[MISSING VALUES]\n")
	for _, col := range records.Columns {
		n, ok := r.MissingValues[col]
		if !ok {
			continue
		}
		pct := 0.0
		if r.Rows.Accepted > 0 {
			pct = float64(n) * 100 / float64(r.Rows.Accepted)
		}
		b.WriteString(fmt.Sprintf("- %s: %d (%.1f%%)\n", col, n, pct))
	}
	if r.InvalidAges > 0 {
		b.WriteString(fmt.Sprintf("Invalid ages set to null: %d\n", r.InvalidAges))
	}
	b.WriteString("\n")

	b.WriteString("[DISTINCT]\n")
	b.WriteString(fmt.Sprintf("Patients: %d, doctors: %d, branches: %d, areas: %d, diseases: %d\n\n",
		r.Distinct.Patients, r.Distinct.Doctors, r.Distinct.Branches, r.Distinct.Areas, r.Distinct.Diseases))

	b.WriteString("[CHECKS]\n")
	for _, c := range r.Checks {
		mark := "✓"
		if !c.Passed {
			mark = "✗"
		}
		b.WriteString(fmt.Sprintf("%s %s", mark, c.Name))
		if c.Detail != "" {
			b.WriteString(": " + c.Detail)
		}
		b.WriteString("\n")
	}
	return b.String()
}
