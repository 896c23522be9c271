package report

// Summary is the --json trailer: a tooling-friendly digest of the same
// totals the script's closing comment line carries, plus a per-category
// breakdown.
type Summary struct {
	TotalMarkedBytes uint64            `json:"total_marked_bytes"`
	TotalMarkedCount int               `json:"total_marked_count"`
	Categories       []CategorySummary `json:"categories"`
}

// CategorySummary is one report's contribution to the Summary.
type CategorySummary struct {
	Name        string `json:"name"`
	MarkedCount int    `json:"marked_count"`
	MarkedBytes uint64 `json:"marked_bytes"`
}

// Summarize reduces reports to the JSON trailer shape.
func Summarize(reports []Report) Summary {
	s := Summary{
		TotalMarkedBytes: TotalMarkedBytes(reports),
		TotalMarkedCount: TotalMarkedCount(reports),
		Categories:       make([]CategorySummary, 0, len(reports)),
	}
	for _, r := range reports {
		s.Categories = append(s.Categories, CategorySummary{
			Name:        r.Name,
			MarkedCount: r.MarkedCount,
			MarkedBytes: r.TotalMarkedBytes,
		})
	}
	return s
}
