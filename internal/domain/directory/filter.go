package directory

import (
	"strings"

	"golang.org/x/text/cases"
)

// Filter keeps the candidates whose name, alternate name, employee id or group
// contains query, ignoring case. A blank query keeps everything. Input order
// is preserved.
func Filter(candidates []Employee, query string) []Employee {
	query = strings.TrimSpace(query)
	if query == "" {
		out := make([]Employee, len(candidates))
		copy(out, candidates)
		return out
	}

	fold := cases.Fold()
	needle := fold.String(query)
	out := make([]Employee, 0, len(candidates))
	for _, emp := range candidates {
		for _, field := range []string{emp.Name, emp.Name2, emp.EmployeeID, emp.GroupName} {
			if field != "" && strings.Contains(fold.String(field), needle) {
				out = append(out, emp)
				break
			}
		}
	}
	return out
}
