package importer

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Canonical column names. Headers in uploaded files are matched against the
// aliases of each column after normalization.
const (
	ColEmployeeID             = "employee_id"
	ColExcelID                = "excel_id"
	ColName                   = "name"
	ColName2                  = "name2"
	ColFirstName              = "first_name"
	ColLastName               = "last_name"
	ColEmail                  = "email"
	ColGroupName              = "group_name"
	ColSelectedIdea           = "selected_idea"
	ColIdeas                  = "ideas"
	ColArchitecturalDiagram   = "architectural_diagram"
	ColHackathonParticipation = "hackathon_participation"
	ColStartTime              = "start_time"
	ColCompletionTime         = "completion_time"
	ColLastModifiedTime       = "last_modified_time"
)

func ideaColumns(n int) (title, problem, solution, roi string) {
	return fmt.Sprintf("idea%d_title", n), fmt.Sprintf("problem%d", n), fmt.Sprintf("solution%d", n), fmt.Sprintf("roi%d", n)
}

// TemplateColumns is the header row of the downloadable template.
var TemplateColumns = []string{
	ColEmployeeID, ColExcelID, ColName, ColName2, ColEmail, ColGroupName, ColSelectedIdea,
	"idea1_title", "problem1", "solution1", "roi1",
	"idea2_title", "problem2", "solution2", "roi2",
	"idea3_title", "problem3", "solution3", "roi3",
	ColArchitecturalDiagram, ColHackathonParticipation, ColStartTime, ColCompletionTime, ColLastModifiedTime,
}

type Schema struct {
	Columns map[string][]string `yaml:"columns"`
}

func DefaultSchema() Schema {
	cols := map[string][]string{
		ColEmployeeID:             {"employee_id", "employee_code", "emp_id", "employee_number"},
		ColExcelID:                {"excel_id", "id", "response_id"},
		ColName:                   {"name", "full_name", "employee_name"},
		ColName2:                  {"name2", "alternate_name", "display_name"},
		ColFirstName:              {"first_name", "firstname"},
		ColLastName:               {"last_name", "lastname", "surname"},
		ColEmail:                  {"email", "email_address", "e_mail", "work_email"},
		ColGroupName:              {"group_name", "group", "team", "team_name"},
		ColSelectedIdea:           {"selected_idea", "final_idea"},
		ColIdeas:                  {"ideas"},
		ColArchitecturalDiagram:   {"architectural_diagram", "architecture_diagram"},
		ColHackathonParticipation: {"hackathon_participation", "participation"},
		ColStartTime:              {"start_time"},
		ColCompletionTime:         {"completion_time"},
		ColLastModifiedTime:       {"last_modified_time"},
	}
	for n := 1; n <= 3; n++ {
		title, problem, solution, roi := ideaColumns(n)
		cols[title] = []string{title, fmt.Sprintf("idea_%d_title", n), fmt.Sprintf("idea%d", n)}
		cols[problem] = []string{problem, fmt.Sprintf("problem_%d", n)}
		cols[solution] = []string{solution, fmt.Sprintf("solution_%d", n)}
		cols[roi] = []string{roi, fmt.Sprintf("roi_%d", n)}
	}
	return Schema{Columns: cols}
}

// LoadSchema reads alias overrides from a YAML file and layers them over the
// default schema. Each listed column replaces its default aliases.
//
//	columns:
//	  employee_id: [employee_id, staff_no]
//	  group_name: [squad]
func LoadSchema(path string) (Schema, error) {
	schema := DefaultSchema()
	if strings.TrimSpace(path) == "" {
		return schema, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, fmt.Errorf("read import schema: %w", err)
	}
	var override Schema
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Schema{}, fmt.Errorf("parse import schema: %w", err)
	}
	for col, aliases := range override.Columns {
		col = normalizeHeader(col)
		if _, known := schema.Columns[col]; !known {
			return Schema{}, fmt.Errorf("import schema: unknown column %q", col)
		}
		normalized := make([]string, 0, len(aliases))
		for _, alias := range aliases {
			if alias = normalizeHeader(alias); alias != "" {
				normalized = append(normalized, alias)
			}
		}
		if len(normalized) > 0 {
			schema.Columns[col] = normalized
		}
	}
	return schema, nil
}

// index maps canonical columns to their position in header. The first
// matching header wins.
func (s Schema) index(header []string) map[string]int {
	lookup := map[string]string{}
	for col, aliases := range s.Columns {
		for _, alias := range aliases {
			lookup[normalizeHeader(alias)] = col
		}
	}
	out := map[string]int{}
	for i, raw := range header {
		col, ok := lookup[normalizeHeader(raw)]
		if !ok {
			continue
		}
		if _, seen := out[col]; !seen {
			out[col] = i
		}
	}
	return out
}

func normalizeHeader(header string) string {
	header = strings.TrimPrefix(header, "\ufeff")
	header = strings.ToLower(strings.TrimSpace(header))
	header = strings.Trim(header, `"'`)
	replacer := strings.NewReplacer(" ", "_", "-", "_", ".", "", "(", "", ")", "")
	header = replacer.Replace(header)
	for strings.Contains(header, "__") {
		header = strings.ReplaceAll(header, "__", "_")
	}
	return strings.Trim(header, "_")
}
