package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"ideavote/internal/domain/directory"
	"ideavote/internal/platform/feed"
)

type Directory interface {
	ReplaceAll(ctx context.Context, employees []directory.Employee) (directory.ReplaceResult, error)
}

type Publisher interface {
	Publish(evt feed.Event) int
}

// Issue describes a row that was skipped or overridden. Row is the 1-based
// line in the file, header included.
type Issue struct {
	Row        int    `json:"row"`
	EmployeeID string `json:"employeeId,omitempty"`
	Reason     string `json:"reason"`
}

type Report struct {
	Format     Format                  `json:"format"`
	RowsRead   int                     `json:"rowsRead"`
	Accepted   int                     `json:"accepted"`
	Skipped    []Issue                 `json:"skipped"`
	Duplicates []Issue                 `json:"duplicates"`
	Result     directory.ReplaceResult `json:"result"`
}

type Service struct {
	dir       Directory
	publisher Publisher
	schema    Schema
	maxBytes  int64
}

func NewService(dir Directory, publisher Publisher, schema Schema, maxBytes int64) *Service {
	if schema.Columns == nil {
		schema = DefaultSchema()
	}
	return &Service{dir: dir, publisher: publisher, schema: schema, maxBytes: maxBytes}
}

// Import parses the file and replaces the employee directory with its rows.
func (s *Service) Import(ctx context.Context, filename string, r io.Reader) (Report, error) {
	format, err := DetectFormat(filename)
	if err != nil {
		return Report{}, err
	}
	if s.maxBytes > 0 {
		r = io.LimitReader(r, s.maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Report{}, err
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return Report{}, ErrFileTooLarge
	}

	employees, report, err := s.Parse(format, data)
	if err != nil {
		return report, err
	}
	result, err := s.dir.ReplaceAll(ctx, employees)
	if err != nil {
		return report, err
	}
	report.Result = result
	if s.publisher != nil {
		s.publisher.Publish(feed.Event{Table: feed.TableEmployees, Op: feed.OpUpdate})
	}
	return report, nil
}

// Parse maps rows to employees without touching the store.
func (s *Service) Parse(format Format, data []byte) ([]directory.Employee, Report, error) {
	report := Report{Format: format, Skipped: []Issue{}, Duplicates: []Issue{}}
	rows, err := ReadRows(format, data)
	if err != nil {
		return nil, report, err
	}

	cols := s.schema.index(rows[0])
	if missing := missingColumns(cols); len(missing) > 0 {
		return nil, report, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	order := []string{}
	byID := map[string]directory.Employee{}
	firstRow := map[string]int{}
	for i, row := range rows[1:] {
		line := i + 2
		if blankRow(row) {
			continue
		}
		report.RowsRead++

		emp := toEmployee(row, cols)
		switch {
		case emp.EmployeeID == "":
			report.Skipped = append(report.Skipped, Issue{Row: line, Reason: "missing employee_id"})
			continue
		case emp.Name == "":
			report.Skipped = append(report.Skipped, Issue{Row: line, EmployeeID: emp.EmployeeID, Reason: "missing name"})
			continue
		}
		if prev, ok := firstRow[emp.EmployeeID]; ok {
			report.Duplicates = append(report.Duplicates, Issue{
				Row:        line,
				EmployeeID: emp.EmployeeID,
				Reason:     fmt.Sprintf("duplicate of row %d, later row kept", prev),
			})
		} else {
			order = append(order, emp.EmployeeID)
			firstRow[emp.EmployeeID] = line
		}
		byID[emp.EmployeeID] = emp
	}

	emails := map[string]string{}
	employees := make([]directory.Employee, 0, len(order))
	for _, id := range order {
		emp := byID[id]
		if emp.Email != "" {
			if owner, taken := emails[emp.Email]; taken {
				report.Skipped = append(report.Skipped, Issue{
					Row:        firstRow[id],
					EmployeeID: id,
					Reason:     fmt.Sprintf("email %s already used by %s", emp.Email, owner),
				})
				continue
			}
			emails[emp.Email] = id
		}
		employees = append(employees, emp)
	}

	report.Accepted = len(employees)
	if len(employees) == 0 {
		return nil, report, ErrNoValidRows
	}
	return employees, report, nil
}

func missingColumns(cols map[string]int) []string {
	var missing []string
	if _, ok := cols[ColEmployeeID]; !ok {
		missing = append(missing, ColEmployeeID)
	}
	_, hasName := cols[ColName]
	_, hasFirst := cols[ColFirstName]
	_, hasName2 := cols[ColName2]
	if !hasName && !hasFirst && !hasName2 {
		missing = append(missing, ColName)
	}
	return missing
}

func toEmployee(row []string, cols map[string]int) directory.Employee {
	get := func(col string) string {
		idx, ok := cols[col]
		return cellValue(row, idx, ok)
	}

	name := get(ColName)
	if name == "" {
		name = strings.TrimSpace(get(ColFirstName) + " " + get(ColLastName))
	}
	name2 := get(ColName2)
	if name == "" {
		name = name2
	}

	emp := directory.Employee{
		EmployeeID:             get(ColEmployeeID),
		ExcelID:                get(ColExcelID),
		Name:                   name,
		Name2:                  name2,
		Email:                  strings.ToLower(get(ColEmail)),
		GroupName:              get(ColGroupName),
		SelectedIdea:           get(ColSelectedIdea),
		ArchitecturalDiagram:   get(ColArchitecturalDiagram),
		HackathonParticipation: get(ColHackathonParticipation),
		StartTime:              normalizeTimestamp(get(ColStartTime)),
		CompletionTime:         normalizeTimestamp(get(ColCompletionTime)),
		LastModifiedTime:       normalizeTimestamp(get(ColLastModifiedTime)),
	}
	for n := 1; n <= directory.MaxIdeas; n++ {
		title, problem, solution, roi := ideaColumns(n)
		idea := directory.Idea{Slot: n, Title: get(title), Problem: get(problem), Solution: get(solution), ROI: get(roi)}
		if n == 1 && idea.Title == "" {
			idea.Title = get(ColIdeas)
		}
		if !idea.IsZero() {
			emp.Ideas = append(emp.Ideas, idea)
		}
	}
	return emp
}

// Template returns the CSV header row for the wide employee schema.
func Template() []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(TemplateColumns)
	w.Flush()
	return buf.Bytes()
}
