package directory

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const employeeColumns = `
    id, employee_id, COALESCE(excel_id, ''), name, COALESCE(name2, ''), COALESCE(email, ''),
    COALESCE(group_name, ''), COALESCE(selected_idea, ''),
    COALESCE(idea1_title, ''), COALESCE(problem1, ''), COALESCE(solution1, ''), COALESCE(roi1, ''),
    COALESCE(idea2_title, ''), COALESCE(problem2, ''), COALESCE(solution2, ''), COALESCE(roi2, ''),
    COALESCE(idea3_title, ''), COALESCE(problem3, ''), COALESCE(solution3, ''), COALESCE(roi3, ''),
    COALESCE(architectural_diagram, ''), COALESCE(hackathon_participation, ''),
    COALESCE(start_time, ''), COALESCE(completion_time, ''), COALESCE(last_modified_time, ''),
    created_at, updated_at`

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

// ReplaceResult summarizes a bulk replace.
type ReplaceResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Removed  int `json:"removed"`
}

func (s *Store) ListAll(ctx context.Context) ([]Employee, error) {
	return s.list(ctx, "SELECT "+employeeColumns+" FROM employees ORDER BY employee_id, id")
}

func (s *Store) ListCandidates(ctx context.Context, excluding string) ([]Employee, error) {
	return s.list(ctx, "SELECT "+employeeColumns+" FROM employees WHERE employee_id <> $1 ORDER BY employee_id, id", excluding)
}

func (s *Store) FindByEmail(ctx context.Context, email string) (Employee, error) {
	row := s.DB.QueryRow(ctx, "SELECT "+employeeColumns+" FROM employees WHERE lower(email) = lower($1)", strings.TrimSpace(email))
	return scanOne(row)
}

func (s *Store) FindByEmployeeID(ctx context.Context, employeeID string) (Employee, error) {
	row := s.DB.QueryRow(ctx, "SELECT "+employeeColumns+" FROM employees WHERE employee_id = $1", employeeID)
	return scanOne(row)
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var total int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM employees").Scan(&total)
	return total, err
}

// ReplaceAll makes the employee table equal to employees in one transaction.
// Rows are upserted by employee_id so surviving employees keep their votes;
// employees missing from the new set are deleted and their votes cascade.
func (s *Store) ReplaceAll(ctx context.Context, employees []Employee) (ReplaceResult, error) {
	var result ReplaceResult
	if len(employees) == 0 {
		return result, ErrEmptyDirectory
	}

	ids := make([]string, 0, len(employees))
	for _, emp := range employees {
		ids = append(ids, emp.EmployeeID)
	}

	err := pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, "DELETE FROM employees WHERE NOT (employee_id = ANY($1))", ids)
		if err != nil {
			return err
		}
		result.Removed = int(tag.RowsAffected())

		// emails may move between employees within one import
		if _, err := tx.Exec(ctx, "UPDATE employees SET email = NULL WHERE employee_id = ANY($1)", ids); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, emp := range employees {
			batch.Queue(upsertEmployeeSQL, upsertArgs(emp)...)
		}
		results := tx.SendBatch(ctx, batch)
		for range employees {
			var inserted bool
			if err := results.QueryRow().Scan(&inserted); err != nil {
				_ = results.Close()
				return err
			}
			if inserted {
				result.Inserted++
			} else {
				result.Updated++
			}
		}
		return results.Close()
	})
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ReplaceResult{}, ErrDuplicateEmail
	}
	if err != nil {
		return ReplaceResult{}, err
	}
	return result, nil
}

const upsertEmployeeSQL = `
    INSERT INTO employees (
      employee_id, excel_id, name, name2, email, group_name, selected_idea,
      idea1_title, problem1, solution1, roi1,
      idea2_title, problem2, solution2, roi2,
      idea3_title, problem3, solution3, roi3,
      architectural_diagram, hackathon_participation, start_time, completion_time, last_modified_time
    ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)
    ON CONFLICT (employee_id) DO UPDATE SET
      excel_id = EXCLUDED.excel_id,
      name = EXCLUDED.name,
      name2 = EXCLUDED.name2,
      email = EXCLUDED.email,
      group_name = EXCLUDED.group_name,
      selected_idea = EXCLUDED.selected_idea,
      idea1_title = EXCLUDED.idea1_title, problem1 = EXCLUDED.problem1, solution1 = EXCLUDED.solution1, roi1 = EXCLUDED.roi1,
      idea2_title = EXCLUDED.idea2_title, problem2 = EXCLUDED.problem2, solution2 = EXCLUDED.solution2, roi2 = EXCLUDED.roi2,
      idea3_title = EXCLUDED.idea3_title, problem3 = EXCLUDED.problem3, solution3 = EXCLUDED.solution3, roi3 = EXCLUDED.roi3,
      architectural_diagram = EXCLUDED.architectural_diagram,
      hackathon_participation = EXCLUDED.hackathon_participation,
      start_time = EXCLUDED.start_time,
      completion_time = EXCLUDED.completion_time,
      last_modified_time = EXCLUDED.last_modified_time,
      updated_at = now()
    RETURNING (xmax = 0)`

func upsertArgs(emp Employee) []any {
	args := []any{
		emp.EmployeeID, nullable(emp.ExcelID), emp.Name, nullable(emp.Name2), nullable(emp.Email),
		nullable(emp.GroupName), nullable(emp.SelectedIdea),
	}
	for _, idea := range emp.IdeaSlots() {
		args = append(args, nullable(idea.Title), nullable(idea.Problem), nullable(idea.Solution), nullable(idea.ROI))
	}
	return append(args,
		nullable(emp.ArchitecturalDiagram), nullable(emp.HackathonParticipation),
		nullable(emp.StartTime), nullable(emp.CompletionTime), nullable(emp.LastModifiedTime),
	)
}

func nullable(value string) any {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return value
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

func scanOne(row pgx.Row) (Employee, error) {
	emp, err := scanEmployee(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrEmployeeNotFound
	}
	return emp, err
}

func scanEmployee(row pgx.Row) (Employee, error) {
	var emp Employee
	var ideas [MaxIdeas]Idea
	err := row.Scan(
		&emp.ID, &emp.EmployeeID, &emp.ExcelID, &emp.Name, &emp.Name2, &emp.Email,
		&emp.GroupName, &emp.SelectedIdea,
		&ideas[0].Title, &ideas[0].Problem, &ideas[0].Solution, &ideas[0].ROI,
		&ideas[1].Title, &ideas[1].Problem, &ideas[1].Solution, &ideas[1].ROI,
		&ideas[2].Title, &ideas[2].Problem, &ideas[2].Solution, &ideas[2].ROI,
		&emp.ArchitecturalDiagram, &emp.HackathonParticipation,
		&emp.StartTime, &emp.CompletionTime, &emp.LastModifiedTime,
		&emp.CreatedAt, &emp.UpdatedAt,
	)
	if err != nil {
		return Employee{}, err
	}
	for i, idea := range ideas {
		if !idea.IsZero() {
			idea.Slot = i + 1
			emp.Ideas = append(emp.Ideas, idea)
		}
	}
	return emp, nil
}
