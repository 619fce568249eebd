package directory

import (
	"reflect"
	"testing"
)

func ids(employees []Employee) []string {
	out := make([]string, 0, len(employees))
	for _, emp := range employees {
		out = append(out, emp.EmployeeID)
	}
	return out
}

func TestFilter(t *testing.T) {
	candidates := []Employee{
		{EmployeeID: "E-001", Name: "Ada Lovelace", Name2: "Countess", GroupName: "Platform"},
		{EmployeeID: "E-002", Name: "Grace Hopper", GroupName: "Compilers"},
		{EmployeeID: "X-17", Name: "Linus", Name2: "Straße", GroupName: "Kernel"},
	}

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "empty matches all", query: "", want: []string{"E-001", "E-002", "X-17"}},
		{name: "blank matches all", query: "   ", want: []string{"E-001", "E-002", "X-17"}},
		{name: "name case insensitive", query: "GRACE", want: []string{"E-002"}},
		{name: "alternate name", query: "countess", want: []string{"E-001"}},
		{name: "employee id substring", query: "e-00", want: []string{"E-001", "E-002"}},
		{name: "group name", query: "kern", want: []string{"X-17"}},
		{name: "case folding beyond ascii", query: "STRASSE", want: []string{"X-17"}},
		{name: "no match", query: "zzz", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Filter(candidates, tt.query))
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Filter(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestFilterDoesNotAliasInput(t *testing.T) {
	candidates := []Employee{{EmployeeID: "E-1", Name: "A"}}
	out := Filter(candidates, "")
	out[0].Name = "changed"
	if candidates[0].Name != "A" {
		t.Fatal("filter result aliases the input slice")
	}
}

func TestDisplayNameAndVotable(t *testing.T) {
	tests := []struct {
		emp     Employee
		display string
		votable bool
	}{
		{emp: Employee{EmployeeID: "E-1", Name: " Ada ", SelectedIdea: "Idea"}, display: "Ada", votable: true},
		{emp: Employee{EmployeeID: "E-2", Name2: "Grace", SelectedIdea: "  "}, display: "Grace", votable: false},
		{emp: Employee{EmployeeID: "E-3"}, display: "E-3", votable: false},
	}
	for _, tt := range tests {
		if got := tt.emp.DisplayName(); got != tt.display {
			t.Fatalf("DisplayName() = %q, want %q", got, tt.display)
		}
		if got := tt.emp.Votable(); got != tt.votable {
			t.Fatalf("Votable() = %v, want %v for %+v", got, tt.votable, tt.emp)
		}
	}
}
