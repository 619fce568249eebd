package leaderboard

import (
	"sort"

	"golang.org/x/text/cases"

	"ideavote/internal/domain/directory"
	"ideavote/internal/domain/ledger"
)

const TopN = 20

type Entry struct {
	Rank         int    `json:"rank"`
	EmployeeID   string `json:"employeeId"`
	DisplayName  string `json:"displayName"`
	GroupName    string `json:"groupName,omitempty"`
	SelectedIdea string `json:"selectedIdea,omitempty"`
	VoteCount    int    `json:"voteCount"`
}

// Rank orders employees by votes received, then by case-folded display name,
// then by employee id, and keeps the top TopN. Employees without votes are
// included with a zero count. Votes for unknown employees are ignored.
func Rank(employees []directory.Employee, votes []ledger.Vote) []Entry {
	counts := make(map[string]int, len(employees))
	for _, v := range votes {
		counts[v.VotedForEmployeeID]++
	}

	fold := cases.Fold()
	type keyed struct {
		entry Entry
		key   string
	}
	rows := make([]keyed, 0, len(employees))
	for _, emp := range employees {
		name := emp.DisplayName()
		rows = append(rows, keyed{
			entry: Entry{
				EmployeeID:   emp.EmployeeID,
				DisplayName:  name,
				GroupName:    emp.GroupName,
				SelectedIdea: emp.SelectedIdea,
				VoteCount:    counts[emp.EmployeeID],
			},
			key: fold.String(name),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.entry.VoteCount != b.entry.VoteCount {
			return a.entry.VoteCount > b.entry.VoteCount
		}
		if a.key != b.key {
			return a.key < b.key
		}
		return a.entry.EmployeeID < b.entry.EmployeeID
	})

	if len(rows) > TopN {
		rows = rows[:TopN]
	}
	out := make([]Entry, len(rows))
	for i, row := range rows {
		row.entry.Rank = i + 1
		out[i] = row.entry
	}
	return out
}
