package directory

import (
	"strings"
	"time"
)

// Idea is one of the up to three ideas an employee authored. Slot is the
// 1-based idea column group it is stored in. Only Employee.SelectedIdea is
// voted on.
type Idea struct {
	Slot     int    `json:"slot"`
	Title    string `json:"title"`
	Problem  string `json:"problem,omitempty"`
	Solution string `json:"solution,omitempty"`
	ROI      string `json:"roi,omitempty"`
}

func (i Idea) IsZero() bool {
	return i.Title == "" && i.Problem == "" && i.Solution == "" && i.ROI == ""
}

const MaxIdeas = 3

type Employee struct {
	ID                     string    `json:"id"`
	EmployeeID             string    `json:"employeeId"`
	ExcelID                string    `json:"excelId,omitempty"`
	Name                   string    `json:"name"`
	Name2                  string    `json:"name2,omitempty"`
	Email                  string    `json:"email,omitempty"`
	GroupName              string    `json:"groupName,omitempty"`
	SelectedIdea           string    `json:"selectedIdea,omitempty"`
	Ideas                  []Idea    `json:"ideas,omitempty"`
	ArchitecturalDiagram   string    `json:"architecturalDiagram,omitempty"`
	HackathonParticipation string    `json:"hackathonParticipation,omitempty"`
	StartTime              string    `json:"startTime,omitempty"`
	CompletionTime         string    `json:"completionTime,omitempty"`
	LastModifiedTime       string    `json:"lastModifiedTime,omitempty"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

// DisplayName is the name shown in candidate lists and on the leaderboard.
func (e Employee) DisplayName() string {
	if name := strings.TrimSpace(e.Name); name != "" {
		return name
	}
	if name := strings.TrimSpace(e.Name2); name != "" {
		return name
	}
	return e.EmployeeID
}

// Votable reports whether the employee has an idea that can receive votes.
func (e Employee) Votable() bool {
	return strings.TrimSpace(e.SelectedIdea) != ""
}

// IdeaSlots places Ideas in their numbered columns. Ideas without a slot
// fill the first free columns in order.
func (e Employee) IdeaSlots() [MaxIdeas]Idea {
	var slots [MaxIdeas]Idea
	var taken [MaxIdeas]bool
	for _, idea := range e.Ideas {
		if idea.Slot >= 1 && idea.Slot <= MaxIdeas && !taken[idea.Slot-1] {
			slots[idea.Slot-1] = idea
			taken[idea.Slot-1] = true
		}
	}
	for _, idea := range e.Ideas {
		if idea.Slot >= 1 && idea.Slot <= MaxIdeas {
			continue
		}
		for i := range slots {
			if !taken[i] {
				idea.Slot = i + 1
				slots[i] = idea
				taken[i] = true
				break
			}
		}
	}
	return slots
}
