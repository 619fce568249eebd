package ledger

import "time"

type Vote struct {
	ID                 string    `json:"id"`
	VoterEmployeeID    string    `json:"voterEmployeeId"`
	VotedForEmployeeID string    `json:"votedForEmployeeId"`
	CreatedAt          time.Time `json:"createdAt"`
}
