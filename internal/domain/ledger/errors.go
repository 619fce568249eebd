package ledger

import "errors"

var (
	ErrAlreadyVoted    = errors.New("vote already recorded for this candidate")
	ErrSelfVote        = errors.New("employees cannot vote for themselves")
	ErrUnknownEmployee = errors.New("voter or candidate is not a registered employee")
	ErrInvalidVote     = errors.New("voter and candidate are required")
)
