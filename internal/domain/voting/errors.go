package voting

import "errors"

var (
	ErrInvalidCandidate  = errors.New("candidate is not votable")
	ErrAlreadyVoted      = errors.New("already voted for this candidate")
	ErrSessionExpired    = errors.New("voting session expired")
	ErrLedgerWrite       = errors.New("vote could not be recorded, retry")
	ErrNoActiveSession   = errors.New("no active voting session")
	ErrSessionInProgress = errors.New("voting session already in progress")
)
