package voting

type Status string

const (
	StatusIdle      Status = "idle"
	StatusSelecting Status = "selecting"
	StatusArmed     Status = "armed"
	StatusCast      Status = "cast"
	StatusExpired   Status = "expired"
)

func (s Status) Terminal() bool {
	return s == StatusCast || s == StatusExpired
}
