package gateway

// State 会话生命周期 Connecting -> Authorizing -> Joined -> Closed
type State int32

const (
	StateConnecting State = iota
	StateAuthorizing
	StateJoined
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthorizing:
		return "authorizing"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
