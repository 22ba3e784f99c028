package session

// State is the connection state of a Session.
type State uint8

const (
	StateIdle State = iota
	StateScanning
	StateConnecting
	StateAwaitingServices
	StateAwaitingLogin
	StateReady
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateScanning:
		return "SCANNING"
	case StateConnecting:
		return "CONNECTING"
	case StateAwaitingServices:
		return "AWAITING_SERVICES"
	case StateAwaitingLogin:
		return "AWAITING_LOGIN"
	case StateReady:
		return "READY"
	default:
		return "UNKNOWN"
	}
}

// connected reports whether a link exists in this state.
func (s State) connected() bool {
	return s >= StateAwaitingServices
}
