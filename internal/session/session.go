package session

// State describes where a round stands from this client's point of view.
type State int

const (
	// NoSession means no active round is known locally.
	NoSession State = iota
	// AwaitingMyAnswer means a round is active and the caller has not answered.
	AwaitingMyAnswer
	// AwaitingPartner means the caller answered and the partner has not.
	AwaitingPartner
	// BothAnswered means both answer slots are populated.
	BothAnswered
)

func (s State) String() string {
	switch s {
	case NoSession:
		return "no-session"
	case AwaitingMyAnswer:
		return "awaiting-my-answer"
	case AwaitingPartner:
		return "awaiting-partner"
	case BothAnswered:
		return "both-answered"
	}
	return "unknown"
}

// Snapshot is a point-in-time copy of the controller's round state. It is
// safe to retain; the controller never mutates a returned snapshot.
type Snapshot struct {
	SessionId     string
	Question      string
	OptionA       string
	OptionB       string
	AnswererId    string
	GuesserId     string
	CurrentRound  int
	MyAnswer      string
	PartnerAnswer string
	Scored        bool
}

func (s Snapshot) State() State {
	switch {
	case s.SessionId == "":
		return NoSession
	case s.MyAnswer == "":
		return AwaitingMyAnswer
	case s.PartnerAnswer == "":
		return AwaitingPartner
	}
	return BothAnswered
}
