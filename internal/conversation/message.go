package conversation

import "fmt"

// Speaker identifies who produced a message.
type Speaker int

const (
	User Speaker = iota
	Agent
)

func (s Speaker) String() string {
	switch s {
	case User:
		return "user"
	case Agent:
		return "agent"
	default:
		return fmt.Sprintf("speaker(%d)", int(s))
	}
}

// MarshalText lets speakers serialize as "user"/"agent" in JSON payloads.
func (s Speaker) MarshalText() ([]byte, error) {
	switch s {
	case User, Agent:
		return []byte(s.String()), nil
	default:
		return nil, fmt.Errorf("unknown speaker %d", int(s))
	}
}

func (s *Speaker) UnmarshalText(b []byte) error {
	switch string(b) {
	case "user":
		*s = User
	case "agent":
		*s = Agent
	default:
		return fmt.Errorf("unknown speaker %q", string(b))
	}
	return nil
}

// Message is a single immutable entry of a conversation.
type Message struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}
