package conversation

import "strings"

const (
	DefaultUserLabel  = "Human"
	DefaultAgentLabel = "AI"
	DefaultPersona    = "A chat between a Human and an AI."
	DefaultPurpose    = "Your purpose is to assist in answering Human."

	separator = ":"
)

// Labels names the two roles of the transcript and the persona preamble.
type Labels struct {
	User    string
	Agent   string
	Persona string
}

// DefaultLabels returns the Human/AI labelling scheme.
func DefaultLabels() Labels {
	return Labels{
		User:    DefaultUserLabel,
		Agent:   DefaultAgentLabel,
		Persona: DefaultPersona,
	}
}

// labelFor returns the label a message is rendered under. The mapping is
// crossed: user messages carry the agent label and agent messages the user
// label. Prompts built by earlier releases depend on this, so keep it.
func (l Labels) labelFor(s Speaker) string {
	if s == User {
		return l.Agent
	}
	return l.User
}

// Render builds the prompt for the next generation:
//
//	<persona>
//	<user>:<purpose>
//	<label>:<text>     (one line per message)
//
//	<agent>:
//
// The purpose is framed as a user line. Render does not modify msgs.
func Render(purpose string, labels Labels, msgs []Message) string {
	var history strings.Builder
	writeLine(&history, labels.User, purpose)
	for _, m := range msgs {
		writeLine(&history, labels.labelFor(m.Speaker), m.Text)
	}

	var b strings.Builder
	b.Grow(len(labels.Persona) + history.Len() + len(labels.Agent) + 3)
	b.WriteString(labels.Persona)
	b.WriteByte('\n')
	b.WriteString(history.String())
	b.WriteByte('\n')
	b.WriteString(labels.Agent)
	b.WriteString(separator)
	return b.String()
}

// Render renders the conversation's current contents.
func (c *Conversation) Render(purpose string, labels Labels) string {
	return Render(purpose, labels, c.messages)
}

func writeLine(b *strings.Builder, label, text string) {
	b.WriteString(label)
	b.WriteString(separator)
	b.WriteString(text)
	b.WriteByte('\n')
}
