// Package conversation holds the append-only chat history and renders it
// into the prompt handed to the model.
package conversation

import "slices"

// Conversation is an ordered, append-only list of messages. It is not safe
// for concurrent use; the owning session serializes access.
type Conversation struct {
	messages []Message
}

func New() *Conversation {
	return &Conversation{}
}

// Append adds messages to the end of the conversation in the given order.
func (c *Conversation) Append(msgs ...Message) {
	c.messages = append(c.messages, msgs...)
}

func (c *Conversation) Len() int {
	return len(c.messages)
}

// Messages returns a copy of the history.
func (c *Conversation) Messages() []Message {
	return slices.Clone(c.messages)
}

// Last returns the most recent message, if any.
func (c *Conversation) Last() (Message, bool) {
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}
