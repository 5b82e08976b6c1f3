// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"time"

	"github.com/jeranaias/smartassist/internal/gateway"
	"github.com/jeranaias/smartassist/internal/mode"
)

// MaxMessages is the maximum number of messages to keep in conversation history.
// When exceeded, old messages are pruned to prevent unbounded memory growth.
const MaxMessages = 1000

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds a chat transcript with metadata.
//
// ID stays empty until the conversation is first persisted: storage assigns
// the ID lazily on the first user message, never on reset.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Mode      mode.ID   `json:"mode"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages []*Message `json:"messages"`
}

// NewConversation creates a fresh conversation for the given mode, seeded
// with the mode's greeting bubble.
func NewConversation(m mode.Mode) *Conversation {
	conv := &Conversation{
		Mode:      m.ID,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Messages:  make([]*Message, 0, 8),
	}
	conv.Messages = append(conv.Messages, NewGreetingMessage(m.Greeting))
	return conv
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AddMessage adds a message to the conversation.
func (c *Conversation) AddMessage(msg *Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()
	c.updateTitle()
	c.pruneOldMessages()
}

// AddUserMessage creates and adds a user message.
func (c *Conversation) AddUserMessage(content string) *Message {
	msg := NewUserMessage(content)
	c.AddMessage(msg)
	return msg
}

// AddAssistantMessage creates and adds a streaming assistant placeholder.
func (c *Conversation) AddAssistantMessage() *Message {
	msg := NewAssistantMessage()
	c.AddMessage(msg)
	return msg
}

// GetLastMessage returns the most recent message, or nil if empty.
func (c *Conversation) GetLastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// GetLastUserMessage returns the most recent user message.
func (c *Conversation) GetLastUserMessage() *Message {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleUser {
			return c.Messages[i]
		}
	}
	return nil
}

// GetMessageByID returns a message by its ID.
func (c *Conversation) GetMessageByID(id string) *Message {
	for _, msg := range c.Messages {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

// AppendToLast appends a token to the last (streaming) message.
func (c *Conversation) AppendToLast(token string) {
	last := c.GetLastMessage()
	if last != nil && last.IsStreaming {
		last.AppendToken(token)
	}
}

// FinalizeLast finalizes the last streaming message with statistics.
func (c *Conversation) FinalizeLast(stats *Statistics) {
	last := c.GetLastMessage()
	if last != nil && last.IsStreaming {
		last.FinalizeStream(stats)
	}
}

// RemoveMessage deletes the message with the given ID and reports whether it
// was found. Used when a cancelled stream produced no content: the empty
// placeholder bubble is dropped rather than finalized.
func (c *Conversation) RemoveMessage(id string) bool {
	for i, msg := range c.Messages {
		if msg.ID == id {
			c.Messages = append(c.Messages[:i], c.Messages[i+1:]...)
			c.UpdatedAt = time.Now()
			return true
		}
	}
	return false
}

// TruncateAfterLastUser drops every message after the most recent user
// message and returns it. Used by regenerate: the old assistant reply is
// discarded and the same user turn is replayed. Returns nil when the
// conversation has no user message yet.
func (c *Conversation) TruncateAfterLastUser() *Message {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleUser {
			c.Messages = c.Messages[:i+1]
			c.UpdatedAt = time.Now()
			return c.Messages[i]
		}
	}
	return nil
}

// HasUserMessages reports whether at least one user message exists.
func (c *Conversation) HasUserMessages() bool {
	return c.GetLastUserMessage() != nil
}

// IsFresh reports whether the conversation holds nothing beyond the greeting.
func (c *Conversation) IsFresh() bool {
	for _, msg := range c.Messages {
		if !msg.Greeting {
			return false
		}
	}
	return c.ID == ""
}

// MessageCount returns the number of messages, greeting included.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// =============================================================================
// GATEWAY CONVERSION
// =============================================================================

// ToGatewayMessages builds the upstream history: every message in order,
// excluding the greeting, streaming placeholders, failed replies, and
// anything with empty content.
func (c *Conversation) ToGatewayMessages() []gateway.Message {
	messages := make([]gateway.Message, 0, len(c.Messages))

	for _, msg := range c.Messages {
		if msg.Greeting || msg.IsStreaming || msg.Failed {
			continue
		}

		var role string
		switch msg.Role {
		case RoleUser:
			role = "user"
		case RoleAssistant:
			role = "assistant"
		default:
			continue
		}

		if msg.Content == "" {
			continue
		}
		messages = append(messages, gateway.Message{
			Role:    role,
			Content: msg.Content,
		})
	}

	return messages
}

// =============================================================================
// TITLE MANAGEMENT
// =============================================================================

// updateTitle auto-generates a title from the first user message if not set.
func (c *Conversation) updateTitle() {
	if c.Title != "" {
		return
	}

	for _, msg := range c.Messages {
		if msg.Role == RoleUser {
			c.Title = msg.Preview(50)
			return
		}
	}
}

// SetTitle manually sets the conversation title.
func (c *Conversation) SetTitle(title string) {
	c.Title = title
	c.UpdatedAt = time.Now()
}

// GetTitle returns the conversation title or a default.
func (c *Conversation) GetTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return "New Conversation"
}

// =============================================================================
// HELPERS
// =============================================================================

// Preview returns a short preview of the conversation.
func (c *Conversation) Preview() string {
	last := c.GetLastUserMessage()
	if last == nil {
		return "Empty conversation"
	}
	return last.Preview(100)
}

// Clone creates a deep copy of the conversation.
func (c *Conversation) Clone() *Conversation {
	clone := &Conversation{
		ID:        c.ID,
		Title:     c.Title,
		Mode:      c.Mode,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Messages:  make([]*Message, len(c.Messages)),
	}

	for i, msg := range c.Messages {
		msgCopy := Message{
			ID:            msg.ID,
			Role:          msg.Role,
			Timestamp:     msg.Timestamp,
			Content:       msg.GetDisplayContent(),
			Greeting:      msg.Greeting,
			Failed:        msg.Failed,
			TokenCount:    msg.TokenCount,
			TTFT:          msg.TTFT,
			TotalDuration: msg.TotalDuration,
			TokensPerSec:  msg.TokensPerSec,
		}
		clone.Messages[i] = &msgCopy
	}

	return clone
}

// pruneOldMessages caps history at MaxMessages, always preserving the greeting.
func (c *Conversation) pruneOldMessages() {
	if len(c.Messages) <= MaxMessages {
		return
	}

	var greetings []*Message
	var rest []*Message
	for _, msg := range c.Messages {
		if msg.Greeting {
			greetings = append(greetings, msg)
		} else {
			rest = append(rest, msg)
		}
	}

	if len(rest) > MaxMessages {
		rest = rest[len(rest)-MaxMessages:]
	}

	c.Messages = make([]*Message, 0, len(greetings)+len(rest))
	c.Messages = append(c.Messages, greetings...)
	c.Messages = append(c.Messages, rest...)
}
