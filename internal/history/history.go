// Package history manages the chat transcript for livedit.
// The transcript is persisted as a JSON array of messages.
package history

import (
	"encoding/json"
	"sync"
	"time"
)

const maxEntries = 500

// Senders.
const (
	SenderUser = "User"
	SenderAI   = "AI"
)

const (
	userAvatar = "/static/images/avatar/user.png"
	aiAvatar   = "/static/images/avatar/ai.png"
	greeting   = "Hello! How can I help you today?"
)

// Message represents a single chat message.
type Message struct {
	ID     int    `json:"id"`
	Sender string `json:"sender"`
	Avatar string `json:"avatar,omitempty"`
	Text   string `json:"text"`
	Time   string `json:"time"`
}

// Transcript is an ordered list of messages, safe for concurrent use.
type Transcript struct {
	mu     sync.RWMutex
	msgs   []Message
	nextID int
	now    func() time.Time
}

// NewTranscript returns a transcript seeded with the assistant greeting.
func NewTranscript() *Transcript {
	t := &Transcript{nextID: 1, now: time.Now}
	t.Append(SenderAI, greeting)
	return t
}

// Append adds a message from sender and returns its ID.
func (t *Transcript) Append(sender, text string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	avatar := aiAvatar
	if sender == SenderUser {
		avatar = userAvatar
	}
	msg := Message{
		ID:     t.nextID,
		Sender: sender,
		Avatar: avatar,
		Text:   text,
		Time:   t.now().Format("15:04"),
	}
	t.nextID++
	t.msgs = append(t.msgs, msg)

	// Trim to max entries, keeping the most recent.
	if len(t.msgs) > maxEntries {
		t.msgs = t.msgs[len(t.msgs)-maxEntries:]
	}
	return msg.ID
}

// Update replaces the text of message id. It reports false if no such
// message exists.
func (t *Transcript) Update(id int, text string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.msgs) - 1; i >= 0; i-- {
		if t.msgs[i].ID == id {
			t.msgs[i].Text = text
			return true
		}
	}
	return false
}

// Get returns message id.
func (t *Transcript) Get(id int) (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, m := range t.msgs {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}

// Messages returns a copy of all messages.
func (t *Transcript) Messages() []Message {
	return t.Last(0)
}

// Last returns the most recent n messages; n <= 0 returns all.
func (t *Transcript) Last(n int) []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	msgs := t.msgs
	if n > 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.msgs)
}

// MarshalJSON encodes the transcript as a JSON array.
func (t *Transcript) MarshalJSON() ([]byte, error) {
	msgs := t.Messages()
	if msgs == nil {
		msgs = []Message{}
	}
	return json.Marshal(msgs)
}

// Restore replaces the transcript with the array encoded in data. Data
// that is not a JSON array of messages is ignored and false is returned.
func (t *Transcript) Restore(data []byte) bool {
	var msgs []Message
	if err := json.Unmarshal(data, &msgs); err != nil || msgs == nil {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(msgs) > maxEntries {
		msgs = msgs[len(msgs)-maxEntries:]
	}
	t.msgs = msgs
	t.nextID = 1
	for _, m := range msgs {
		if m.ID >= t.nextID {
			t.nextID = m.ID + 1
		}
	}
	return true
}
