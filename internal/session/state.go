package session

import (
	"slices"
	"sync"

	"github.com/s0ngyang/catai/internal/domain"
)

// Snapshot is a read-only copy of the session state handed to UI code.
type Snapshot struct {
	ThreadID string           `json:"thread_id,omitempty"`
	Messages []domain.Message `json:"messages"`
	Images   []string         `json:"images"`
	Busy     bool             `json:"busy"`
	// Error is the user-visible message of the last failed turn.
	Error string `json:"error,omitempty"`
}

// State holds the mutable session data. Every mutation notifies subscribers.
type State struct {
	mu      sync.Mutex
	data    Snapshot
	subs    map[int]chan Snapshot
	nextSub int
	closed  bool
}

func newState() *State {
	return &State{
		data: Snapshot{Messages: []domain.Message{}, Images: []string{}},
		subs: make(map[int]chan Snapshot),
	}
}

// Snapshot returns a deep copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

// Subscribe returns a channel receiving the latest snapshot after each change, and a
// function that cancels the subscription. Slow readers only see the most recent snapshot.
func (s *State) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Snapshot, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.copyLocked()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sub, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(sub)
			}
		})
	}
}

// SetImages replaces the displayed image URLs.
func (s *State) SetImages(urls []string) {
	s.update(func(d *Snapshot) {
		d.Images = slices.Clone(urls)
		if d.Images == nil {
			d.Images = []string{}
		}
	})
}

func (s *State) threadID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.ThreadID
}

func (s *State) setThreadID(id string) {
	s.update(func(d *Snapshot) { d.ThreadID = id })
}

// acquire sets the busy flag. It reports false when a turn is already in flight.
func (s *State) acquire() bool {
	acquired := false
	s.update(func(d *Snapshot) {
		if d.Busy {
			return
		}
		d.Busy = true
		d.Error = ""
		acquired = true
	})
	return acquired
}

// release clears the busy flag and records errMsg, if any.
func (s *State) release(errMsg string) {
	s.update(func(d *Snapshot) {
		d.Busy = false
		d.Error = errMsg
	})
}

func (s *State) appendMessage(msg domain.Message) {
	s.update(func(d *Snapshot) { d.Messages = append(d.Messages, msg) })
}

// reconcile replaces the placeholder carrying nonce with the confirmed message. Without a
// nonce match the last message is replaced.
func (s *State) reconcile(nonce string, confirmed domain.Message) {
	s.update(func(d *Snapshot) {
		idx := -1
		if nonce != "" {
			idx = slices.IndexFunc(d.Messages, func(m domain.Message) bool {
				return m.Pending && m.Nonce() == nonce
			})
		}
		if idx < 0 {
			idx = len(d.Messages) - 1
		}
		if idx < 0 {
			d.Messages = append(d.Messages, confirmed)
			return
		}
		d.Messages[idx] = confirmed
	})
}

// replaceMessages installs the authoritative message list, ordered by creation time.
func (s *State) replaceMessages(messages []domain.Message) {
	sorted := make([]domain.Message, 0, len(messages))
	for _, m := range messages {
		sorted = append(sorted, m.Clone())
	}
	domain.SortMessages(sorted)
	s.update(func(d *Snapshot) { d.Messages = sorted })
}

// close drops every subscriber.
func (s *State) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

func (s *State) update(fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.data)

	if len(s.subs) == 0 {
		return
	}
	snap := s.copyLocked()
	for _, ch := range s.subs {
		// Drop a stale unread snapshot so the send never blocks.
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

func (s *State) copyLocked() Snapshot {
	out := Snapshot{
		ThreadID: s.data.ThreadID,
		Busy:     s.data.Busy,
		Error:    s.data.Error,
		Images:   slices.Clone(s.data.Images),
		Messages: make([]domain.Message, len(s.data.Messages)),
	}
	if out.Images == nil {
		out.Images = []string{}
	}
	for i, m := range s.data.Messages {
		out.Messages[i] = m.Clone()
	}
	return out
}
