package broadcast

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"channel-service/internal/models"
)

// SendState is the lifecycle of a message in a client's local view.
type SendState int

const (
	// StatePending is an optimistic copy awaiting the server id.
	StatePending SendState = iota
	// StateConfirmed entries carry a server-assigned id.
	StateConfirmed
	// StateFailed sends are kept so the caller can show or discard them.
	StateFailed
)

func (s SendState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Entry is one row of a LocalView.
type Entry struct {
	LocalID uuid.UUID
	State   SendState
	Message models.MessageView
}

// LocalView is a client's ordered copy of a channel: paginated history
// followed by live appends in arrival order. Confirmed entries are unique
// by server id.
type LocalView struct {
	mu       sync.Mutex
	entries  []*Entry
	byServer map[uuid.UUID]*Entry
	byLocal  map[uuid.UUID]*Entry
	// local ids whose pending entry an echo took over before Confirm
	adopted  map[uuid.UUID]struct{}
}

func NewLocalView() *LocalView {
	return &LocalView{
		byServer: make(map[uuid.UUID]*Entry),
		byLocal:  make(map[uuid.UUID]*Entry),
		adopted:  make(map[uuid.UUID]struct{}),
	}
}

// Reset replaces the view with a freshly loaded history page.
func (v *LocalView) Reset(history []models.MessageView) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.entries = nil
	v.byServer = make(map[uuid.UUID]*Entry)
	v.byLocal = make(map[uuid.UUID]*Entry)
	v.adopted = make(map[uuid.UUID]struct{})
	for _, m := range history {
		v.appendConfirmedLocked(m)
	}
}

// Prepend inserts an older history page ahead of the current entries.
// Messages already present are skipped.
func (v *LocalView) Prepend(older []models.MessageView) int {
	v.mu.Lock()
	defer v.mu.Unlock()

	head := make([]*Entry, 0, len(older))
	for _, m := range older {
		if _, ok := v.byServer[m.ID]; ok {
			continue
		}
		e := &Entry{State: StateConfirmed, Message: m}
		v.byServer[m.ID] = e
		head = append(head, e)
	}
	v.entries = append(head, v.entries...)
	return len(head)
}

// BeginSend appends an optimistic copy of draft and returns its local id.
func (v *LocalView) BeginSend(draft models.MessageView) uuid.UUID {
	v.mu.Lock()
	defer v.mu.Unlock()

	localID := uuid.New()
	e := &Entry{LocalID: localID, State: StatePending, Message: draft}
	v.byLocal[localID] = e
	v.entries = append(v.entries, e)
	return localID
}

// Confirm moves a pending send to confirmed with the server's copy. If the
// broadcast echo already landed elsewhere in the view, the pending entry is
// dropped in its favour. When an echo took over the entry but belonged to an
// identical send, msg is appended so neither message is lost.
func (v *LocalView) Confirm(localID uuid.UUID, msg models.MessageView) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.adopted[localID]; ok {
		delete(v.adopted, localID)
		v.appendConfirmedLocked(msg)
		return
	}
	e, ok := v.byLocal[localID]
	if !ok || e.State != StatePending {
		return
	}
	delete(v.byLocal, localID)

	if _, echoed := v.byServer[msg.ID]; echoed {
		v.removeLocked(e)
		return
	}
	e.State = StateConfirmed
	e.Message = msg
	v.byServer[msg.ID] = e
}

// Fail marks a pending send as failed. Failed sends are never retried.
func (v *LocalView) Fail(localID uuid.UUID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.adopted, localID)

	e, ok := v.byLocal[localID]
	if !ok || e.State != StatePending {
		return
	}
	e.State = StateFailed
}

// Discard drops a failed send from the view.
func (v *LocalView) Discard(localID uuid.UUID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	e, ok := v.byLocal[localID]
	if !ok || e.State != StateFailed {
		return false
	}
	delete(v.byLocal, localID)
	v.removeLocked(e)
	return true
}

// Receive applies a broadcast message. It reports false when the id is
// already in the view. An echo of this client's own pending send takes over
// that entry in place, so the message is never shown twice.
func (v *LocalView) Receive(msg models.MessageView) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.byServer[msg.ID]; ok {
		return false
	}
	if e := v.pendingEchoLocked(msg); e != nil {
		delete(v.byLocal, e.LocalID)
		v.adopted[e.LocalID] = struct{}{}
		e.State = StateConfirmed
		e.Message = msg
		v.byServer[msg.ID] = e
		return true
	}
	v.appendConfirmedLocked(msg)
	return true
}

// pendingEchoLocked finds the oldest pending send msg could be the echo of.
func (v *LocalView) pendingEchoLocked(msg models.MessageView) *Entry {
	body := normalizeBody(msg.Content)
	for _, e := range v.entries {
		if e.State != StatePending || e.Message.UserID != msg.UserID {
			continue
		}
		if !sameParent(e.Message.ParentMessageID, msg.ParentMessageID) {
			continue
		}
		if normalizeBody(e.Message.Content) == body {
			return e
		}
	}
	return nil
}

func normalizeBody(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Remove drops a confirmed message, as after a deletion broadcast.
func (v *LocalView) Remove(messageID uuid.UUID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	e, ok := v.byServer[messageID]
	if !ok {
		return false
	}
	delete(v.byServer, messageID)
	v.removeLocked(e)
	return true
}

// Entries returns a snapshot of the view in display order.
func (v *LocalView) Entries() []Entry {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]Entry, len(v.entries))
	for i, e := range v.entries {
		out[i] = *e
	}
	return out
}

// Messages returns the confirmed messages in display order.
func (v *LocalView) Messages() []models.MessageView {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]models.MessageView, 0, len(v.entries))
	for _, e := range v.entries {
		if e.State == StateConfirmed {
			out = append(out, e.Message)
		}
	}
	return out
}

// Len returns the number of entries in any state.
func (v *LocalView) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.entries)
}

func (v *LocalView) appendConfirmedLocked(m models.MessageView) {
	if _, ok := v.byServer[m.ID]; ok {
		return
	}
	e := &Entry{State: StateConfirmed, Message: m}
	v.byServer[m.ID] = e
	v.entries = append(v.entries, e)
}

func (v *LocalView) removeLocked(target *Entry) {
	for i, e := range v.entries {
		if e == target {
			v.entries = append(v.entries[:i], v.entries[i+1:]...)
			return
		}
	}
}
