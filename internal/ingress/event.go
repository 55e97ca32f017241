package ingress

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/harunnryd/statusrole/internal/member"
)

type Kind string

const (
	KindPresence     Kind = "presence"
	KindMemberUpdate Kind = "member_update"
	KindScan         Kind = "scan"
	KindRescan       Kind = "rescan"
)

// Event is a member snapshot captured at receipt, queued for the engine.
type Event struct {
	ID         string
	Kind       Kind
	Member     member.Snapshot
	ReceivedAt time.Time

	done     func()
	doneOnce sync.Once
}

// NewEvent creates an event with a fresh ULID.
func NewEvent(kind Kind, m member.Snapshot) *Event {
	return &Event{
		ID:         ulid.Make().String(),
		Kind:       kind,
		Member:     m,
		ReceivedAt: time.Now(),
	}
}

// OnDone registers fn to run once the event has been processed or dropped.
func (e *Event) OnDone(fn func()) *Event {
	e.done = fn
	return e
}

// Done marks the event finished. Calls after the first are no-ops.
func (e *Event) Done() {
	e.doneOnce.Do(func() {
		if e.done != nil {
			e.done()
		}
	})
}
