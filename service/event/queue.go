package event

import (
	"context"
	"time"

	"github.com/shahfaizanali/manzoori/internal/clock"
	"github.com/shahfaizanali/manzoori/service/approval"
)

// Standard event topics.
const (
	TopicChangeCaptured = "change.captured"
	TopicChangeApproved = "change.approved"
	TopicChangeRejected = "change.rejected"
)

// Event is published whenever a change is captured or decided. The stream is
// an observability/audit feed; the engine never depends on it being
// consumed.
type Event struct {
	Topic     string           `json:"topic"`
	Change    *approval.Change `json:"change"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Queue is a bounded in-memory event stream. Publish is best-effort: when no
// consumer keeps up the oldest buffered events are dropped so engine
// operations never block on observers.
type Queue struct {
	events chan *Event
}

// NewQueue creates an event queue with the given buffer size.
func NewQueue(buffer int) *Queue {
	if buffer <= 0 {
		buffer = 100
	}
	return &Queue{events: make(chan *Event, buffer)}
}

// Publish appends an event, evicting the oldest buffered event when full.
func (q *Queue) Publish(_ context.Context, topic string, change *approval.Change) {
	event := &Event{Topic: topic, Change: change, CreatedAt: clock.Now()}
	for {
		select {
		case q.events <- event:
			return
		default:
			select {
			case <-q.events: // evict oldest
			default:
			}
		}
	}
}

// Consume retrieves a single event, blocking until one is available or ctx
// is done.
func (q *Queue) Consume(ctx context.Context) (*Event, error) {
	select {
	case event := <-q.events:
		return event, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Size returns the current number of buffered events.
func (q *Queue) Size() int {
	return len(q.events)
}
