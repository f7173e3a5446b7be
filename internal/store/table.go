package store

import (
	"sort"
	"sync"

	"github.com/puzpuzpuz/xsync/v4"
)

const subscriberBuffer = 100

// Table is the concurrent URL-keyed state table.
//
// Entries are replaced atomically as whole values; a reader never sees half
// of a transition. Subscribers receive every committed state through a
// buffered channel; when a buffer is full the update is dropped for that
// subscriber rather than blocking the committing poll loop.
type Table struct {
	states *xsync.Map[string, EndpointState]

	subMu       sync.RWMutex
	subscribers map[chan EndpointState]struct{}
}

var _ Reader = (*Table)(nil)

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		states:      xsync.NewMap[string, EndpointState](),
		subscribers: make(map[chan EndpointState]struct{}),
	}
}

// Register adds url in the unknown state and returns its current state.
// Registering an existing URL leaves its state untouched.
func (t *Table) Register(url string) EndpointState {
	state, _ := t.states.LoadOrStore(url, NewEndpointState(url))
	return state
}

// Commit publishes state as the current state of state.URL and notifies
// subscribers.
func (t *Table) Commit(state EndpointState) {
	t.states.Store(state.URL, state)
	t.notifySubscribers(state)
}

// Get returns the state of url.
func (t *Table) Get(url string) (EndpointState, bool) {
	return t.states.Load(url)
}

// All returns a snapshot of every state ordered by URL.
func (t *Table) All() []EndpointState {
	out := make([]EndpointState, 0, t.states.Size())
	t.states.Range(func(_ string, state EndpointState) bool {
		out = append(out, state)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}

// Len returns the number of monitored URLs.
func (t *Table) Len() int {
	return t.states.Size()
}

// Subscribe creates a subscription with a buffer of 100 states.
func (t *Table) Subscribe() <-chan EndpointState {
	ch := make(chan EndpointState, subscriberBuffer)
	t.subMu.Lock()
	t.subscribers[ch] = struct{}{}
	t.subMu.Unlock()
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (t *Table) Unsubscribe(ch <-chan EndpointState) {
	t.subMu.Lock()
	defer t.subMu.Unlock()

	for subCh := range t.subscribers {
		if subCh == ch {
			delete(t.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

func (t *Table) notifySubscribers(state EndpointState) {
	t.subMu.RLock()
	defer t.subMu.RUnlock()

	for ch := range t.subscribers {
		select {
		case ch <- state:
		default:
			// subscriber is slow, drop the update
		}
	}
}
