package admin

import (
	"encoding/json"
	"sync"

	"github.com/vango-dev/draftform/pkg/features/form"
	"github.com/vango-dev/draftform/pkg/toast"
	"github.com/vango-dev/draftform/pkg/users"
)

const clientBuffer = 16

// entry is one live screen with its websocket clients.
type entry struct {
	screen *users.Screen

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool

	unsubscribe []func()
}

type client struct {
	send chan []byte
}

func newEntry(screen *users.Screen) *entry {
	e := &entry{
		screen:  screen,
		clients: make(map[*client]struct{}),
	}
	// Session listeners run under the synchronizer lock, so they must not
	// call back into it.
	e.unsubscribe = append(e.unsubscribe,
		screen.Sync.Subscribe(func(s form.Session) {
			v := viewOf(s, true, screen.Submit.State())
			e.broadcast(liveMessage{Type: "state", Form: &v})
		}),
		screen.Submit.Subscribe(func(form.State) {
			v := e.view()
			e.broadcast(liveMessage{Type: "state", Form: &v})
		}),
	)
	return e
}

func (e *entry) view() formView {
	return viewOf(e.screen.Sync.Session(), e.screen.Sync.Seeded(), e.screen.Submit.State())
}

// join registers a client. ok is false once the entry is closed.
func (e *entry) join() (*client, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, false
	}
	c := &client{send: make(chan []byte, clientBuffer)}
	e.clients[c] = struct{}{}
	return c, true
}

func (e *entry) leave(c *client) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.clients[c]; ok {
		delete(e.clients, c)
		close(c.send)
	}
}

// broadcast queues msg for every client. A client whose buffer is full
// loses its oldest pending message.
func (e *entry) broadcast(msg liveMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for c := range e.clients {
		select {
		case c.send <- data:
		default:
			select {
			case <-c.send:
			default:
			}
			select {
			case c.send <- data:
			default:
			}
		}
	}
}

// Emit pushes a toast to every client. Other events are ignored.
func (e *entry) Emit(name string, data any) {
	if name != toast.EventName {
		return
	}
	if t, ok := data.(toast.Toast); ok {
		e.broadcast(liveMessage{Type: toast.EventName, Toast: &t})
	}
}

// close detaches the session and disconnects every client.
func (e *entry) close() {
	for _, fn := range e.unsubscribe {
		fn()
	}
	e.screen.Sync.Detach()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	for c := range e.clients {
		delete(e.clients, c)
		close(c.send)
	}
}

// broadcastTo queues msg for c alone.
func (e *entry) broadcastTo(c *client, msg liveMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
