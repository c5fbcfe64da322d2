package completion

import (
	"log/slog"
	"sync"

	"go.lsp.dev/protocol"
)

// Provider is the completion source, usually a language server proxy. The
// callback must be invoked exactly once, from a goroutine other than the
// caller's; RequestCompletion itself must not block.
type Provider interface {
	RequestCompletion(requestID int, buffer BufferID, pos protocol.Position, cb func(items []protocol.CompletionItem, err error))
}

type msgKind int

const (
	msgTrigger msgKind = iota
	msgUpdateInput
	msgReceive
	msgNext
	msgPrevious
	msgCancel
	msgSnapshot
)

type message struct {
	kind      msgKind
	buffer    BufferID
	pos       protocol.Position
	requestID int
	input     string
	items     []protocol.CompletionItem
	reply     chan Snapshot
}

// Snapshot is an immutable copy of the completion state, the only view
// handed out to rendering code.
type Snapshot struct {
	Status    Status
	RequestID int
	Input     string
	Index     int
	Items     []ScoredItem
}

type Config struct {
	// Matcher overrides the default fuzzy matcher.
	Matcher Matcher
	// OnListChanged is called after the displayed list was repopulated.
	OnListChanged func()
	// OnSelectionChanged is called with the new index after the selection
	// moved.
	OnSelectionChanged func(index int)
}

// Controller owns a Completion and serializes every mutation through a
// message queue consumed by a single goroutine. Provider responses are
// posted into the same queue, so there is no shared mutable state and no
// locking; stale responses are rejected by the request id check in Receive.
type Controller struct {
	completion *Completion
	provider   Provider
	config     Config
	queue      chan message
	done       chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

func NewController(provider Provider, config Config) *Controller {
	ctl := &Controller{
		completion: New(config.Matcher),
		provider:   provider,
		config:     config,
		queue:      make(chan message),
		done:       make(chan struct{}),
	}

	ctl.wg.Add(1)
	go ctl.run()

	return ctl
}

func (ctl *Controller) run() {
	defer ctl.wg.Done()
	for {
		select {
		case <-ctl.done:
			return
		case msg := <-ctl.queue:
			ctl.dispatch(msg)
		}
	}
}

// Stop shuts the message loop down. Messages posted after Stop are dropped.
func (ctl *Controller) Stop() {
	ctl.stopOnce.Do(func() {
		close(ctl.done)
	})
	ctl.wg.Wait()
}

func (ctl *Controller) post(msg message) {
	select {
	case ctl.queue <- msg:
	case <-ctl.done:
	}
}

// Trigger activates the completion at a buffer position and dispatches the
// provider fetch under a fresh request id. It returns immediately, the
// response arrives as a queue message.
func (ctl *Controller) Trigger(buffer BufferID, pos protocol.Position) {
	ctl.post(message{kind: msgTrigger, buffer: buffer, pos: pos})
}

// UpdateInput replaces the filter input, typically on every keystroke after
// the trigger position.
func (ctl *Controller) UpdateInput(input string) {
	ctl.post(message{kind: msgUpdateInput, input: input})
}

// Receive delivers a provider response. Hosts that fetch completions through
// their own channel can feed results in here; responses for superseded
// request ids are dropped.
func (ctl *Controller) Receive(requestID int, input string, items []protocol.CompletionItem) {
	ctl.post(message{kind: msgReceive, requestID: requestID, input: input, items: items})
}

func (ctl *Controller) Next() {
	ctl.post(message{kind: msgNext})
}

func (ctl *Controller) Previous() {
	ctl.post(message{kind: msgPrevious})
}

func (ctl *Controller) Cancel() {
	ctl.post(message{kind: msgCancel})
}

// Snapshot returns a copy of the current state. It round-trips through the
// message loop, so it also acts as a barrier: everything posted before it is
// fully processed when it returns.
func (ctl *Controller) Snapshot() Snapshot {
	reply := make(chan Snapshot, 1)
	ctl.post(message{kind: msgSnapshot, reply: reply})
	select {
	case snap := <-reply:
		return snap
	case <-ctl.done:
		return Snapshot{}
	}
}

func (ctl *Controller) dispatch(msg message) {
	c := ctl.completion
	oldIndex := c.Index()

	switch msg.kind {
	case msgTrigger:
		requestID := c.RequestID() + 1
		c.Start(requestID)
		input := c.Input()
		slog.Debug("completion requested", "requestId", requestID, "buffer", msg.buffer)
		ctl.provider.RequestCompletion(requestID, msg.buffer, msg.pos, func(items []protocol.CompletionItem, err error) {
			if err != nil {
				slog.Debug("completion request failed", "requestId", requestID, "err", err)
				return
			}
			ctl.post(message{kind: msgReceive, requestID: requestID, input: input, items: items})
		})

	case msgUpdateInput:
		c.UpdateInput(msg.input)
		if c.Status() == Started {
			ctl.notifyListChanged()
		}

	case msgReceive:
		accepted := c.Status() == Started && c.RequestID() == msg.requestID
		if !accepted {
			slog.Debug("stale completion response dropped", "requestId", msg.requestID)
		}
		c.Receive(msg.requestID, msg.input, msg.items)
		if accepted {
			ctl.notifyListChanged()
		}

	case msgNext:
		c.Next()

	case msgPrevious:
		c.Previous()

	case msgCancel:
		if c.Status() == Started {
			c.Cancel()
			ctl.notifyListChanged()
		}

	case msgSnapshot:
		msg.reply <- Snapshot{
			Status:    c.Status(),
			RequestID: c.RequestID(),
			Input:     c.Input(),
			Index:     c.Index(),
			Items:     append([]ScoredItem(nil), c.CurrentItems()...),
		}
	}

	if c.Index() != oldIndex && ctl.config.OnSelectionChanged != nil {
		ctl.config.OnSelectionChanged(c.Index())
	}
}

func (ctl *Controller) notifyListChanged() {
	if ctl.config.OnListChanged != nil {
		ctl.config.OnListChanged()
	}
}
