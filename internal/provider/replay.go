package provider

import (
	"encoding/json"
	"time"

	"go.lsp.dev/protocol"

	"github.com/tmelen/edkit/internal/completion"
)

// Replay serves a recorded completion response, in either LSP wire shape.
// Useful for reproducing ranking issues from a captured server payload.
type Replay struct {
	Payload json.RawMessage
	// Delay postpones delivery, to replay a slow server.
	Delay time.Duration
}

func (p *Replay) RequestCompletion(requestID int, buffer completion.BufferID, pos protocol.Position, cb func(items []protocol.CompletionItem, err error)) {
	go func() {
		if p.Delay > 0 {
			time.Sleep(p.Delay)
		}
		var resp Response
		if err := json.Unmarshal(p.Payload, &resp); err != nil {
			cb(nil, err)
			return
		}
		cb(resp.Items, nil)
	}()
}
