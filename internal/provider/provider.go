// Package provider implements completion sources for the completion
// controller. A provider answers a request asynchronously and reports either
// the decoded item list or a failure through its callback; whether the
// result is still wanted is decided by the controller, not here.
package provider

import (
	"bytes"
	"encoding/json"

	"go.lsp.dev/protocol"
)

// Response is a decoded `textDocument/completion` result. Servers answer
// with either a bare item array or a list object carrying an isIncomplete
// flag; both decode into the same shape.
type Response struct {
	IsIncomplete bool
	Items        []protocol.CompletionItem
}

func (r *Response) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*r = Response{}
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '[' {
		r.IsIncomplete = false
		return json.Unmarshal(trimmed, &r.Items)
	}

	var list protocol.CompletionList
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	r.IsIncomplete = list.IsIncomplete
	r.Items = list.Items
	return nil
}
