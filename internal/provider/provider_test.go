package provider

import (
	"encoding/json"
	"slices"
	"testing"
	"time"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/tmelen/edkit/internal/completion"
)

func TestResponseUnmarshal(t *testing.T) {
	tests := []struct {
		name         string
		payload      string
		isIncomplete bool
		labels       []string
	}{
		{
			name:    "array",
			payload: `[{"label": "foo"}, {"label": "bar"}]`,
			labels:  []string{"foo", "bar"},
		},
		{
			name:         "list",
			payload:      `{"isIncomplete": true, "items": [{"label": "foo"}]}`,
			isIncomplete: true,
			labels:       []string{"foo"},
		},
		{
			name:    "null",
			payload: `null`,
			labels:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp Response
			if err := json.Unmarshal([]byte(tt.payload), &resp); err != nil {
				t.Fatalf("Expected no error got %v", err)
			}
			if resp.IsIncomplete != tt.isIncomplete {
				t.Errorf("Expected isIncomplete %v got %v", tt.isIncomplete, resp.IsIncomplete)
			}
			got := labelsOf(resp.Items)
			if !slices.Equal(tt.labels, got) {
				t.Errorf("Expected labels %v got %v", tt.labels, got)
			}
		})
	}
}

func TestResponseUnmarshalMalformed(t *testing.T) {
	var resp Response
	if err := json.Unmarshal([]byte(`"nope"`), &resp); err == nil {
		t.Error("Expected an error for a malformed payload")
	}
}

func TestShellComplete(t *testing.T) {
	script := `#!/usr/bin/env bash

greeting="hello"

greet () {
	echo "$greeting"
}
`
	shell := NewShell(ShellConfig{})
	shell.OpenDocument(completion.BufferID(1), uri.File("/workspace/test.sh"), script)

	items := requestItems(t, shell, completion.BufferID(1))

	expectKind := map[string]protocol.CompletionItemKind{
		"greeting": protocol.CompletionItemKindVariable,
		"greet":    protocol.CompletionItemKindFunction,
		"while":    protocol.CompletionItemKindKeyword,
	}
	for label, kind := range expectKind {
		item, ok := findItem(items, label)
		if !ok {
			t.Errorf("Expected item '%s' in %v", label, labelsOf(items))
			continue
		}
		if item.Kind != kind {
			t.Errorf("Expected kind %v for '%s' got %v", kind, label, item.Kind)
		}
	}
}

func TestShellCompleteEnv(t *testing.T) {
	shell := NewShell(ShellConfig{
		IncludeEnv: true,
		Env:        []string{"EDITOR=vi", "malformed"},
	})
	shell.OpenDocument(completion.BufferID(1), uri.File("/workspace/test.sh"), "")

	items := requestItems(t, shell, completion.BufferID(1))

	item, ok := findItem(items, "EDITOR")
	if !ok {
		t.Fatalf("Expected item 'EDITOR' in %v", labelsOf(items))
	}
	if item.Kind != protocol.CompletionItemKindConstant {
		t.Errorf("Expected constant kind got %v", item.Kind)
	}
	if item.Detail != "vi" {
		t.Errorf("Expected detail 'vi' got '%s'", item.Detail)
	}
	if _, ok := findItem(items, "malformed"); ok {
		t.Error("Expected malformed environ entry to be skipped")
	}
}

func TestShellCompleteUnparseable(t *testing.T) {
	shell := NewShell(ShellConfig{})
	shell.OpenDocument(completion.BufferID(1), uri.File("/workspace/test.sh"), "if then fi (((")

	// Keywords are still served when the buffer does not parse.
	items := requestItems(t, shell, completion.BufferID(1))
	if _, ok := findItem(items, "if"); !ok {
		t.Errorf("Expected keyword completions got %v", labelsOf(items))
	}
}

func TestShellCompleteUnknownBuffer(t *testing.T) {
	shell := NewShell(ShellConfig{})

	done := make(chan error, 1)
	shell.RequestCompletion(1, completion.BufferID(42), protocol.Position{}, func(_ []protocol.CompletionItem, err error) {
		done <- err
	})
	select {
	case err := <-done:
		if err == nil {
			t.Error("Expected an error for an unknown buffer")
		}
	case <-time.After(time.Second):
		t.Fatal("callback was not invoked")
	}
}

func TestReplay(t *testing.T) {
	replay := &Replay{Payload: json.RawMessage(`{"isIncomplete": false, "items": [{"label": "replayed"}]}`)}

	items := requestItems(t, replay, completion.BufferID(1))
	if !slices.Equal([]string{"replayed"}, labelsOf(items)) {
		t.Errorf("Expected replayed item got %v", labelsOf(items))
	}
}

func requestItems(t *testing.T, p completion.Provider, buffer completion.BufferID) []protocol.CompletionItem {
	t.Helper()
	done := make(chan []protocol.CompletionItem, 1)
	p.RequestCompletion(1, buffer, protocol.Position{}, func(items []protocol.CompletionItem, err error) {
		if err != nil {
			t.Errorf("Expected no error got %v", err)
		}
		done <- items
	})
	select {
	case items := <-done:
		return items
	case <-time.After(time.Second):
		t.Fatal("callback was not invoked")
		return nil
	}
}

func findItem(items []protocol.CompletionItem, label string) (protocol.CompletionItem, bool) {
	for _, item := range items {
		if item.Label == label {
			return item, true
		}
	}
	return protocol.CompletionItem{}, false
}

func labelsOf(items []protocol.CompletionItem) []string {
	if len(items) == 0 {
		return nil
	}
	labels := make([]string, 0, len(items))
	for _, item := range items {
		labels = append(labels, item.Label)
	}
	return labels
}
