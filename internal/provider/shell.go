package provider

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"mvdan.cc/sh/v3/syntax"

	"github.com/tmelen/edkit/internal/completion"
)

var shellKeywords = []string{
	"if", "then", "else", "elif", "fi",
	"case", "esac", "for", "while", "until",
	"do", "done", "function", "select", "in", "time",
}

type Document struct {
	Text string
}

type ShellConfig struct {
	// IncludeEnv adds environment variables to the candidate set.
	IncludeEnv bool
	// Env is the environment to draw from, as "KEY=VALUE" pairs
	// (os.Environ form).
	Env []string
}

// Shell serves completion candidates for shell-script buffers by walking the
// script's syntax tree: variable assignments, function declarations and
// keywords, optionally environment variables.
type Shell struct {
	config    ShellConfig
	mu        sync.RWMutex
	documents map[uri.URI]Document
	buffers   map[completion.BufferID]uri.URI
	env       map[string]string
}

func NewShell(config ShellConfig) *Shell {
	return &Shell{
		config:    config,
		documents: map[uri.URI]Document{},
		buffers:   map[completion.BufferID]uri.URI{},
		env:       parseEnv(config.Env),
	}
}

// OpenDocument registers a buffer's current text under its document URI.
func (p *Shell) OpenDocument(buffer completion.BufferID, docURI uri.URI, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.documents[docURI] = Document{Text: text}
	p.buffers[buffer] = docURI
}

// RequestCompletion answers asynchronously; the callback runs on its own
// goroutine exactly once.
func (p *Shell) RequestCompletion(requestID int, buffer completion.BufferID, pos protocol.Position, cb func(items []protocol.CompletionItem, err error)) {
	go func() {
		items, err := p.complete(buffer)
		cb(items, err)
	}()
}

func (p *Shell) complete(buffer completion.BufferID) ([]protocol.CompletionItem, error) {
	p.mu.RLock()
	docURI, ok := p.buffers[buffer]
	document := p.documents[docURI]
	p.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no document for buffer %d", buffer)
	}

	items := []protocol.CompletionItem{}

	parser := syntax.NewParser()
	file, err := parser.Parse(strings.NewReader(document.Text), docURI.Filename())
	if err != nil {
		// An unparseable buffer still gets keyword completions.
		slog.Debug("cannot parse document", "uri", docURI, "err", err)
	} else {
		items = append(items, completeVariables(file)...)
		items = append(items, completeFunctions(file)...)
	}

	items = append(items, completeKeywords()...)

	if p.config.IncludeEnv {
		for name, value := range p.env {
			items = append(items, protocol.CompletionItem{
				Label:  name,
				Kind:   protocol.CompletionItemKindConstant,
				Detail: value,
			})
		}
	}

	return items, nil
}

// Completion for variables assigned in the document
func completeVariables(file *syntax.File) []protocol.CompletionItem {
	var result []protocol.CompletionItem
	syntax.Walk(file, func(node syntax.Node) bool {
		assign, ok := node.(*syntax.Assign)
		if !ok {
			return true
		}
		if assign.Name != nil {
			result = append(result, protocol.CompletionItem{
				Label: assign.Name.Value,
				Kind:  protocol.CompletionItemKindVariable,
			})
		}
		return true
	})
	return result
}

// Completion for function names
func completeFunctions(file *syntax.File) []protocol.CompletionItem {
	var result []protocol.CompletionItem
	syntax.Walk(file, func(node syntax.Node) bool {
		funcDecl, ok := node.(*syntax.FuncDecl)
		if !ok {
			return true
		}
		if funcDecl.Name != nil {
			result = append(result, protocol.CompletionItem{
				Label: funcDecl.Name.Value,
				Kind:  protocol.CompletionItemKindFunction,
			})
		}
		return true
	})
	return result
}

func completeKeywords() []protocol.CompletionItem {
	result := make([]protocol.CompletionItem, 0, len(shellKeywords))
	for _, keyword := range shellKeywords {
		result = append(result, protocol.CompletionItem{
			Label: keyword,
			Kind:  protocol.CompletionItemKindKeyword,
		})
	}
	return result
}

func parseEnv(environ []string) map[string]string {
	env := map[string]string{}
	for _, entry := range environ {
		name, value, found := strings.Cut(entry, "=")
		if found {
			env[name] = value
		}
	}
	return env
}
