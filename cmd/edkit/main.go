package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/tmelen/edkit/internal/completion"
	"github.com/tmelen/edkit/internal/provider"
	"github.com/tmelen/edkit/internal/snippet"
)

func main() {
	logLevel := pflag.String("log-level", "info", "log level: debug, info, warn, error")
	snippetTemplate := pflag.String("snippet", "", "parse a snippet template and dump its structure")
	input := pflag.String("input", "", "filter input typed after the trigger position")
	line := pflag.Uint32("line", 0, "trigger line")
	character := pflag.Uint32("character", 0, "trigger character")
	includeEnv := pflag.Bool("env", false, "include environment variables as candidates")
	replayFile := pflag.String("replay", "", "replay a recorded completion response instead of completing a script")
	timeout := pflag.Duration("timeout", 5*time.Second, "how long to wait for the completion response")
	pflag.Parse()

	initLogging(*logLevel)

	if *snippetTemplate != "" {
		dumpSnippet(*snippetTemplate)
		return
	}

	prov, err := buildProvider(*replayFile, *includeEnv, pflag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}

	listChanged := make(chan struct{}, 1)
	ctl := completion.NewController(prov, completion.Config{
		OnListChanged: func() {
			select {
			case listChanged <- struct{}{}:
			default:
			}
		},
	})
	defer ctl.Stop()

	ctl.UpdateInput(*input)
	ctl.Trigger(completion.BufferID(1), protocol.Position{Line: *line, Character: *character})

	select {
	case <-listChanged:
	case <-time.After(*timeout):
		fmt.Fprintln(os.Stderr, "ERROR: no completion response")
		os.Exit(1)
	}

	snap := ctl.Snapshot()
	for _, item := range snap.Items {
		fmt.Printf("%8d  %-12s %s", item.Score, kindName(item.Item.Kind), item.Item.Label)
		if len(item.Indices) > 0 {
			fmt.Printf("  %v", item.Indices)
		}
		fmt.Println()
	}
}

func buildProvider(replayFile string, includeEnv bool, args []string) (completion.Provider, error) {
	if replayFile != "" {
		payload, err := os.ReadFile(replayFile)
		if err != nil {
			return nil, err
		}
		return &provider.Replay{Payload: json.RawMessage(payload)}, nil
	}

	var script []byte
	var path string
	var err error
	if len(args) == 0 {
		path = "stdin.sh"
		script, err = io.ReadAll(os.Stdin)
	} else {
		path = args[0]
		script, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = "/" + path
	}
	shell := provider.NewShell(provider.ShellConfig{
		IncludeEnv: includeEnv,
		Env:        os.Environ(),
	})
	shell.OpenDocument(completion.BufferID(1), uri.File(abs), string(script))
	return shell, nil
}

func dumpSnippet(template string) {
	parsed := snippet.Parse(template)
	fmt.Println("template:", parsed.String())
	fmt.Printf("text:     %q\n", parsed.Text())
	for _, tab := range parsed.Tabs(0) {
		fmt.Printf("tab %d: [%d, %d]\n", tab.Num, tab.Start, tab.End)
	}
}

func kindName(kind protocol.CompletionItemKind) string {
	switch kind {
	case protocol.CompletionItemKindVariable:
		return "variable"
	case protocol.CompletionItemKindFunction:
		return "function"
	case protocol.CompletionItemKindKeyword:
		return "keyword"
	case protocol.CompletionItemKindConstant:
		return "constant"
	default:
		return "text"
	}
}

func initLogging(levelStr string) {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}
