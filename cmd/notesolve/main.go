// cmd/notesolve/main.go: interactive notesolve session
//
// Every line typed is solved against one Engine, the way a note editor
// feeds it lines of a document.
//
// Usage:
//
//	go run ./cmd/notesolve -config notesolve.yaml -history ~/.notesolve_history
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/chzyer/readline"

	"github.com/njchilds90/notesolve"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	history := flag.String("history", "", "Readline history file")
	flag.Parse()

	cfg := notesolve.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = notesolve.LoadConfig(*configPath); err != nil {
			log.Fatal(err)
		}
	}
	level, err := cfg.Level()
	if err != nil {
		log.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "notesolve> ",
		HistoryFile:     *history,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		log.Fatal(err)
	}
	defer rl.Close()

	r := newREPL(notesolve.New(cfg, notesolve.WithLogger(logger)), rl.Stdout())
	if err := r.run(rl); err != nil {
		log.Fatal(err)
	}
}
