package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/chzyer/readline"

	"github.com/njchilds90/notesolve"
)

// lineReader is the part of *readline.Instance the loop needs.
type lineReader interface {
	Readline() (string, error)
}

type repl struct {
	eng *notesolve.Engine
	out io.Writer
}

func newREPL(eng *notesolve.Engine, out io.Writer) *repl {
	return &repl{eng: eng, out: out}
}

var errQuit = errors.New("quit")

func (r *repl) run(in lineReader) error {
	fmt.Fprintln(r.out, "Type a line such as \"F = m * a\". :help lists commands.")
	for {
		line, err := in.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ":") {
			if err := r.command(line); err != nil {
				if err == errQuit {
					return nil
				}
				fmt.Fprintf(r.out, "error: %v\n", err)
			}
			continue
		}
		r.printResult(r.eng.Solve(line))
	}
}

func (r *repl) command(line string) error {
	parts := strings.Fields(line)
	switch parts[0] {
	case ":quit", ":q", ":exit":
		return errQuit
	case ":help", ":h":
		r.printHelp()
	case ":vars":
		vars := r.eng.GetAllVariables()
		for _, n := range sortedKeys(vars) {
			fmt.Fprintf(r.out, "  %s = %s\n", n, vars[n])
		}
	case ":formulas":
		formulas := r.eng.GetAllFormulas()
		for _, n := range sortedKeys(formulas) {
			fmt.Fprintf(r.out, "  %s = %s\n", n, formulas[n])
		}
	case ":reset":
		r.eng.Reset()
		fmt.Fprintln(r.out, "  cleared")
	case ":scan":
		if len(parts) != 2 {
			return fmt.Errorf("usage: :scan <file>")
		}
		scan, err := scanFile(parts[1])
		if err != nil {
			return err
		}
		for _, eq := range scan.Equations {
			fmt.Fprintf(r.out, "  %4d %-8s %s\n", eq.Line, eq.Kind, eq.Text)
		}
	case ":context":
		if len(parts) < 3 {
			return fmt.Errorf("usage: :context <file> <line>")
		}
		scan, err := scanFile(parts[1])
		if err != nil {
			return err
		}
		rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(strings.TrimPrefix(line, parts[0])), parts[1]))
		res := r.eng.SolveWithContext(rest, scan.Context())
		r.printResult(res.SolveResult)
		for _, u := range res.UsedContext {
			fmt.Fprintf(r.out, "  used %s %s (%s)\n", u.Kind, u.Name, u.Source)
		}
		for _, s := range res.Suggestions {
			fmt.Fprintf(r.out, "  hint: %s\n", s.Message)
		}
		if res.Confidence != nil {
			fmt.Fprintf(r.out, "  confidence: %d (%s)\n", res.Confidence.Score, res.Confidence.Level)
		}
	default:
		return fmt.Errorf("unknown command %s", parts[0])
	}
	return nil
}

func scanFile(path string) (notesolve.ScanResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return notesolve.ScanResult{}, err
	}
	return notesolve.ScanForFormulas(string(data)), nil
}

func (r *repl) printResult(res notesolve.SolveResult) {
	if !res.Success {
		fmt.Fprintf(r.out, "  ✗ %s\n", res.Error)
	} else {
		var b strings.Builder
		b.WriteString("  = ")
		if res.Variable != "" {
			b.WriteString(res.Variable + " = ")
		}
		if res.Result != nil {
			b.WriteString(res.Result.String())
		}
		if res.Verified != nil {
			fmt.Fprintf(&b, " (verified: %t)", *res.Verified)
		}
		if len(res.MissingVariables) > 0 {
			fmt.Fprintf(&b, " (missing: %s)", strings.Join(res.MissingVariables, ", "))
		}
		fmt.Fprintf(&b, " [%s]", res.Type)
		fmt.Fprintln(r.out, b.String())
	}
	for i, s := range res.Steps {
		fmt.Fprintf(r.out, "    %d. %s", i+1, s.Action)
		if s.Variable != "" {
			fmt.Fprintf(r.out, " %s", s.Variable)
		}
		if s.Expression != "" {
			fmt.Fprintf(r.out, " %s", s.Expression)
		}
		if s.Value != nil {
			fmt.Fprintf(r.out, " -> %s", s.Value)
		}
		if s.Detail != "" {
			fmt.Fprintf(r.out, " (%s)", s.Detail)
		}
		fmt.Fprintln(r.out)
	}
}

func (r *repl) printHelp() {
	fmt.Fprintln(r.out, `Lines:
  x = 5              store a value
  F = m * a          store a formula (evaluated once m and a are known)
  F = m * a          with F and m known: solve for a
  integrate(x^2, x, 0, 3)
  derivative(x^3, x)
Commands:
  :vars :formulas :reset
  :scan <file>             list variables and formulas found in a file
  :context <file> <line>   solve a line using a file's definitions as hints
  :help :quit`)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
