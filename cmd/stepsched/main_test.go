package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aristath/stepsched/internal/scheduler"
)

const example = `Step C must be finished before step A can begin.
Step C must be finished before step F can begin.
Step A must be finished before step B can begin.
Step A must be finished before step D can begin.
Step B must be finished before step E can begin.
Step D must be finished before step E can begin.
Step F must be finished before step E can begin.
`

// writeInput creates an instruction file and an empty config dir in a temp dir.
func writeInput(t *testing.T, text string) (inputPath, configPath string) {
	t.Helper()
	dir := t.TempDir()
	inputPath = filepath.Join(dir, "input.txt")
	if err := os.WriteFile(inputPath, []byte(text), 0644); err != nil {
		t.Fatal(err)
	}
	return inputPath, filepath.Join(dir, "config.json")
}

// execute runs the CLI with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestOrderCommand(t *testing.T) {
	in, cfg := writeInput(t, example)
	out, err := execute(t, "order", "--config", cfg, "--input", in)
	if err != nil {
		t.Fatalf("order failed: %v", err)
	}
	if strings.TrimSpace(out) != "CABDFE" {
		t.Errorf("order output = %q, want CABDFE", out)
	}
}

func TestTimeCommand(t *testing.T) {
	in, cfg := writeInput(t, example)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "config defaults", args: nil, want: "253"},
		{name: "example scale", args: []string{"--workers", "2", "--base-cost", "0"}, want: "15"},
		{name: "single worker", args: []string{"-w", "1", "--base-cost", "0"}, want: "21"},
		{name: "traced", args: []string{"-w", "2", "--base-cost", "0", "--trace"}, want: "15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"time", "--config", cfg, "--input", in}, tt.args...)
			out, err := execute(t, args...)
			if err != nil {
				t.Fatalf("time failed: %v", err)
			}
			if strings.TrimSpace(out) != tt.want {
				t.Errorf("time output = %q, want %s", out, tt.want)
			}
		})
	}
}

func TestSolveIsDefault(t *testing.T) {
	in, cfg := writeInput(t, example)
	out, err := execute(t, "--config", cfg, "--input", in, "-w", "2", "--base-cost", "0")
	if err != nil {
		t.Fatalf("root failed: %v", err)
	}
	for _, want := range []string{"CABDFE", "15", "C -> F -> E", "w0 CCCABBDDDDEEEEE"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSweepCommand(t *testing.T) {
	in, cfg := writeInput(t, example)
	out, err := execute(t, "sweep", "--config", cfg, "--input", in, "--base-cost", "0", "--max", "3")
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want header + 3:\n%s", len(lines), out)
	}
	for i, want := range []string{"21", "15", "14"} {
		if fields := strings.Fields(lines[i+1]); len(fields) < 2 || fields[1] != want {
			t.Errorf("line %d = %q, want makespan %s", i+1, lines[i+1], want)
		}
	}
}

func TestCriticalCommand(t *testing.T) {
	in, cfg := writeInput(t, example)
	out, err := execute(t, "critical", "--config", cfg, "--input", in)
	if err != nil {
		t.Fatalf("critical failed: %v", err)
	}
	if !strings.Contains(out, "C -> A -> D -> E") || !strings.Contains(out, "(253)") {
		t.Errorf("critical output:\n%s", out)
	}
}

func TestRunsCommand(t *testing.T) {
	in, cfg := writeInput(t, example)
	db := filepath.Join(t.TempDir(), "runs.db")

	out, err := execute(t, "solve", "--config", cfg, "--input", in, "--db", db)
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	idx := strings.Index(out, "recorded run ")
	if idx < 0 {
		t.Fatalf("solve did not record a run:\n%s", out)
	}
	id := strings.TrimSpace(out[idx+len("recorded run "):])

	out, err = execute(t, "runs", "--config", cfg, "--db", db)
	if err != nil {
		t.Fatalf("runs failed: %v", err)
	}
	if !strings.Contains(out, id) || !strings.Contains(out, "makespan=253") {
		t.Errorf("runs output:\n%s", out)
	}

	out, err = execute(t, "runs", id, "--config", cfg, "--db", db)
	if err != nil {
		t.Fatalf("runs <id> failed: %v", err)
	}
	if !strings.Contains(out, "order=CABDFE") {
		t.Errorf("runs <id> output:\n%s", out)
	}

	if _, err := execute(t, "runs", "--config", cfg); err == nil {
		t.Error("runs without a database should fail")
	}
}

func TestCommandErrors(t *testing.T) {
	in, cfg := writeInput(t, example)

	if _, err := execute(t, "time", "--config", cfg, "--input", in, "--workers", "0"); !errors.Is(err, scheduler.ErrInvalidConfiguration) {
		t.Errorf("zero workers error = %v, want ErrInvalidConfiguration", err)
	}

	cyc, _ := writeInput(t, example+"Step E must be finished before step C can begin.\n")
	if _, err := execute(t, "order", "--config", cfg, "--input", cyc); !errors.Is(err, scheduler.ErrCyclicDependency) {
		t.Errorf("cycle error = %v, want ErrCyclicDependency", err)
	}

	if _, err := execute(t, "order", "--config", cfg, "--input", filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("missing input should fail")
	}
}
