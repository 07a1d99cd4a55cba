package input

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
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

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    scheduler.Edge
		wantErr bool
	}{
		{name: "valid", line: "Step C must be finished before step A can begin.", want: scheduler.Edge{Before: "C", After: "A"}},
		{name: "surrounding whitespace", line: "  Step X must be finished before step Y can begin.\r", want: scheduler.Edge{Before: "X", After: "Y"}},
		{name: "lowercase step", line: "Step c must be finished before step A can begin.", wantErr: true},
		{name: "missing period", line: "Step C must be finished before step A can begin", wantErr: true},
		{name: "two letter id", line: "Step CC must be finished before step A can begin.", wantErr: true},
		{name: "trailing text", line: "Step C must be finished before step A can begin. Soon.", wantErr: true},
		{name: "empty", line: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLine(tt.line)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLine() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrMalformedEdge) {
					t.Errorf("error = %v, want ErrMalformedEdge", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseLine() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	edges, err := ParseString("\n" + example + "\n\n")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(edges) != 7 {
		t.Fatalf("got %d edges, want 7", len(edges))
	}
	if edges[0] != (scheduler.Edge{Before: "C", After: "A"}) || edges[6] != (scheduler.Edge{Before: "F", After: "E"}) {
		t.Errorf("unexpected edges %v", edges)
	}
}

func TestParseReportsLine(t *testing.T) {
	src := example + "Step Q needs step R.\n"
	_, err := ParseString(src)

	var le *LineError
	if !errors.As(err, &le) {
		t.Fatalf("error = %v, want *LineError", err)
	}
	if le.Line != 8 || le.Text != "Step Q needs step R." {
		t.Errorf("LineError = %+v", le)
	}
	if !errors.Is(err, ErrMalformedEdge) {
		t.Error("LineError should unwrap to ErrMalformedEdge")
	}
	if !strings.Contains(err.Error(), "line 8") {
		t.Errorf("error text %q lacks line number", err.Error())
	}
}

func TestReadFileAndLoadGraph(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.txt")
	if err := os.WriteFile(path, []byte(example), 0644); err != nil {
		t.Fatal(err)
	}

	d, err := LoadGraph(path, scheduler.Uppercase)
	if err != nil {
		t.Fatalf("LoadGraph() error = %v", err)
	}
	if d.Len() != 6 {
		t.Errorf("Len() = %d, want 6", d.Len())
	}
	if got := d.Roots(); !reflect.DeepEqual(got, []string{"C"}) {
		t.Errorf("Roots() = %v", got)
	}

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}

	// F is outside a narrower alphabet, so the second line no longer parses.
	_, err = LoadGraph(path, "ABC")
	var le *LineError
	if !errors.As(err, &le) || le.Line != 2 {
		t.Errorf("LoadGraph with narrow alphabet error = %v, want *LineError on line 2", err)
	}
}

func TestParserCustomAlphabet(t *testing.T) {
	tests := []struct {
		name     string
		alphabet scheduler.Alphabet
		line     string
		want     scheduler.Edge
		wantErr  bool
	}{
		{name: "lowercase", alphabet: "abc", line: "Step a must be finished before step c can begin.", want: scheduler.Edge{Before: "a", After: "c"}},
		{name: "digits", alphabet: "0123", line: "Step 3 must be finished before step 0 can begin.", want: scheduler.Edge{Before: "3", After: "0"}},
		{name: "punctuation", alphabet: "-]^\\", line: "Step ] must be finished before step - can begin.", want: scheduler.Edge{Before: "]", After: "-"}},
		{name: "uppercase outside alphabet", alphabet: "abc", line: "Step A must be finished before step c can begin.", wantErr: true},
		{name: "range is not implied", alphabet: "ac", line: "Step b must be finished before step c can begin.", wantErr: true},
		{name: "empty alphabet", alphabet: "", line: "Step A must be finished before step B can begin.", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewParser(tt.alphabet).ParseLine(tt.line)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLine() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseLine() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoadGraphCustomAlphabet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.txt")
	src := "Step x must be finished before step y can begin.\nStep y must be finished before step z can begin.\n"
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	d, err := LoadGraph(path, "xyz")
	if err != nil {
		t.Fatalf("LoadGraph() error = %v", err)
	}
	if got := d.Roots(); !reflect.DeepEqual(got, []string{"x"}) {
		t.Errorf("Roots() = %v, want [x]", got)
	}
}
