// Package input turns puzzle instructions of the form
//
//	Step C must be finished before step A can begin.
//
// into precedence pairs for the scheduler.
package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/aristath/stepsched/internal/scheduler"
)

var ErrMalformedEdge = errors.New("malformed instruction")

var defaultParser = NewParser(scheduler.Uppercase)

// Parser reads instructions whose step names come from one alphabet.
type Parser struct {
	re *regexp.Regexp
}

// NewParser creates a parser accepting exactly the symbols of alphabet.
func NewParser(alphabet scheduler.Alphabet) *Parser {
	class := symbolClass(alphabet)
	return &Parser{re: regexp.MustCompile(
		`^Step (?P<before>` + class + `) must be finished before step (?P<after>` + class + `) can begin\.$`,
	)}
}

// symbolClass builds a character class matching one symbol of alphabet.
func symbolClass(alphabet scheduler.Alphabet) string {
	if alphabet == "" {
		return `[^\x00-\x{10FFFF}]`
	}
	var b strings.Builder
	b.WriteByte('[')
	for i := 0; i < len(alphabet); i++ {
		c := alphabet[i]
		if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, `\x%02x`, c)
		}
	}
	b.WriteByte(']')
	return b.String()
}

// LineError reports which input line could not be parsed.
type LineError struct {
	Line int
	Text string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, ErrMalformedEdge, e.Text)
}

func (e *LineError) Unwrap() error { return ErrMalformedEdge }

// ParseLine extracts the precedence pair from a single uppercase instruction.
func ParseLine(line string) (scheduler.Edge, error) {
	return defaultParser.ParseLine(line)
}

// Parse reads uppercase instructions, see Parser.Parse.
func Parse(r io.Reader) ([]scheduler.Edge, error) {
	return defaultParser.Parse(r)
}

// ParseString is Parse over an in-memory string.
func ParseString(s string) ([]scheduler.Edge, error) {
	return defaultParser.ParseString(s)
}

// ReadFile parses the uppercase instruction file at path.
func ReadFile(path string) ([]scheduler.Edge, error) {
	return defaultParser.ReadFile(path)
}

// ParseLine extracts the precedence pair from a single instruction.
func (p *Parser) ParseLine(line string) (scheduler.Edge, error) {
	m := p.re.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return scheduler.Edge{}, fmt.Errorf("%w: %q", ErrMalformedEdge, line)
	}
	return scheduler.Edge{
		Before: m[p.re.SubexpIndex("before")],
		After:  m[p.re.SubexpIndex("after")],
	}, nil
}

// Parse reads one instruction per line. Blank lines are skipped; the first
// malformed line aborts with a *LineError.
func (p *Parser) Parse(r io.Reader) ([]scheduler.Edge, error) {
	var edges []scheduler.Edge

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		edge, err := p.ParseLine(text)
		if err != nil {
			return nil, &LineError{Line: lineNo, Text: text}
		}
		edges = append(edges, edge)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading instructions: %w", err)
	}
	return edges, nil
}

// ParseString is Parse over an in-memory string.
func (p *Parser) ParseString(s string) ([]scheduler.Edge, error) {
	return p.Parse(strings.NewReader(s))
}

// ReadFile parses the instruction file at path.
func (p *Parser) ReadFile(path string) ([]scheduler.Edge, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	edges, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return edges, nil
}

// LoadGraph reads path and builds a graph over alphabet. Step names outside
// alphabet make the line malformed.
func LoadGraph(path string, alphabet scheduler.Alphabet) (*scheduler.DAG, error) {
	edges, err := NewParser(alphabet).ReadFile(path)
	if err != nil {
		return nil, err
	}
	d := scheduler.NewDAG(alphabet)
	if err := d.AddEdges(edges); err != nil {
		return nil, err
	}
	return d, nil
}
