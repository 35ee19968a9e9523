// Package input contains the two ways qcli reads a line of query text:
// directly off a stream, or interactively through readline.
package input

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// DirectCommandReader reads lines from any generic input stream. It can
// be used with any io.Reader but does not sanitize control or escape
// sequences out of its input.
//
// DirectCommandReader should not be constructed directly; use
// [NewDirectReader].
type DirectCommandReader struct {
	r *bufio.Reader
}

// InteractiveCommandReader reads lines from stdin via a Go
// implementation of GNU Readline, keeping input clear of editing escape
// sequences and enabling command history. It should generally only be
// used when directly connected to a TTY.
//
// InteractiveCommandReader should not be constructed directly; use
// [NewInteractiveReader].
type InteractiveCommandReader struct {
	rl *readline.Instance
}

// NewDirectReader creates a DirectCommandReader over r.
func NewDirectReader(r io.Reader) *DirectCommandReader {
	return &DirectCommandReader{r: bufio.NewReader(r)}
}

// NewInteractiveReader creates an InteractiveCommandReader with
// readline initialized. The returned reader must have Close called on
// it before disposal to tear down readline's terminal state.
func NewInteractiveReader() (*InteractiveCommandReader, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt: "? ",
	})
	if err != nil {
		return nil, fmt.Errorf("create readline config: %w", err)
	}

	return &InteractiveCommandReader{rl: rl}, nil
}

// Close is a no-op; it exists so DirectCommandReader satisfies the same
// interface as InteractiveCommandReader.
func (dcr *DirectCommandReader) Close() error {
	return nil
}

// Close tears down readline's terminal state.
func (icr *InteractiveCommandReader) Close() error {
	return icr.rl.Close()
}

// ReadCommand reads the next non-blank line from the stream. If at end
// of input, it returns an empty string and io.EOF.
func (dcr *DirectCommandReader) ReadCommand() (string, error) {
	var line string
	var err error

	for line == "" {
		line, err = dcr.r.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return "", err
		}
		line = strings.TrimSpace(line)
	}

	return line, nil
}

// ReadCommand reads the next non-blank line from the interactive
// prompt. If at end of input, it returns an empty string and io.EOF.
func (icr *InteractiveCommandReader) ReadCommand() (string, error) {
	var line string
	var err error

	for line == "" {
		line, err = icr.rl.Readline()
		if err != nil && (err != io.EOF || line == "") {
			return "", err
		}
		line = strings.TrimSpace(line)
	}

	return line, nil
}
