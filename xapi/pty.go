package xapi

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"
)

const maxLine = 1 << 20 // 1MB

// ptyTransport exchanges one JSON-RPC message per line with a bridge process
// attached to a pseudo terminal, typically an ssh session into the codec.
type ptyTransport struct {
	cmd     *exec.Cmd
	ptmx    *os.File
	lines   *bufio.Scanner
	writeMu sync.Mutex
}

// StartPTY spawns name with args on a new pty.
func StartPTY(name string, args ...string) (Transport, error) {
	cmd := exec.Command(name, args...)
	cmd.Env = append(cmd.Environ(), "TERM=dumb")

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, fmt.Errorf("xapi: start %s: %w", name, err)
	}
	// Wide enough that the remote side never wraps a message.
	_ = pty.Setsize(ptmx, &pty.Winsize{Rows: 24, Cols: 32767})

	return newLineTransport(ptmx, cmd), nil
}

func newLineTransport(f *os.File, cmd *exec.Cmd) *ptyTransport {
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 4096), maxLine)
	return &ptyTransport{cmd: cmd, ptmx: f, lines: sc}
}

// ReadMessage returns the next line that looks like a JSON object. Banners,
// shell prompts and other terminal chatter are dropped.
func (t *ptyTransport) ReadMessage() ([]byte, error) {
	for t.lines.Scan() {
		line := bytes.TrimSpace(t.lines.Bytes())
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		msg := make([]byte, len(line))
		copy(msg, line)
		return msg, nil
	}
	if err := t.lines.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (t *ptyTransport) WriteMessage(data []byte) error {
	if bytes.IndexByte(data, '\n') >= 0 {
		return errors.New("xapi: message contains a newline")
	}
	line := make([]byte, 0, len(data)+1)
	line = append(append(line, data...), '\n')

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_, err := t.ptmx.Write(line)
	return err
}

func (t *ptyTransport) Close() error {
	if t.cmd != nil && t.cmd.Process != nil {
		t.cmd.Process.Kill()
		defer t.cmd.Wait() //nolint:errcheck
	}
	return t.ptmx.Close()
}
