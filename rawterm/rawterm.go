// Package rawterm puts the controlling terminal into raw mode so that the
// interactive simulator can react to single key presses, such as the key that
// cancels the running operation.
//
// Newlines are always reported as LF, whatever the terminal sends when the
// enter key is pressed.
package rawterm

import (
	"context"
	"io"
	"os"

	"golang.org/x/crypto/ssh/terminal"
)

// Terminal is a terminal in raw mode.
type Terminal struct {
	fd    int
	state *terminal.State
}

// Open switches stdin to raw mode. It returns a nil terminal and no error when
// stdin is not a terminal, in which case there is nothing to restore.
func Open() (*Terminal, error) {
	fd := int(os.Stdin.Fd())
	if !terminal.IsTerminal(fd) {
		return nil, nil
	}
	state, err := terminal.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return &Terminal{fd: fd, state: state}, nil
}

// Restore puts the terminal back into the mode it had before Open. It is safe
// to call on a nil terminal.
func (t *Terminal) Restore() error {
	if t == nil {
		return nil
	}
	return terminal.Restore(t.fd, t.state)
}

// Keys reads r one byte at a time and delivers the bytes on the returned
// channel until ctx is done or r fails. CR is translated to LF.
//
// A Read in progress cannot be interrupted: once ctx is done the reading
// goroutine exits, and closes the channel, only after r returns the next byte
// or an error. The byte is dropped. Callers that need the goroutine gone must
// close r.
func Keys(ctx context.Context, r io.Reader) <-chan byte {
	keys := make(chan byte)
	go func() {
		defer close(keys)
		var b [1]byte
		for {
			if _, err := r.Read(b[:]); err != nil {
				return
			}
			if ctx.Err() != nil {
				return
			}
			ch := b[0]
			if ch == '\r' {
				ch = '\n'
			}
			select {
			case keys <- ch:
			case <-ctx.Done():
				return
			}
		}
	}()
	return keys
}
