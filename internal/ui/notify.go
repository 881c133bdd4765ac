package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// ConsoleNotifier prints toast-style messages, one per line. The zero
// value writes to stderr.
type ConsoleNotifier struct {
	W  io.Writer
	mu sync.Mutex
}

func (n *ConsoleNotifier) writer() io.Writer {
	if n.W == nil {
		return os.Stderr
	}
	return n.W
}

// Success prints a success message.
func (n *ConsoleNotifier) Success(title, message string) {
	n.print("✓", title, message)
}

// Error prints an error message.
func (n *ConsoleNotifier) Error(title, message string) {
	n.print("✗", title, message)
}

func (n *ConsoleNotifier) print(mark, title, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if message == "" {
		fmt.Fprintf(n.writer(), "%s %s\n", mark, title)
		return
	}
	fmt.Fprintf(n.writer(), "%s %s: %s\n", mark, title, message)
}

// PrintSuccess prints a formatted success message to w.
func PrintSuccess(w io.Writer, msg string, args ...interface{}) {
	fmt.Fprintf(w, msg+"\n", args...)
}
