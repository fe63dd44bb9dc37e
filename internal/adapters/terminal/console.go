package terminal

import (
	"fmt"
	"io"
	"sync"
)

// Console serializes writes from the prompt loop, background requests and toasts.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w.Write(p)
}

func (c *Console) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c, format, args...)
}

func (c *Console) Println(args ...any) {
	_, _ = fmt.Fprintln(c, args...)
}
