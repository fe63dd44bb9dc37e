package terminal

import "sync"

// ProgressBar redraws the upload progress on a single line.
type ProgressBar struct {
	console *Console

	mu    sync.Mutex
	drawn bool
}

func NewProgressBar(console *Console) *ProgressBar {
	return &ProgressBar{console: console}
}

// Update is the simulator callback. Zero is the post-upload reset and is not drawn.
func (p *ProgressBar) Update(percent int) {
	if percent <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drawn = true
	p.console.Printf("\r%s", ProgressLine(percent))
}

// Done ends the progress line if one was drawn.
func (p *ProgressBar) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.drawn {
		p.console.Printf("\n")
		p.drawn = false
	}
}
