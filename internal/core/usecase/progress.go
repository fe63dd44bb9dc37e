package usecase

import (
	"sync"
	"time"
)

// ProgressSimulator is a timer-driven bounded counter. It approximates
// upload progress and is not tied to the bytes actually sent.
type ProgressSimulator struct {
	interval time.Duration
	step     int
	ceiling  int
	onChange func(int)

	mu      sync.Mutex
	value   int
	running bool
	ticker  *time.Ticker
	done    chan struct{}
	wg      sync.WaitGroup
}

func NewProgressSimulator(interval time.Duration, step, ceiling int, onChange func(int)) *ProgressSimulator {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	if step <= 0 {
		step = 10
	}
	if ceiling <= 0 || ceiling >= 100 {
		ceiling = 90
	}
	return &ProgressSimulator{
		interval: interval,
		step:     step,
		ceiling:  ceiling,
		onChange: onChange,
	}
}

// Start begins ticking. Calling Start while running is a no-op.
func (p *ProgressSimulator) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}

	p.running = true
	p.ticker = time.NewTicker(p.interval)
	p.done = make(chan struct{})
	p.wg.Add(1)
	go p.loop(p.ticker.C, p.done)
}

func (p *ProgressSimulator) loop(ticks <-chan time.Time, done <-chan struct{}) {
	defer p.wg.Done()
	for {
		select {
		case <-done:
			return
		case <-ticks:
			p.mu.Lock()
			if !p.running {
				p.mu.Unlock()
				return
			}
			next := p.value + p.step
			if next > p.ceiling {
				next = p.ceiling
			}
			changed := next != p.value
			p.value = next
			p.mu.Unlock()

			if changed {
				p.emit(next)
			}
		}
	}
}

// Stop halts the ticker and waits for the tick goroutine to exit.
func (p *ProgressSimulator) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.ticker.Stop()
	close(p.done)
	p.mu.Unlock()

	p.wg.Wait()
}

// Complete stops the simulator and snaps the value to 100.
func (p *ProgressSimulator) Complete() {
	p.Stop()
	p.set(100)
}

func (p *ProgressSimulator) Reset() {
	p.set(0)
}

func (p *ProgressSimulator) Value() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

func (p *ProgressSimulator) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *ProgressSimulator) set(value int) {
	p.mu.Lock()
	changed := p.value != value
	p.value = value
	p.mu.Unlock()

	if changed {
		p.emit(value)
	}
}

func (p *ProgressSimulator) emit(value int) {
	if p.onChange != nil {
		p.onChange(value)
	}
}
