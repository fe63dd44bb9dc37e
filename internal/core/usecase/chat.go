package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/docqa-client/internal/core/domain"
	"github.com/kirillkom/docqa-client/internal/core/ports"
)

// ChatFlow is the question form and its transcript. The transcript lives as
// long as the flow and is never written back to the shared state.
type ChatFlow struct {
	asker    ports.QuestionAsker
	state    ports.DocumentStateReader
	notifier ports.Notifier
	observer ports.FlowObserver

	lifetime context.Context
	cancel   context.CancelFunc

	mu         sync.Mutex
	input      string
	transcript []domain.Message
	loading    bool
	closed     bool
}

func NewChatFlow(
	asker ports.QuestionAsker,
	state ports.DocumentStateReader,
	notifier ports.Notifier,
	observer ports.FlowObserver,
) *ChatFlow {
	lifetime, cancel := context.WithCancel(context.Background())
	return &ChatFlow{
		asker:    asker,
		state:    state,
		notifier: notifier,
		observer: observer,
		lifetime: lifetime,
		cancel:   cancel,
	}
}

func (f *ChatFlow) SetInput(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input = text
}

func (f *ChatFlow) Input() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.input
}

func (f *ChatFlow) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading
}

func (f *ChatFlow) Transcript() []domain.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Message, len(f.transcript))
	copy(out, f.transcript)
	return out
}

// Submit sends the current input as a question about the current document.
// Blank input is ignored without error. The user message is appended before
// the request is issued and stays even if the request fails.
func (f *ChatFlow) Submit(ctx context.Context) error {
	wait, err := f.begin("", true)
	if wait == nil {
		return err
	}
	return wait(ctx)
}

// Send is Submit split in two for callers that must not block: the guards,
// the optimistic append and the loading flag happen before Send returns, and
// the returned wait issues the request and settles it. wait is nil when
// nothing was started.
func (f *ChatFlow) Send(question string) (wait func(context.Context) error, err error) {
	return f.begin(question, false)
}

func (f *ChatFlow) begin(question string, fromInput bool) (func(context.Context) error, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, domain.WrapError(domain.ErrFlowClosed, "ask", errors.New("chat is closed"))
	}
	if fromInput {
		question = f.input
	}
	if strings.TrimSpace(question) == "" {
		f.mu.Unlock()
		return nil, nil
	}
	if f.loading {
		f.mu.Unlock()
		return nil, domain.WrapError(domain.ErrBusy, "ask", errors.New("an answer is still loading"))
	}

	doc, ok := f.state.Get()
	if !ok {
		f.mu.Unlock()
		f.notify(domain.Notification{
			Title:       "No document selected",
			Description: "Please upload a document first",
			Variant:     domain.VariantDestructive,
		})
		err := domain.WrapError(domain.ErrNoDocumentSelected, "ask", errors.New("upload a document before asking"))
		f.observe(err, 0)
		return nil, err
	}

	f.transcript = append(f.transcript, domain.Message{Role: domain.RoleUser, Content: question})
	if fromInput {
		f.input = ""
	}
	f.loading = true
	f.mu.Unlock()

	return func(ctx context.Context) error {
		start := time.Now()
		err := f.ask(ctx, question, doc.ID)
		f.observe(err, time.Since(start))

		if err != nil && !domain.IsKind(err, domain.ErrFlowClosed) {
			f.notify(domain.Notification{
				Title:       "Error",
				Description: "Failed to get answer. Please try again.",
				Variant:     domain.VariantDestructive,
			})
		}
		return err
	}, nil
}

func (f *ChatFlow) ask(ctx context.Context, question, documentID string) error {
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(f.lifetime, cancel)
	defer stop()

	answer, err := f.asker.Ask(reqCtx, question, documentID)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading = false

	if f.closed {
		return domain.WrapError(domain.ErrFlowClosed, "ask", errors.New("response discarded after close"))
	}
	if err != nil {
		if domain.IsKind(err, domain.ErrAskRejected) || domain.IsKind(err, domain.ErrNetworkFailure) {
			return err
		}
		return domain.WrapError(domain.ErrNetworkFailure, "ask", err)
	}

	f.transcript = append(f.transcript, domain.Message{Role: domain.RoleAssistant, Content: answer})
	return nil
}

// Close aborts an in-flight question and discards the transcript.
func (f *ChatFlow) Close() {
	f.mu.Lock()
	f.closed = true
	f.transcript = nil
	f.input = ""
	f.mu.Unlock()

	f.cancel()
}

func (f *ChatFlow) notify(n domain.Notification) {
	if f.notifier != nil {
		f.notifier.Notify(n)
	}
}

func (f *ChatFlow) observe(err error, duration time.Duration) {
	if f.observer != nil {
		f.observer.ObserveAsk(domain.Outcome(err), duration)
	}
}
