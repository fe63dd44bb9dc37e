package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/docqa-client/internal/core/domain"
)

type uploaderFake struct {
	mu       sync.Mutex
	receipts []domain.UploadReceipt
	err      error
	calls    int
	names    []string
	bodies   []string
	release  chan struct{}
	started  chan struct{}
}

func (f *uploaderFake) UploadDocument(ctx context.Context, filename string, body io.Reader) (domain.UploadReceipt, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return domain.UploadReceipt{}, err
	}

	f.mu.Lock()
	idx := f.calls
	f.calls++
	f.names = append(f.names, filename)
	f.bodies = append(f.bodies, string(raw))
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return domain.UploadReceipt{}, ctx.Err()
		}
	}

	if f.err != nil {
		return domain.UploadReceipt{}, f.err
	}
	if idx < len(f.receipts) {
		return f.receipts[idx], nil
	}
	return domain.UploadReceipt{}, errors.New("no receipt configured")
}

func (f *uploaderFake) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fileSourceFake struct {
	files map[string]string
}

func (f fileSourceFake) Open(_ context.Context, path string) (io.ReadCloser, string, error) {
	content, ok := f.files[path]
	if !ok {
		return nil, "", domain.WrapError(domain.ErrMissingFile, "open", errors.New(path))
	}
	name := path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		name = path[idx+1:]
	}
	return io.NopCloser(strings.NewReader(content)), name, nil
}

type askerFake struct {
	mu        sync.Mutex
	answer    string
	err       error
	calls     int
	questions []string
	docIDs    []string
	release   chan struct{}
	started   chan struct{}
}

func (f *askerFake) Ask(ctx context.Context, question, documentID string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.questions = append(f.questions, question)
	f.docIDs = append(f.docIDs, documentID)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *askerFake) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type notifierFake struct {
	mu    sync.Mutex
	notes []domain.Notification
}

func (f *notifierFake) Notify(n domain.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, n)
}

func (f *notifierFake) all() []domain.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Notification, len(f.notes))
	copy(out, f.notes)
	return out
}

type observerFake struct {
	mu      sync.Mutex
	uploads []string
	asks    []string
}

func (f *observerFake) ObserveUpload(outcome string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, outcome)
}

func (f *observerFake) ObserveAsk(outcome string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.asks = append(f.asks, outcome)
}

type stateFake struct {
	mu  sync.Mutex
	doc *domain.DocumentDescriptor
	set int
}

func (f *stateFake) Get() (domain.DocumentDescriptor, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.doc == nil {
		return domain.DocumentDescriptor{}, false
	}
	return *f.doc, true
}

func (f *stateFake) Set(doc domain.DocumentDescriptor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.doc = &doc
	f.set++
}

func (f *stateFake) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.doc = nil
}

func (f *stateFake) setCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.set
}

type catalogFake struct {
	mu      sync.Mutex
	docs    map[string]domain.DocumentInfo
	err     error
	fetched []string
}

func (f *catalogFake) ListDocuments(context.Context) ([]domain.DocumentInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.DocumentInfo, 0, len(f.docs))
	for _, doc := range f.docs {
		out = append(out, doc)
	}
	return out, nil
}

func (f *catalogFake) FetchDocument(_ context.Context, documentURL string) (*domain.DocumentInfo, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, documentURL)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	doc, ok := f.docs[documentURL]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentUnavailable, "fetch", errors.New(documentURL))
	}
	return &doc, nil
}

type inspectorFake struct {
	previews map[string]domain.FilePreview
}

func (f inspectorFake) Inspect(_ context.Context, path string) (domain.FilePreview, error) {
	preview, ok := f.previews[path]
	if !ok {
		return domain.FilePreview{}, domain.WrapError(domain.ErrMissingFile, "inspect", errors.New(path))
	}
	return preview, nil
}

type previewObserverFake struct {
	mu      sync.Mutex
	renders []string
}

func (f *previewObserverFake) ObservePreview(source string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renders = append(f.renders, source+":"+domain.Outcome(err))
}
