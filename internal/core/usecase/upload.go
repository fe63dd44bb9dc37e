package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/docqa-client/internal/core/domain"
	"github.com/kirillkom/docqa-client/internal/core/ports"
)

var DefaultAcceptExtensions = []string{".pdf", ".doc", ".docx", ".txt"}

type UploadOptions struct {
	DocumentURLTemplate string
	AcceptExtensions    []string

	ProgressInterval   time.Duration
	ProgressStep       int
	ProgressCeiling    int
	ProgressResetDelay time.Duration
	OnProgress         func(percent int)

	Observer ports.FlowObserver
}

type UploadStatus struct {
	Processing bool
	Progress   int
	Selected   string
}

// UploadFlow is the upload form: one selected file, one submission at a time.
// A successful upload replaces the current document in the shared state.
type UploadFlow struct {
	uploader ports.DocumentUploader
	files    ports.FileSource
	state    ports.DocumentStateWriter
	notifier ports.Notifier
	opts     UploadOptions
	progress *ProgressSimulator

	lifetime context.Context
	cancel   context.CancelFunc

	mu         sync.Mutex
	selected   string
	processing bool
	closed     bool
	resetTimer *time.Timer
}

func NewUploadFlow(
	uploader ports.DocumentUploader,
	files ports.FileSource,
	state ports.DocumentStateWriter,
	notifier ports.Notifier,
	opts UploadOptions,
) *UploadFlow {
	if opts.ProgressResetDelay < 0 {
		opts.ProgressResetDelay = 0
	}
	if len(opts.AcceptExtensions) == 0 {
		opts.AcceptExtensions = DefaultAcceptExtensions
	}
	lifetime, cancel := context.WithCancel(context.Background())
	return &UploadFlow{
		uploader: uploader,
		files:    files,
		state:    state,
		notifier: notifier,
		opts:     opts,
		progress: NewProgressSimulator(opts.ProgressInterval, opts.ProgressStep, opts.ProgressCeiling, opts.OnProgress),
		lifetime: lifetime,
		cancel:   cancel,
	}
}

func (f *UploadFlow) Select(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected = strings.TrimSpace(path)
}

func (f *UploadFlow) Selected() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.selected
}

// Accepts reports whether name matches the accept filter. It is a hint for
// the picker; Submit never rejects a file because of it.
func (f *UploadFlow) Accepts(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range f.opts.AcceptExtensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

func (f *UploadFlow) Status() UploadStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return UploadStatus{
		Processing: f.processing,
		Progress:   f.progress.Value(),
		Selected:   f.selected,
	}
}

// ProgressRunning reports whether the progress timer is ticking.
func (f *UploadFlow) ProgressRunning() bool {
	return f.progress.Running()
}

func (f *UploadFlow) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return domain.WrapError(domain.ErrFlowClosed, "upload", errors.New("upload form is closed"))
	}
	if f.processing {
		f.mu.Unlock()
		return domain.WrapError(domain.ErrBusy, "upload", errors.New("upload already in progress"))
	}
	f.processing = true
	if f.resetTimer != nil {
		f.resetTimer.Stop()
		f.resetTimer = nil
	}
	path := f.selected
	f.mu.Unlock()

	f.progress.Reset()
	start := time.Now()

	err := f.upload(ctx, path)

	f.finish()
	f.observe(err, time.Since(start))

	if err != nil && !domain.IsKind(err, domain.ErrFlowClosed) {
		f.notify(domain.Notification{
			Title:       "Error",
			Description: uploadErrorMessage(err),
			Variant:     domain.VariantDestructive,
		})
	}
	return err
}

func (f *UploadFlow) upload(ctx context.Context, path string) error {
	if path == "" {
		return domain.WrapError(domain.ErrMissingFile, "upload", errors.New("no file selected"))
	}

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(f.lifetime, cancel)
	defer stop()

	body, name, err := f.files.Open(reqCtx, path)
	if err != nil {
		if domain.IsKind(err, domain.ErrMissingFile) {
			return err
		}
		return domain.WrapError(domain.ErrMissingFile, "upload", err)
	}
	defer body.Close()

	f.progress.Start()
	receipt, err := f.uploader.UploadDocument(reqCtx, name, body)
	f.progress.Complete()

	if f.isClosed() {
		return domain.WrapError(domain.ErrFlowClosed, "upload", errors.New("response discarded after close"))
	}
	if err != nil {
		return classifyUploadError(err)
	}
	if strings.TrimSpace(receipt.ID) == "" {
		return domain.WrapError(domain.ErrUploadRejected, "upload", errors.New("response has no document id"))
	}

	// Close may have run since the check above; the state is only written while open.
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return domain.WrapError(domain.ErrFlowClosed, "upload", errors.New("response discarded after close"))
	}
	f.state.Set(domain.NewDocumentDescriptor(receipt, f.opts.DocumentURLTemplate))
	if f.selected == path {
		f.selected = ""
	}
	f.mu.Unlock()

	f.notify(domain.Notification{
		Title:       "Success",
		Description: "Document uploaded and processed successfully",
		Variant:     domain.VariantDefault,
	})
	return nil
}

// finish runs on every exit path of Submit.
func (f *UploadFlow) finish() {
	f.progress.Stop()

	f.mu.Lock()
	f.processing = false
	closed := f.closed
	delay := f.opts.ProgressResetDelay
	if !closed && delay > 0 {
		f.resetTimer = time.AfterFunc(delay, f.progress.Reset)
	}
	f.mu.Unlock()

	if !closed && delay == 0 {
		f.progress.Reset()
	}
}

// Close aborts an in-flight upload and stops every timer the flow owns.
// A response that settles afterwards leaves the shared state untouched.
func (f *UploadFlow) Close() {
	f.mu.Lock()
	f.closed = true
	if f.resetTimer != nil {
		f.resetTimer.Stop()
		f.resetTimer = nil
	}
	f.mu.Unlock()

	f.cancel()
	f.progress.Stop()
}

func (f *UploadFlow) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *UploadFlow) notify(n domain.Notification) {
	if f.notifier != nil {
		f.notifier.Notify(n)
	}
}

func (f *UploadFlow) observe(err error, duration time.Duration) {
	if f.opts.Observer != nil {
		f.opts.Observer.ObserveUpload(domain.Outcome(err), duration)
	}
}

func classifyUploadError(err error) error {
	switch {
	case domain.IsKind(err, domain.ErrUploadRejected),
		domain.IsKind(err, domain.ErrNetworkFailure),
		domain.IsKind(err, domain.ErrMissingFile):
		return err
	default:
		return domain.WrapError(domain.ErrNetworkFailure, "upload", err)
	}
}

func uploadErrorMessage(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrMissingFile):
		return "No file selected"
	case domain.IsKind(err, domain.ErrUploadRejected):
		return fmt.Sprintf("Upload failed: %s", rejectionDetail(err))
	default:
		return "Failed to upload document"
	}
}

// RejectionDetail is implemented by adapter errors that carry the backend's reason.
type RejectionDetail interface {
	RejectionDetail() string
}

func rejectionDetail(err error) string {
	var detail RejectionDetail
	if errors.As(err, &detail) {
		if msg := strings.TrimSpace(detail.RejectionDetail()); msg != "" {
			return msg
		}
	}
	return "the server did not accept the document"
}
