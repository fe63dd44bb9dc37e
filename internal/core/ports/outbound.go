package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/docqa-client/internal/core/domain"
)

// DocumentUploader sends a file to the backend for processing.
type DocumentUploader interface {
	UploadDocument(ctx context.Context, filename string, body io.Reader) (domain.UploadReceipt, error)
}

// QuestionAsker asks the backend a question about one document.
type QuestionAsker interface {
	Ask(ctx context.Context, question, documentID string) (string, error)
}

// DocumentCatalog reads backend document metadata.
type DocumentCatalog interface {
	ListDocuments(ctx context.Context) ([]domain.DocumentInfo, error)
	FetchDocument(ctx context.Context, documentURL string) (*domain.DocumentInfo, error)
}

// FileSource opens user-selected local files.
type FileSource interface {
	Open(ctx context.Context, path string) (io.ReadCloser, string, error)
}

// FileInspector builds a local preview of a file before upload.
type FileInspector interface {
	Inspect(ctx context.Context, path string) (domain.FilePreview, error)
}

// Notifier shows user-visible notifications. Fire and forget.
type Notifier interface {
	Notify(n domain.Notification)
}

// DocumentEventPublisher fans out current-document changes; nil doc means cleared.
type DocumentEventPublisher interface {
	PublishDocumentChanged(ctx context.Context, doc *domain.DocumentDescriptor) error
}

// FlowObserver records flow outcomes.
type FlowObserver interface {
	ObserveUpload(outcome string, duration time.Duration)
	ObserveAsk(outcome string, duration time.Duration)
}

// PreviewObserver records preview renders by source ("remote" or "local").
type PreviewObserver interface {
	ObservePreview(source string, err error)
}
