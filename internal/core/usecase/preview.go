package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/kirillkom/docqa-client/internal/core/domain"
	"github.com/kirillkom/docqa-client/internal/core/ports"
)

const (
	PreviewSourceRemote = "remote"
	PreviewSourceLocal  = "local"
)

// PreviewService reads documents for display. It never changes the current document.
type PreviewService struct {
	catalog   ports.DocumentCatalog
	inspector ports.FileInspector
	state     ports.DocumentStateReader
	observer  ports.PreviewObserver
}

func NewPreviewService(
	catalog ports.DocumentCatalog,
	inspector ports.FileInspector,
	state ports.DocumentStateReader,
	observer ports.PreviewObserver,
) *PreviewService {
	return &PreviewService{
		catalog:   catalog,
		inspector: inspector,
		state:     state,
		observer:  observer,
	}
}

// Current fetches the current document through its locator.
func (s *PreviewService) Current(ctx context.Context) (domain.DocumentDescriptor, *domain.DocumentInfo, error) {
	doc, ok := s.state.Get()
	if !ok {
		return domain.DocumentDescriptor{}, nil, domain.WrapError(domain.ErrNoDocumentSelected, "preview", errors.New("no current document"))
	}
	info, err := s.Document(ctx, doc)
	return doc, info, err
}

func (s *PreviewService) Document(ctx context.Context, doc domain.DocumentDescriptor) (*domain.DocumentInfo, error) {
	if strings.TrimSpace(doc.URL) == "" {
		err := domain.WrapError(domain.ErrDocumentUnavailable, "preview", errors.New("document has no locator"))
		s.observe(PreviewSourceRemote, err)
		return nil, err
	}
	info, err := s.catalog.FetchDocument(ctx, doc.URL)
	if err != nil && !domain.IsKind(err, domain.ErrDocumentUnavailable) && !domain.IsKind(err, domain.ErrNetworkFailure) {
		err = domain.WrapError(domain.ErrDocumentUnavailable, "preview", err)
	}
	s.observe(PreviewSourceRemote, err)
	return info, err
}

// Local inspects a file that has not been uploaded yet.
func (s *PreviewService) Local(ctx context.Context, path string) (domain.FilePreview, error) {
	preview, err := s.inspector.Inspect(ctx, path)
	s.observe(PreviewSourceLocal, err)
	return preview, err
}

func (s *PreviewService) Documents(ctx context.Context) ([]domain.DocumentInfo, error) {
	return s.catalog.ListDocuments(ctx)
}

func (s *PreviewService) observe(source string, err error) {
	if s.observer != nil {
		s.observer.ObservePreview(source, err)
	}
}
