package ports

import "github.com/kirillkom/docqa-client/internal/core/domain"

// DocumentStateReader is the read capability on the current document.
type DocumentStateReader interface {
	Get() (domain.DocumentDescriptor, bool)
}

// DocumentStateWriter is the write capability on the current document.
type DocumentStateWriter interface {
	Set(doc domain.DocumentDescriptor)
	Clear()
}

// DocumentState is the full capability handed out by the state provider.
type DocumentState interface {
	DocumentStateReader
	DocumentStateWriter
	Subscribe(fn func(doc *domain.DocumentDescriptor)) (unsubscribe func())
}
