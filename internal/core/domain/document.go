package domain

import (
	"net/url"
	"strings"
)

// DocumentIDPlaceholder is substituted with the document id in a URL template.
const DocumentIDPlaceholder = "{id}"

// DocumentDescriptor identifies a document the backend has processed.
// It is a value: replacing the current document means replacing the whole descriptor.
type DocumentDescriptor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"`
}

// UploadReceipt is the backend's response to a successful upload.
type UploadReceipt struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	Type      string `json:"type"`
	CreatedAt string `json:"created_at,omitempty"`
	NumPages  int    `json:"num_pages,omitempty"`
}

// DocumentInfo is the backend's metadata view of a stored document.
type DocumentInfo struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	Type      string `json:"type"`
	CreatedAt string `json:"created_at,omitempty"`
	NumPages  int    `json:"num_pages,omitempty"`
	Content   string `json:"content,omitempty"`
}

// FilePreview describes a local file before it is uploaded.
type FilePreview struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	Pages       int    `json:"pages,omitempty"`
	Snippet     string `json:"snippet,omitempty"`
}

// NewDocumentDescriptor builds the descriptor for an upload receipt.
// The URL is urlTemplate with DocumentIDPlaceholder replaced by the escaped id.
func NewDocumentDescriptor(receipt UploadReceipt, urlTemplate string) DocumentDescriptor {
	return DocumentDescriptor{
		ID:   receipt.ID,
		Name: receipt.Filename,
		URL:  DocumentURL(urlTemplate, receipt.ID),
		Type: receipt.Type,
	}
}

func DocumentURL(urlTemplate, id string) string {
	return strings.ReplaceAll(urlTemplate, DocumentIDPlaceholder, url.PathEscape(id))
}
