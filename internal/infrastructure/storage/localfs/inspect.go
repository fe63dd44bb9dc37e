package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/docqa-client/internal/core/domain"
)

const (
	snippetBytes = 4096
	snippetRunes = 600
)

// Inspect builds a local preview without uploading the file.
func (s *Storage) Inspect(_ context.Context, path string) (domain.FilePreview, error) {
	resolved, err := s.statFile(path)
	if err != nil {
		return domain.FilePreview{}, err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return domain.FilePreview{}, domain.WrapError(domain.ErrMissingFile, "inspect file", err)
	}

	preview := domain.FilePreview{
		Name: filepath.Base(resolved),
		Path: resolved,
		Size: info.Size(),
	}

	mtype, err := mimetype.DetectFile(resolved)
	if err != nil {
		return domain.FilePreview{}, domain.WrapError(domain.ErrMissingFile, "inspect file", err)
	}
	preview.ContentType = mtype.String()

	switch {
	case mtype.Is("application/pdf"):
		pages, text, err := pdfSummary(resolved)
		if err == nil {
			preview.Pages = pages
			preview.Snippet = truncateRunes(text, snippetRunes)
		}
	case strings.HasPrefix(mtype.String(), "text/"):
		preview.Snippet = textSnippet(resolved)
	}
	return preview, nil
}

func pdfSummary(path string) (pages int, text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, text, err = 0, "", fmt.Errorf("parse pdf: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return 0, "", err
	}
	defer f.Close()

	pages = reader.NumPage()
	if pages == 0 {
		return 0, "", nil
	}
	page := reader.Page(1)
	if page.V.IsNull() {
		return pages, "", nil
	}
	plain, err := page.GetPlainText(nil)
	if err != nil {
		return pages, "", nil
	}
	return pages, strings.TrimSpace(plain), nil
}

func textSnippet(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	raw, err := io.ReadAll(io.LimitReader(f, snippetBytes))
	if err != nil {
		return ""
	}
	// A cut at the byte limit can split a rune.
	for len(raw) > 0 && !utf8.Valid(raw) {
		raw = raw[:len(raw)-1]
	}
	return truncateRunes(strings.TrimSpace(string(raw)), snippetRunes)
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}
