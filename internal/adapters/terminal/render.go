package terminal

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/kirillkom/docqa-client/internal/core/domain"
)

const (
	NoDocumentHeader   = "Upload a document to start asking questions"
	EmptyTranscript    = "No messages yet. Start by asking a question about your document."
	PreviewPlaceholder = "Upload a document to preview its contents"

	previewContentRunes = 600
	progressBarWidth    = 20
)

var (
	labelStyle     = color.New(color.Bold)
	userStyle      = color.New(color.FgCyan, color.Bold)
	assistantStyle = color.New(color.FgMagenta, color.Bold)
	hintStyle      = color.New(color.FgYellow)
)

func Header(doc domain.DocumentDescriptor, ok bool) string {
	if !ok {
		return NoDocumentHeader
	}
	return fmt.Sprintf("Current document: %s", doc.Name)
}

func Transcript(messages []domain.Message) string {
	if len(messages) == 0 {
		return EmptyTranscript
	}
	var b strings.Builder
	for i, msg := range messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(MessageLine(msg))
	}
	return b.String()
}

func MessageLine(msg domain.Message) string {
	if msg.Role == domain.RoleUser {
		return userStyle.Sprint("You: ") + msg.Content
	}
	return assistantStyle.Sprint("Assistant: ") + msg.Content
}

func ProgressLine(percent int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * progressBarWidth / 100
	return fmt.Sprintf("Uploading [%s%s] %3d%%",
		strings.Repeat("#", filled), strings.Repeat(".", progressBarWidth-filled), percent)
}

// DocumentPreview renders a fetched document the way the preview panel shows it.
func DocumentPreview(doc domain.DocumentDescriptor, info *domain.DocumentInfo) string {
	var b strings.Builder
	name := doc.Name
	docType := doc.Type
	pages := 0
	content := ""
	if info != nil {
		if info.Filename != "" {
			name = info.Filename
		}
		if info.Type != "" {
			docType = info.Type
		}
		pages = info.NumPages
		content = strings.TrimSpace(info.Content)
	}

	fmt.Fprintf(&b, "%s %s\n", labelStyle.Sprint("Name:"), name)
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Sprint("Type:"), docType)
	if pages > 0 {
		fmt.Fprintf(&b, "%s %d\n", labelStyle.Sprint("Pages:"), pages)
	}
	fmt.Fprintf(&b, "%s %s", labelStyle.Sprint("Source:"), doc.URL)
	if content != "" {
		b.WriteString("\n\n")
		b.WriteString(truncate(content, previewContentRunes))
	}
	return b.String()
}

func LocalPreview(p domain.FilePreview) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Sprint("File:"), p.Path)
	fmt.Fprintf(&b, "%s %s (%s)", labelStyle.Sprint("Type:"), p.ContentType, humanSize(p.Size))
	if p.Pages > 0 {
		fmt.Fprintf(&b, "\n%s %d", labelStyle.Sprint("Pages:"), p.Pages)
	}
	if p.Snippet != "" {
		b.WriteString("\n\n")
		b.WriteString(p.Snippet)
	}
	return b.String()
}

func DocumentTable(docs []domain.DocumentInfo) string {
	if len(docs) == 0 {
		return "No documents on the server yet."
	}
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILENAME\tTYPE\tPAGES\tCREATED")
	for _, doc := range docs {
		pages := "-"
		if doc.NumPages > 0 {
			pages = strconv.Itoa(doc.NumPages)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", doc.ID, doc.Filename, doc.Type, pages, doc.CreatedAt)
	}
	_ = tw.Flush()
	return strings.TrimRight(b.String(), "\n")
}

func Hint(text string) string {
	return hintStyle.Sprint(text)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
