package terminal

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/kirillkom/docqa-client/internal/core/domain"
)

var (
	toastDefault     = color.New(color.FgGreen, color.Bold)
	toastDestructive = color.New(color.FgRed, color.Bold)
)

// Notifier prints notifications as one-line toasts.
type Notifier struct {
	out io.Writer
}

func NewNotifier(out io.Writer) *Notifier {
	return &Notifier{out: out}
}

func (n *Notifier) Notify(note domain.Notification) {
	style := toastDefault
	if note.Variant == domain.VariantDestructive {
		style = toastDestructive
	}
	_, _ = fmt.Fprintf(n.out, "%s %s\n", style.Sprintf("[%s]", note.Title), note.Description)
}
