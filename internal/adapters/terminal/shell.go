package terminal

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/kirillkom/docqa-client/internal/core/domain"
	"github.com/kirillkom/docqa-client/internal/core/ports"
)

const helpText = `Commands:
  /upload [path]   upload the selected file, or select path and upload it
  /select <path>   select a file and preview it locally
  /doc             show the current document
  /preview         preview the current document from the server
  /docs            list documents stored on the server
  /history         show the conversation
  /clear           forget the current document
  /help            show this help
  /quit            exit
Any other line is a question about the current document.`

type UploadForm interface {
	Select(path string)
	Selected() string
	Accepts(name string) bool
	Submit(ctx context.Context) error
	Close()
}

type ChatPanel interface {
	Send(question string) (wait func(context.Context) error, err error)
	Transcript() []domain.Message
	Close()
}

type Previewer interface {
	Current(ctx context.Context) (domain.DocumentDescriptor, *domain.DocumentInfo, error)
	Local(ctx context.Context, path string) (domain.FilePreview, error)
	Documents(ctx context.Context) ([]domain.DocumentInfo, error)
}

// Shell is the interactive page: header, upload form, preview and chat panels.
// Requests run in the background so the prompt stays responsive.
type Shell struct {
	console *Console
	upload  UploadForm
	chat    ChatPanel
	preview Previewer
	state   ports.DocumentState
	bar     *ProgressBar

	tasks       sync.WaitGroup
	cancelTasks context.CancelFunc
}

func NewShell(
	console *Console,
	upload UploadForm,
	chat ChatPanel,
	preview Previewer,
	state ports.DocumentState,
	bar *ProgressBar,
) *Shell {
	return &Shell{
		console: console,
		upload:  upload,
		chat:    chat,
		preview: preview,
		state:   state,
		bar:     bar,
	}
}

// Run reads commands until /quit, end of input or ctx is done. On end of input
// pending requests finish first; otherwise they are abandoned and their
// responses discarded.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	taskCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancelTasks = cancel
	defer cancel()
	s.console.Println(color.New(color.Bold).Sprint("Document Q&A"))
	s.printHeader()
	s.console.Println(Hint("Type /help for commands."))

	for {
		select {
		case <-ctx.Done():
			s.unmount()
			return nil
		case line, ok := <-lines:
			if !ok {
				s.tasks.Wait()
				s.unmount()
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			if quit := s.handle(taskCtx, line); quit {
				s.unmount()
				return nil
			}
		}
	}
}

// unmount closes the flows before cancelling their requests, so late
// responses are discarded instead of reported as failures.
func (s *Shell) unmount() {
	s.upload.Close()
	s.chat.Close()
	if s.cancelTasks != nil {
		s.cancelTasks()
	}
	s.tasks.Wait()
}

func (s *Shell) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		s.ask(ctx, line)
		return false
	}

	command, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch command {
	case "/quit", "/exit":
		return true
	case "/help":
		s.console.Println(helpText)
	case "/upload":
		if arg != "" {
			s.upload.Select(arg)
		}
		s.submitUpload(ctx)
	case "/select":
		s.selectFile(ctx, arg)
	case "/doc":
		s.printHeader()
	case "/preview":
		s.showPreview(ctx)
	case "/docs":
		s.listDocuments(ctx)
	case "/history":
		s.console.Println(Transcript(s.chat.Transcript()))
	case "/clear":
		s.state.Clear()
		s.printHeader()
	default:
		s.console.Printf("Unknown command %s. Type /help for commands.\n", command)
	}
	return false
}

// ask commits the question on the prompt goroutine, so a line typed while an
// answer is pending is refused instead of replacing the pending one.
func (s *Shell) ask(ctx context.Context, question string) {
	wait, err := s.chat.Send(question)
	if domain.IsKind(err, domain.ErrBusy) {
		s.console.Println(Hint("Still waiting for the previous answer."))
		return
	}
	if wait == nil {
		return
	}
	s.background(func() {
		if err := wait(ctx); err != nil {
			return
		}
		transcript := s.chat.Transcript()
		if n := len(transcript); n > 0 && transcript[n-1].Role == domain.RoleAssistant {
			s.console.Println(MessageLine(transcript[n-1]))
		}
	})
}

func (s *Shell) submitUpload(ctx context.Context) {
	if selected := s.upload.Selected(); selected != "" && !s.upload.Accepts(selected) {
		s.console.Println(Hint("Note: " + selected + " is not one of the usual document types."))
	}
	s.background(func() {
		err := s.upload.Submit(ctx)
		s.bar.Done()
		switch {
		case err == nil:
			s.printHeader()
		case domain.IsKind(err, domain.ErrBusy):
			s.console.Println(Hint("An upload is already in progress."))
		}
	})
}

func (s *Shell) selectFile(ctx context.Context, path string) {
	if path == "" {
		s.console.Println("Usage: /select <path>")
		return
	}
	s.upload.Select(path)
	preview, err := s.preview.Local(ctx, path)
	if err != nil {
		s.console.Println(Hint("Selected " + path + ", but it cannot be read: " + err.Error()))
		return
	}
	s.console.Println(LocalPreview(preview))
}

func (s *Shell) showPreview(ctx context.Context) {
	if _, ok := s.state.Get(); !ok {
		s.console.Println(PreviewPlaceholder)
		return
	}
	s.background(func() {
		doc, info, err := s.preview.Current(ctx)
		switch {
		case err == nil:
			s.console.Println(DocumentPreview(doc, info))
		case domain.IsKind(err, domain.ErrNoDocumentSelected):
			s.console.Println(PreviewPlaceholder)
		default:
			s.console.Println(Hint("Preview unavailable: " + err.Error()))
		}
	})
}

func (s *Shell) listDocuments(ctx context.Context) {
	s.background(func() {
		docs, err := s.preview.Documents(ctx)
		if err != nil {
			s.console.Println(Hint("Cannot list documents: " + err.Error()))
			return
		}
		s.console.Println(DocumentTable(docs))
	})
}

func (s *Shell) printHeader() {
	doc, ok := s.state.Get()
	s.console.Println(Header(doc, ok))
}

func (s *Shell) background(fn func()) {
	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		fn()
	}()
}
