package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kirillkom/docqa-client/internal/core/domain"
	"github.com/kirillkom/docqa-client/internal/core/state"
)

const testURLTemplate = "http://localhost:8000/documents/{id}"

func newTestUploadFlow(uploader *uploaderFake, st *stateFake, notifier *notifierFake, observer *observerFake) *UploadFlow {
	opts := UploadOptions{
		DocumentURLTemplate: testURLTemplate,
		ProgressInterval:    time.Millisecond,
	}
	if observer != nil {
		opts.Observer = observer
	}
	files := fileSourceFake{files: map[string]string{
		"/tmp/report.pdf": "%PDF-1.4 fake",
		"/tmp/notes.txt":  "hello",
	}}
	if notifier == nil {
		return NewUploadFlow(uploader, files, st, nil, opts)
	}
	return NewUploadFlow(uploader, files, st, notifier, opts)
}

func TestUploadSuccessSetsCurrentDocument(t *testing.T) {
	uploader := &uploaderFake{receipts: []domain.UploadReceipt{{ID: "d1", Filename: "report.pdf", Type: "application/pdf"}}}
	st := &stateFake{}
	notifier := &notifierFake{}
	observer := &observerFake{}
	flow := newTestUploadFlow(uploader, st, notifier, observer)

	flow.Select("/tmp/report.pdf")
	if err := flow.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	doc, ok := st.Get()
	if !ok {
		t.Fatalf("expected current document")
	}
	want := domain.DocumentDescriptor{
		ID:   "d1",
		Name: "report.pdf",
		URL:  "http://localhost:8000/documents/d1",
		Type: "application/pdf",
	}
	if doc != want {
		t.Fatalf("expected %+v, got %+v", want, doc)
	}
	if uploader.names[0] != "report.pdf" || uploader.bodies[0] != "%PDF-1.4 fake" {
		t.Fatalf("unexpected upload payload: %v %v", uploader.names, uploader.bodies)
	}

	notes := notifier.all()
	if len(notes) != 1 || notes[0].Variant != domain.VariantDefault || notes[0].Title != "Success" {
		t.Fatalf("expected one success notification, got %+v", notes)
	}
	if flow.Selected() != "" {
		t.Fatalf("expected form reset on success, got %q", flow.Selected())
	}
	status := flow.Status()
	if status.Processing {
		t.Fatalf("expected processing cleared")
	}
	if flow.ProgressRunning() {
		t.Fatalf("progress timer left running after success")
	}
	if len(observer.uploads) != 1 || observer.uploads[0] != "success" {
		t.Fatalf("unexpected observed outcomes %v", observer.uploads)
	}
}

func TestUploadWithoutFileIsMissingFile(t *testing.T) {
	uploader := &uploaderFake{}
	st := &stateFake{}
	notifier := &notifierFake{}
	flow := newTestUploadFlow(uploader, st, notifier, nil)

	err := flow.Submit(context.Background())
	if !errors.Is(err, domain.ErrMissingFile) {
		t.Fatalf("expected ErrMissingFile, got %v", err)
	}
	if uploader.callCount() != 0 {
		t.Fatalf("expected no upload call")
	}
	if st.setCount() != 0 {
		t.Fatalf("state must stay unchanged")
	}
	notes := notifier.all()
	if len(notes) != 1 || notes[0].Variant != domain.VariantDestructive || notes[0].Description != "No file selected" {
		t.Fatalf("expected destructive missing-file notification, got %+v", notes)
	}
	if flow.Status().Processing || flow.ProgressRunning() {
		t.Fatalf("expected cleanup after missing file")
	}
}

func TestUploadUnknownPathIsMissingFile(t *testing.T) {
	uploader := &uploaderFake{}
	flow := newTestUploadFlow(uploader, &stateFake{}, &notifierFake{}, nil)

	flow.Select("/tmp/does-not-exist.pdf")
	err := flow.Submit(context.Background())
	if !errors.Is(err, domain.ErrMissingFile) {
		t.Fatalf("expected ErrMissingFile, got %v", err)
	}
	if uploader.callCount() != 0 {
		t.Fatalf("expected no upload call")
	}
}

func TestUploadRejectedLeavesStateUnchanged(t *testing.T) {
	uploader := &uploaderFake{err: domain.WrapError(domain.ErrUploadRejected, "upload", errors.New("400 Bad Request"))}
	previous := domain.DocumentDescriptor{ID: "d0", Name: "old.txt"}
	st := &stateFake{doc: &previous}
	notifier := &notifierFake{}
	observer := &observerFake{}
	flow := newTestUploadFlow(uploader, st, notifier, observer)

	flow.Select("/tmp/report.pdf")
	err := flow.Submit(context.Background())
	if !errors.Is(err, domain.ErrUploadRejected) {
		t.Fatalf("expected ErrUploadRejected, got %v", err)
	}

	doc, _ := st.Get()
	if doc != previous {
		t.Fatalf("state changed on failure: %+v", doc)
	}
	notes := notifier.all()
	if len(notes) != 1 || notes[0].Variant != domain.VariantDestructive {
		t.Fatalf("expected destructive notification, got %+v", notes)
	}
	if flow.Selected() != "/tmp/report.pdf" {
		t.Fatalf("form must not reset on failure")
	}
	if flow.ProgressRunning() {
		t.Fatalf("progress timer left running after rejection")
	}
	if observer.uploads[0] != "upload_rejected" {
		t.Fatalf("unexpected outcome %v", observer.uploads)
	}
}

func TestUploadTransportErrorIsNetworkFailure(t *testing.T) {
	uploader := &uploaderFake{err: errors.New("connection refused")}
	st := &stateFake{}
	flow := newTestUploadFlow(uploader, st, &notifierFake{}, nil)

	flow.Select("/tmp/notes.txt")
	err := flow.Submit(context.Background())
	if !errors.Is(err, domain.ErrNetworkFailure) {
		t.Fatalf("expected ErrNetworkFailure, got %v", err)
	}
	if st.setCount() != 0 {
		t.Fatalf("state must stay unchanged")
	}
	if flow.ProgressRunning() {
		t.Fatalf("progress timer left running after network failure")
	}
}

func TestUploadResponseWithoutIDIsRejected(t *testing.T) {
	uploader := &uploaderFake{receipts: []domain.UploadReceipt{{Filename: "report.pdf"}}}
	st := &stateFake{}
	flow := newTestUploadFlow(uploader, st, &notifierFake{}, nil)

	flow.Select("/tmp/report.pdf")
	if err := flow.Submit(context.Background()); !errors.Is(err, domain.ErrUploadRejected) {
		t.Fatalf("expected ErrUploadRejected, got %v", err)
	}
	if st.setCount() != 0 {
		t.Fatalf("state must stay unchanged")
	}
}

func TestSequentialUploadsAreLastWriteWins(t *testing.T) {
	var receipts []domain.UploadReceipt
	for i := 1; i <= 3; i++ {
		receipts = append(receipts, domain.UploadReceipt{
			ID:       fmt.Sprintf("d%d", i),
			Filename: fmt.Sprintf("file-%d.txt", i),
			Type:     "text/plain",
		})
	}
	uploader := &uploaderFake{receipts: receipts}
	docs := state.NewDocumentState()
	flow := NewUploadFlow(uploader, fileSourceFake{files: map[string]string{"/tmp/notes.txt": "hello"}}, docs, nil, UploadOptions{
		DocumentURLTemplate: testURLTemplate,
	})

	for i, receipt := range receipts {
		flow.Select("/tmp/notes.txt")
		if err := flow.Submit(context.Background()); err != nil {
			t.Fatalf("Submit() #%d error = %v", i+1, err)
		}
		got, ok := docs.Get()
		want := domain.NewDocumentDescriptor(receipt, testURLTemplate)
		if !ok || got != want {
			t.Fatalf("after upload %d expected %+v, got %+v", i+1, want, got)
		}
	}
}

func TestUploadWhileProcessingIsBusy(t *testing.T) {
	uploader := &uploaderFake{
		receipts: []domain.UploadReceipt{{ID: "d1", Filename: "report.pdf"}},
		release:  make(chan struct{}),
		started:  make(chan struct{}, 1),
	}
	flow := newTestUploadFlow(uploader, &stateFake{}, &notifierFake{}, nil)
	flow.Select("/tmp/report.pdf")

	done := make(chan error, 1)
	go func() { done <- flow.Submit(context.Background()) }()
	<-uploader.started

	if !flow.Status().Processing {
		t.Fatalf("expected processing flag during upload")
	}
	if err := flow.Submit(context.Background()); !errors.Is(err, domain.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	close(uploader.release)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("first Submit() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for upload")
	}
	if uploader.callCount() != 1 {
		t.Fatalf("expected exactly one upload call, got %d", uploader.callCount())
	}
}

func TestUploadProgressResetsAfterDelay(t *testing.T) {
	uploader := &uploaderFake{receipts: []domain.UploadReceipt{{ID: "d1", Filename: "report.pdf"}}}
	flow := NewUploadFlow(uploader, fileSourceFake{files: map[string]string{"/tmp/report.pdf": "x"}}, &stateFake{}, nil, UploadOptions{
		DocumentURLTemplate: testURLTemplate,
		ProgressResetDelay:  20 * time.Millisecond,
	})

	flow.Select("/tmp/report.pdf")
	if err := flow.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if got := flow.Status().Progress; got != 100 {
		t.Fatalf("expected progress 100 right after completion, got %d", got)
	}

	deadline := time.Now().Add(time.Second)
	for flow.Status().Progress != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := flow.Status().Progress; got != 0 {
		t.Fatalf("expected progress reset to 0, got %d", got)
	}
}

func TestUploadCloseDiscardsLateResponse(t *testing.T) {
	uploader := &uploaderFake{
		receipts: []domain.UploadReceipt{{ID: "d1", Filename: "report.pdf"}},
		release:  make(chan struct{}),
		started:  make(chan struct{}, 1),
	}
	st := &stateFake{}
	notifier := &notifierFake{}
	flow := newTestUploadFlow(uploader, st, notifier, nil)
	flow.Select("/tmp/report.pdf")

	done := make(chan error, 1)
	go func() { done <- flow.Submit(context.Background()) }()
	<-uploader.started

	flow.Close()

	select {
	case err := <-done:
		if !errors.Is(err, domain.ErrFlowClosed) {
			t.Fatalf("expected ErrFlowClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for cancelled upload")
	}
	if st.setCount() != 0 {
		t.Fatalf("closed flow must not write state")
	}
	if len(notifier.all()) != 0 {
		t.Fatalf("closed flow must not notify, got %+v", notifier.all())
	}
	if flow.ProgressRunning() {
		t.Fatalf("progress timer left running after close")
	}
	if err := flow.Submit(context.Background()); !errors.Is(err, domain.ErrFlowClosed) {
		t.Fatalf("expected ErrFlowClosed after close, got %v", err)
	}
}

func TestUploadCloseRacingResponseNeverWritesAfterClose(t *testing.T) {
	for run := 0; run < 200; run++ {
		uploader := &uploaderFake{
			receipts: []domain.UploadReceipt{{ID: "d1", Filename: "report.pdf"}},
			release:  make(chan struct{}),
			started:  make(chan struct{}, 1),
		}
		st := &stateFake{}
		flow := newTestUploadFlow(uploader, st, nil, nil)
		flow.Select("/tmp/report.pdf")

		done := make(chan error, 1)
		go func() { done <- flow.Submit(context.Background()) }()
		<-uploader.started

		closed := make(chan int, 1)
		go func() {
			flow.Close()
			closed <- st.setCount()
		}()
		close(uploader.release)

		afterClose := <-closed
		var err error
		select {
		case err = <-done:
		case <-time.After(time.Second):
			t.Fatalf("run %d: timed out waiting for upload", run)
		}
		if got := st.setCount(); got != afterClose {
			t.Fatalf("run %d: state written after Close returned (%d then %d)", run, afterClose, got)
		}
		if err == nil && afterClose != 1 {
			t.Fatalf("run %d: successful upload must have written state before Close", run)
		}
		if err != nil && !errors.Is(err, domain.ErrFlowClosed) {
			t.Fatalf("run %d: expected ErrFlowClosed, got %v", run, err)
		}
	}
}

func TestAcceptsIsAHint(t *testing.T) {
	flow := newTestUploadFlow(&uploaderFake{}, &stateFake{}, nil, nil)
	if !flow.Accepts("Report.PDF") || !flow.Accepts("notes.txt") {
		t.Fatalf("expected accepted extensions")
	}
	if flow.Accepts("image.png") {
		t.Fatalf("png should not match the accept filter")
	}
}
