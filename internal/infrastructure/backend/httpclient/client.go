package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/time/rate"

	"github.com/kirillkom/docqa-client/internal/core/domain"
	"github.com/kirillkom/docqa-client/internal/infrastructure/resilience"
)

const uploadField = "file"

// RequestObserver records one backend round trip. status is 0 when no response arrived.
type RequestObserver interface {
	ObserveBackendRequest(operation string, status int, duration time.Duration)
}

type Options struct {
	RequestTimeout time.Duration
	UploadTimeout  time.Duration
	Breaker        *resilience.Breaker
	Limiter        *rate.Limiter
	Observer       RequestObserver
	Transport      http.RoundTripper
}

// Client talks to the document QA backend. Every call is attempted once.
type Client struct {
	baseURL        string
	requestTimeout time.Duration
	uploadTimeout  time.Duration
	breaker        *resilience.Breaker
	observer       RequestObserver
	httpClient     *http.Client
}

func New(baseURL string, opts Options) *Client {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = 5 * time.Minute
	}
	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		requestTimeout: opts.RequestTimeout,
		uploadTimeout:  opts.UploadTimeout,
		breaker:        opts.Breaker,
		observer:       opts.Observer,
		httpClient: &http.Client{
			Transport: NewTransport(opts.Transport, opts.Limiter),
		},
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// UploadDocument posts body as the multipart field "file".
func (c *Client) UploadDocument(ctx context.Context, filename string, body io.Reader) (domain.UploadReceipt, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return domain.UploadReceipt{}, domain.WrapError(domain.ErrMissingFile, "upload", fmt.Errorf("read local file: %w", err))
	}

	payload, contentType, err := buildMultipart(filename, data)
	if err != nil {
		return domain.UploadReceipt{}, fmt.Errorf("build upload form: %w", err)
	}

	var receipt domain.UploadReceipt
	err = c.execute(ctx, "upload", c.uploadTimeout, func(ctx context.Context) error {
		return c.doJSON(ctx, "upload", http.MethodPost, c.baseURL+"/upload", contentType, bytes.NewReader(payload), &receipt)
	})
	if err != nil {
		return domain.UploadReceipt{}, wrapBackendError(domain.ErrUploadRejected, "upload", err)
	}
	if strings.TrimSpace(receipt.ID) == "" {
		return domain.UploadReceipt{}, domain.WrapError(domain.ErrUploadRejected, "upload", errors.New("response has no document id"))
	}
	return receipt, nil
}

func (c *Client) Ask(ctx context.Context, question, documentID string) (string, error) {
	request := map[string]string{
		"question":    question,
		"document_id": documentID,
	}
	body, err := encodeJSON(request)
	if err != nil {
		return "", fmt.Errorf("marshal ask request: %w", err)
	}

	var response struct {
		Answer *string `json:"answer"`
	}
	err = c.execute(ctx, "ask", c.requestTimeout, func(ctx context.Context) error {
		return c.doJSON(ctx, "ask", http.MethodPost, c.baseURL+"/ask", "application/json", bytes.NewReader(body), &response)
	})
	if err != nil {
		return "", wrapBackendError(domain.ErrAskRejected, "ask", err)
	}
	if response.Answer == nil {
		return "", domain.WrapError(domain.ErrAskRejected, "ask", errors.New("response has no answer"))
	}
	return *response.Answer, nil
}

func (c *Client) ListDocuments(ctx context.Context) ([]domain.DocumentInfo, error) {
	var docs []domain.DocumentInfo
	err := c.execute(ctx, "list_documents", c.requestTimeout, func(ctx context.Context) error {
		return c.doJSON(ctx, "list_documents", http.MethodGet, c.baseURL+"/documents", "", nil, &docs)
	})
	if err != nil {
		return nil, wrapBackendError(domain.ErrDocumentUnavailable, "list documents", err)
	}
	return docs, nil
}

// FetchDocument reads a document through its derived locator.
func (c *Client) FetchDocument(ctx context.Context, documentURL string) (*domain.DocumentInfo, error) {
	var doc domain.DocumentInfo
	err := c.execute(ctx, "fetch_document", c.requestTimeout, func(ctx context.Context) error {
		return c.doJSON(ctx, "fetch_document", http.MethodGet, documentURL, "", nil, &doc)
	})
	if err != nil {
		return nil, wrapBackendError(domain.ErrDocumentUnavailable, "fetch document", err)
	}
	return &doc, nil
}

func (c *Client) execute(ctx context.Context, operation string, timeout time.Duration, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.breaker.Execute(callCtx, operation, fn, classifyBackendError)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func buildMultipart(filename string, data []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		uploadField, quoteEscaper.Replace(filepath.Base(filename))))
	header.Set("Content-Type", mimetype.Detect(data).String())

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}
