// Package upload stores schedule attachments and receipt photos and returns
// a public URL for them.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/pkordes/tabinico/internal/domain"
)

// DefaultMaxBytes is the largest accepted file: 5 MiB.
const DefaultMaxBytes = 5 << 20

// DefaultTimeout bounds one backend write.
const DefaultTimeout = 60 * time.Second

// ErrTooLarge is wrapped, together with domain.ErrUpload, when a file
// exceeds the size limit.
var ErrTooLarge = errors.New("file too large")

// Backend writes an object and returns its public URL.
type Backend interface {
	Put(ctx context.Context, name, contentType string, r io.Reader) (string, error)
}

// Service validates files and hands them to a Backend.
type Service struct {
	backend  Backend
	maxBytes int64
	timeout  time.Duration
	now      func() time.Time
}

// NewService returns a Service. Zero limits fall back to the defaults.
func NewService(backend Backend, maxBytes int64, timeout time.Duration) *Service {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{backend: backend, maxBytes: maxBytes, timeout: timeout, now: time.Now}
}

// MaxBytes returns the size limit.
func (s *Service) MaxBytes() int64 { return s.maxBytes }

// Upload stores the file and returns an attachment pointing at it.
// Oversized files, backend errors and timeouts all wrap domain.ErrUpload.
// A backend that outlives the timeout is abandoned, not waited for.
func (s *Service) Upload(ctx context.Context, filename string, r io.Reader) (domain.Attachment, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return domain.Attachment{}, fmt.Errorf("%w: read: %v", domain.ErrUpload, err)
	}
	if int64(len(data)) > s.maxBytes {
		return domain.Attachment{}, fmt.Errorf("%w: %w: limit is %d bytes", domain.ErrUpload, ErrTooLarge, s.maxBytes)
	}

	name := cleanName(filename)
	mime := mimetype.Detect(data)
	objectName := fmt.Sprintf("attachments/%d_%s", s.now().UnixMilli(), name)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type result struct {
		url string
		err error
	}
	done := make(chan result, 1)
	go func() {
		url, err := s.backend.Put(ctx, objectName, mime.String(), bytes.NewReader(data))
		done <- result{url: url, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			if errors.Is(res.err, context.DeadlineExceeded) {
				return domain.Attachment{}, fmt.Errorf("%w: timed out after %s", domain.ErrUpload, s.timeout)
			}
			return domain.Attachment{}, fmt.Errorf("%w: %v", domain.ErrUpload, res.err)
		}
		return domain.Attachment{
			ID:   domain.NewID(),
			Name: name,
			URL:  res.url,
			Type: attachmentType(mime.String()),
		}, nil
	case <-ctx.Done():
		return domain.Attachment{}, fmt.Errorf("%w: timed out after %s", domain.ErrUpload, s.timeout)
	}
}

// attachmentType tags PDFs as "pdf" and everything else as "image".
func attachmentType(mime string) string {
	if strings.Contains(mime, "pdf") {
		return domain.AttachmentPDF
	}
	return domain.AttachmentImage
}

// cleanName strips any directory part so names cannot escape the
// attachments prefix.
func cleanName(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == ".." || name == "" {
		return "file"
	}
	return name
}
