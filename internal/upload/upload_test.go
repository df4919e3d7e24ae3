package upload_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/pkordes/tabinico/internal/domain"
	"github.com/pkordes/tabinico/internal/upload"
)

var (
	pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")
	pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
)

// mockBackend records calls; putFn overrides the default success response.
type mockBackend struct {
	mu    sync.Mutex
	calls []string
	types []string
	putFn func(ctx context.Context) (string, error)
}

var _ upload.Backend = (*mockBackend)(nil)

func (m *mockBackend) Put(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, name)
	m.types = append(m.types, contentType)
	m.mu.Unlock()
	if m.putFn != nil {
		return m.putFn(ctx)
	}
	_, _ = io.Copy(io.Discard, r)
	return "https://files.example/" + name, nil
}

func TestUpload_PDF(t *testing.T) {
	b := &mockBackend{}
	svc := upload.NewService(b, 0, 0)

	att, err := svc.Upload(context.Background(), "ticket.pdf", bytes.NewReader(pdfBytes))

	require.NoError(t, err)
	assert.Equal(t, domain.AttachmentPDF, att.Type)
	assert.Equal(t, "ticket.pdf", att.Name)
	assert.NotEmpty(t, att.ID)
	require.Len(t, b.calls, 1)
	assert.Regexp(t, `^attachments/\d+_ticket\.pdf$`, b.calls[0])
	assert.Equal(t, "https://files.example/"+b.calls[0], att.URL)
	assert.Equal(t, "application/pdf", b.types[0])
}

func TestUpload_ImageFromContentNotExtension(t *testing.T) {
	b := &mockBackend{}

	att, err := upload.NewService(b, 0, 0).Upload(context.Background(), "scan.pdf", bytes.NewReader(pngBytes))

	require.NoError(t, err)
	assert.Equal(t, domain.AttachmentImage, att.Type)
}

func TestUpload_TooLarge(t *testing.T) {
	b := &mockBackend{}
	svc := upload.NewService(b, 10, 0)

	_, err := svc.Upload(context.Background(), "big.png", bytes.NewReader(make([]byte, 11)))

	assert.ErrorIs(t, err, domain.ErrUpload)
	assert.ErrorIs(t, err, upload.ErrTooLarge)
	assert.Empty(t, b.calls, "backend must not be called for oversized files")
	assert.EqualValues(t, 10, svc.MaxBytes())
}

func TestUpload_ExactlyAtLimit(t *testing.T) {
	_, err := upload.NewService(&mockBackend{}, 10, 0).Upload(context.Background(), "a.bin", bytes.NewReader(make([]byte, 10)))
	assert.NoError(t, err)
}

func TestUpload_TimeoutAbandonsBackend(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	b := &mockBackend{putFn: func(context.Context) (string, error) {
		<-release // ignores cancellation
		return "late", nil
	}}

	start := time.Now()
	_, err := upload.NewService(b, 0, 50*time.Millisecond).Upload(context.Background(), "a.png", bytes.NewReader(pngBytes))

	assert.ErrorIs(t, err, domain.ErrUpload)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestUpload_BackendError(t *testing.T) {
	b := &mockBackend{putFn: func(context.Context) (string, error) { return "", assert.AnError }}

	_, err := upload.NewService(b, 0, 0).Upload(context.Background(), "a.png", bytes.NewReader(pngBytes))

	assert.ErrorIs(t, err, domain.ErrUpload)
}

func TestUpload_StripsDirectories(t *testing.T) {
	b := &mockBackend{}

	att, err := upload.NewService(b, 0, 0).Upload(context.Background(), `..\..\etc/passwd`, strings.NewReader("x"))

	require.NoError(t, err)
	assert.Equal(t, "passwd", att.Name)
	assert.NotContains(t, b.calls[0], "..")
}

func TestDisk_Put(t *testing.T) {
	dir := t.TempDir()
	d := upload.Disk{Dir: dir, BaseURL: "http://localhost:8080/files"}

	url, err := d.Put(context.Background(), "attachments/1_a b.png", "image/png", bytes.NewReader(pngBytes))

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/files/attachments/1_a%20b.png", url)
	got, err := os.ReadFile(filepath.Join(dir, "attachments", "1_a b.png"))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, got)
}

func TestGCS_Put(t *testing.T) {
	var gotMethod, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bucket":"tabinico","name":"attachments/1_a.pdf"}`))
	}))
	defer srv.Close()

	g, err := upload.NewGCS(context.Background(), "tabinico",
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)

	url, err := g.Put(context.Background(), "attachments/1_a.pdf", "application/pdf", bytes.NewReader(pdfBytes))

	require.NoError(t, err)
	assert.Equal(t, "https://storage.googleapis.com/tabinico/attachments/1_a.pdf", url)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Contains(t, gotBody, "%PDF-1.4")
}
