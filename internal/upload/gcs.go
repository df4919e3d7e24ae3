package upload

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/storage/v1"
)

// GCS writes objects to a Cloud Storage bucket readable by the public.
type GCS struct {
	svc    *storage.Service
	bucket string
}

// NewGCS returns a GCS backend. Credentials come from opts or the
// environment's application default credentials.
func NewGCS(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCS, error) {
	svc, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("upload.NewGCS: %w", err)
	}
	return &GCS{svc: svc, bucket: bucket}, nil
}

func (g *GCS) Put(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	obj := &storage.Object{Name: name, ContentType: contentType}

	_, err := g.svc.Objects.Insert(g.bucket, obj).
		Media(r, googleapi.ContentType(contentType)).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("upload.GCS.Put: %w", err)
	}

	u := url.URL{Scheme: "https", Host: "storage.googleapis.com", Path: "/" + g.bucket + "/" + name}
	return u.String(), nil
}
