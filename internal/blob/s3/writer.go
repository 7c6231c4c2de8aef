package s3blob

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Writer uploads objects to the client's bucket. Large files go through the
// SDK's multipart upload manager.
type Writer struct {
	client   *Client
	uploader *manager.Uploader
}

// NewWriter creates a Writer backed by the given Client.
func NewWriter(c *Client) *Writer {
	return &Writer{
		client:   c,
		uploader: manager.NewUploader(c.S3()),
	}
}

// UploadFile streams a local file to the given object key.
func (w *Writer) UploadFile(ctx context.Context, key, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("s3blob: open %s: %w", path, err)
	}
	defer f.Close()

	_, err = w.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.client.Bucket()),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("s3blob: upload %s: %w", key, err)
	}
	return nil
}
