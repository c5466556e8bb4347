package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrUploadFailed is returned when any file of a batch fails to upload. The
// message is shown to the user as-is.
var ErrUploadFailed = errors.New("Failed to upload files")

// File is a local file selected for upload.
type File struct {
	Name     string
	MimeType string
	Size     int64
	Body     io.Reader
}

// UploadFunc stores one file and returns the resulting attachment.
type UploadFunc func(ctx context.Context, f File) (Attachment, error)

// Uploader uploads batches of files in parallel.
type Uploader struct {
	upload   UploadFunc
	releaser Releaser
	limit    int

	// MaxSize rejects larger files before any upload starts; 0 disables it.
	MaxSize int64
	// AllowedTypes restricts MIME types; empty allows everything.
	AllowedTypes []string
}

func NewUploader(upload UploadFunc, releaser Releaser, limit int) *Uploader {
	if limit <= 0 {
		limit = 1
	}
	return &Uploader{upload: upload, releaser: releaser, limit: limit}
}

func (u *Uploader) check(f File) error {
	if u.MaxSize > 0 && f.Size > u.MaxSize {
		return fmt.Errorf("%s exceeds the maximum size of %d bytes", f.Name, u.MaxSize)
	}
	if len(u.AllowedTypes) > 0 && !slices.Contains(u.AllowedTypes, f.MimeType) {
		return fmt.Errorf("%s has unsupported type %q", f.Name, f.MimeType)
	}
	return nil
}

// UploadAll uploads files with at most limit uploads in flight. Results keep
// the order of files. If any upload fails or ctx is cancelled the pending
// uploads are aborted, the ones that already finished are released, and the
// returned error wraps ErrUploadFailed.
func (u *Uploader) UploadAll(ctx context.Context, files []File) ([]Attachment, error) {
	for _, f := range files {
		if err := u.check(f); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
		}
	}

	results := make([]Attachment, len(files))
	done := make([]bool, len(files))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.limit)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			att, err := u.upload(gctx, f)
			if err != nil {
				return fmt.Errorf("upload %s: %w", f.Name, err)
			}
			mu.Lock()
			results[i] = att
			done[i] = true
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		log.Printf("Upload batch failed: %v", err)
		for i, ok := range done {
			if ok {
				s := &staged{Attachment: results[i]}
				s.release(u.releaser)
			}
		}
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	return results, nil
}
