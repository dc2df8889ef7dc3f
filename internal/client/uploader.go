package client

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/scribeflow/scribeflow/internal/models"
)

// allowedExtensions mirrors the server's upload allow-list so obviously
// wrong files fail before any bytes leave the machine.
var allowedExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".wav":  true,
	".ogg":  true,
	".flac": true,
	".webm": true,
}

// AllowedExtension reports whether a path carries a supported audio suffix.
// Only the suffix is checked; content validation is the server's job.
func AllowedExtension(path string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(path))]
}

// UploadOutcome is the per-file result of a batch upload.
type UploadOutcome struct {
	Path string
	Job  *models.Job
	Err  error
}

// Uploader submits a batch of files strictly one after another. A failed
// file is reported and skipped; the files already submitted stay
// submitted.
type Uploader struct {
	client *Client
	opts   UploadOptions

	mu        sync.Mutex
	completed int
	total     int
}

// NewUploader creates an uploader applying the same options to every file.
func NewUploader(c *Client, opts UploadOptions) *Uploader {
	return &Uploader{client: c, opts: opts}
}

// Progress returns the completed fraction of the current batch, in [0, 1].
func (u *Uploader) Progress() float64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.total == 0 {
		return 0
	}
	return float64(u.completed) / float64(u.total)
}

// Run uploads the given files sequentially and returns one outcome per
// file, in input order. Context cancellation stops the batch; files not
// yet attempted get a context error outcome.
func (u *Uploader) Run(ctx context.Context, paths []string) []UploadOutcome {
	u.mu.Lock()
	u.completed = 0
	u.total = len(paths)
	u.mu.Unlock()

	outcomes := make([]UploadOutcome, 0, len(paths))
	for _, path := range paths {
		outcome := UploadOutcome{Path: path}

		switch {
		case ctx.Err() != nil:
			outcome.Err = ctx.Err()
		case !AllowedExtension(path):
			outcome.Err = fmt.Errorf("unsupported file type %q", filepath.Ext(path))
		default:
			outcome.Job, outcome.Err = u.client.Upload(ctx, path, u.opts)
		}

		outcomes = append(outcomes, outcome)

		u.mu.Lock()
		u.completed++
		u.mu.Unlock()
	}

	return outcomes
}
