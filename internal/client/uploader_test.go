package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribeflow/scribeflow/internal/models"
)

func writeAudioFiles(t *testing.T, names ...string) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, 0, len(names))
	for _, name := range names {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("audio"), 0o644))
		paths = append(paths, p)
	}
	return paths
}

func TestUploaderSequentialOrder(t *testing.T) {
	var mu sync.Mutex
	var received []string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, header, err := r.FormFile("file")
		require.NoError(t, err)

		mu.Lock()
		received = append(received, header.Filename)
		mu.Unlock()

		jsonHandler(t, http.StatusCreated, testJob(header.Filename, models.JobStatusDraft))(w, r)
	}))
	defer ts.Close()

	paths := writeAudioFiles(t, "one.mp3", "two.wav", "three.flac")
	u := NewUploader(New(ts.URL), UploadOptions{})

	outcomes := u.Run(context.Background(), paths)
	require.Len(t, outcomes, 3)
	for _, outcome := range outcomes {
		assert.NoError(t, outcome.Err)
		require.NotNil(t, outcome.Job)
	}

	assert.Equal(t, []string{"one.mp3", "two.wav", "three.flac"}, received)
	assert.Equal(t, 1.0, u.Progress())
}

func TestUploaderRejectsBadSuffixLocally(t *testing.T) {
	requests := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		jsonHandler(t, http.StatusCreated, testJob("ok", models.JobStatusDraft))(w, r)
	}))
	defer ts.Close()

	paths := writeAudioFiles(t, "notes.pdf", "talk.mp3")
	outcomes := NewUploader(New(ts.URL), UploadOptions{}).Run(context.Background(), paths)

	require.Len(t, outcomes, 2)
	require.Error(t, outcomes[0].Err)
	assert.Contains(t, outcomes[0].Err.Error(), "unsupported file type")
	assert.NoError(t, outcomes[1].Err)
	// The rejected file never reached the server.
	assert.Equal(t, 1, requests)
}

func TestUploaderPartialFailureKeepsGoing(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			jsonHandler(t, http.StatusInternalServerError, map[string]string{"error": "disk full"})(w, r)
			return
		}
		jsonHandler(t, http.StatusCreated, testJob("ok", models.JobStatusDraft))(w, r)
	}))
	defer ts.Close()

	paths := writeAudioFiles(t, "a.mp3", "b.mp3", "c.mp3")
	outcomes := NewUploader(New(ts.URL), UploadOptions{}).Run(context.Background(), paths)

	require.Len(t, outcomes, 3)
	assert.NoError(t, outcomes[0].Err)
	require.Error(t, outcomes[1].Err)
	assert.Contains(t, outcomes[1].Err.Error(), "disk full")
	// No rollback: the third file is still submitted.
	assert.NoError(t, outcomes[2].Err)
	assert.Equal(t, 3, calls)
}

func TestAllowedExtension(t *testing.T) {
	assert.True(t, AllowedExtension("x.mp3"))
	assert.True(t, AllowedExtension("X.FLAC"))
	assert.True(t, AllowedExtension("/some/dir/rec.webm"))
	assert.False(t, AllowedExtension("x.pdf"))
	assert.False(t, AllowedExtension("noext"))
}
