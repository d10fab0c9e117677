// Package upload promotes queued files to stored references using the
// backend's two-phase authorize-then-put handshake.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/tbecker/braincli/internal/client"
	"github.com/tbecker/braincli/internal/models"
)

// API is the slice of the backend client the pipeline needs.
type API interface {
	AuthorizeUpload(ctx context.Context, req client.UploadAuthorizationRequest) (*client.UploadAuthorization, error)
	PutFile(ctx context.Context, authorizedURL, mimeType string, body io.Reader) error
}

// Policy carries the per-field constraints declared to the backend in
// phase one. The zero value means unconstrained.
type Policy struct {
	MaxSize          int64
	AllowedMimeTypes []string
}

// PolicyFor derives a Policy from a missing-field descriptor.
func PolicyFor(field models.MissingFieldDescriptor) Policy {
	return Policy{MaxSize: field.MaxSize, AllowedMimeTypes: field.AcceptedTypes}
}

// Pipeline uploads batches of pending files.
type Pipeline struct {
	api         API
	concurrency int
	logger      *slog.Logger
}

// New creates a pipeline. Concurrency defaults to 4.
func New(api API, concurrency int, logger *slog.Logger) *Pipeline {
	if concurrency <= 0 {
		concurrency = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{api: api, concurrency: concurrency, logger: logger}
}

// Upload promotes one file for one field.
func (p *Pipeline) Upload(ctx context.Context, fieldID string, file models.PendingFile, policy Policy) (*models.UploadedFileRef, error) {
	if policy.MaxSize > 0 && file.Size > policy.MaxSize {
		return nil, fmt.Errorf("file %q exceeds max size (%d > %d bytes)", file.Name, file.Size, policy.MaxSize)
	}

	auth, err := p.api.AuthorizeUpload(ctx, client.UploadAuthorizationRequest{
		FileName:         file.Name,
		MimeType:         file.MimeType,
		FieldID:          fieldID,
		MaxSize:          policy.MaxSize,
		AllowedMimeTypes: policy.AllowedMimeTypes,
	})
	if err != nil {
		return nil, fmt.Errorf("authorize upload of %q: %w", file.Name, err)
	}

	// Phase two declares the same MIME type the grant was issued for.
	if err := p.api.PutFile(ctx, auth.AuthorizedURL, file.MimeType, bytes.NewReader(file.Content)); err != nil {
		return nil, fmt.Errorf("upload %q: %w", file.Name, err)
	}

	return &models.UploadedFileRef{
		URL:        auth.FileURL,
		Name:       file.Name,
		StorageKey: auth.StorageKey,
		MimeType:   file.MimeType,
	}, nil
}

// uploadTask is one file's slot in a batch.
type uploadTask struct {
	fieldID string
	index   int
	file    models.PendingFile
}

// UploadAll uploads every queued file across all fields in parallel and
// waits for the whole batch. Any single failure fails the batch: the
// persistence step downstream assumes referential completeness, so
// partially uploaded batches are never returned. Completion order is
// irrelevant; only the join matters.
func (p *Pipeline) UploadAll(ctx context.Context, queues map[string][]models.PendingFile, policies map[string]Policy) (map[string][]models.UploadedFileRef, error) {
	var tasks []uploadTask
	refs := make(map[string][]models.UploadedFileRef, len(queues))
	for fieldID, files := range queues {
		if len(files) == 0 {
			continue
		}
		refs[fieldID] = make([]models.UploadedFileRef, len(files))
		for i, f := range files {
			tasks = append(tasks, uploadTask{fieldID: fieldID, index: i, file: f})
		}
	}
	if len(tasks) == 0 {
		return map[string][]models.UploadedFileRef{}, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	sem := make(chan struct{}, p.concurrency)

	for _, task := range tasks {
		wg.Add(1)
		sem <- struct{}{}
		go func(task uploadTask) {
			defer wg.Done()
			defer func() { <-sem }()

			ref, err := p.Upload(ctx, task.fieldID, task.file, policies[task.fieldID])
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
					cancel()
				}
				mu.Unlock()
				p.logger.Error("upload failed", "field", task.fieldID, "file", task.file.Name, "error", err)
				return
			}
			// Each task writes its own slot; no shared state.
			refs[task.fieldID][task.index] = *ref
		}(task)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	p.logger.Info("upload batch settled", "files", len(tasks), "fields", len(refs))
	return refs, nil
}
