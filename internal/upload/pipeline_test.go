package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbecker/braincli/internal/client"
	"github.com/tbecker/braincli/internal/models"
)

// fakeAPI scripts the two upload phases.
type fakeAPI struct {
	mu         sync.Mutex
	authorized []client.UploadAuthorizationRequest
	putURLs    []string
	putCalls   atomic.Int32

	failAuthorizeFor string // file name whose phase 1 is rejected
	failPutFor       string // file name whose phase 2 fails
}

func (f *fakeAPI) AuthorizeUpload(_ context.Context, req client.UploadAuthorizationRequest) (*client.UploadAuthorization, error) {
	f.mu.Lock()
	f.authorized = append(f.authorized, req)
	f.mu.Unlock()

	if req.FileName == f.failAuthorizeFor {
		return nil, &client.APIError{StatusCode: 422, Message: "type not allowed"}
	}
	return &client.UploadAuthorization{
		AuthorizedURL: "http://storage.local/put/" + req.FileName,
		FileURL:       "http://cdn.local/" + req.FileName,
		StorageKey:    "tenants/t1/" + req.FileName,
	}, nil
}

func (f *fakeAPI) PutFile(_ context.Context, authorizedURL, _ string, _ io.Reader) error {
	f.putCalls.Add(1)
	f.mu.Lock()
	f.putURLs = append(f.putURLs, authorizedURL)
	f.mu.Unlock()

	if f.failPutFor != "" && authorizedURL == "http://storage.local/put/"+f.failPutFor {
		return errors.New("connection reset")
	}
	return nil
}

func pending(name string) models.PendingFile {
	return models.PendingFile{Name: name, MimeType: "image/jpeg", Size: 10, Content: []byte("0123456789")}
}

func TestUpload_TwoPhases(t *testing.T) {
	api := &fakeAPI{}
	p := New(api, 2, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ref, err := p.Upload(context.Background(), "team-photo", pending("team.jpg"), Policy{
		MaxSize:          1 << 20,
		AllowedMimeTypes: []string{"image/jpeg"},
	})

	require.NoError(t, err)
	assert.Equal(t, "http://cdn.local/team.jpg", ref.URL)
	assert.Equal(t, "tenants/t1/team.jpg", ref.StorageKey)
	assert.Equal(t, "image/jpeg", ref.MimeType)

	require.Len(t, api.authorized, 1)
	assert.Equal(t, "team-photo", api.authorized[0].FieldID)
	assert.Equal(t, int64(1<<20), api.authorized[0].MaxSize)
	assert.Equal(t, int32(1), api.putCalls.Load())
}

func TestUpload_RejectsOversizedBeforePhaseOne(t *testing.T) {
	api := &fakeAPI{}
	p := New(api, 2, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := p.Upload(context.Background(), "f", pending("big.jpg"), Policy{MaxSize: 5})
	require.Error(t, err)
	assert.Empty(t, api.authorized, "no authorization request for an oversized file")
}

func TestUploadAll_JoinsWholeBatch(t *testing.T) {
	api := &fakeAPI{}
	p := New(api, 2, slog.New(slog.NewTextHandler(io.Discard, nil)))

	queues := map[string][]models.PendingFile{
		"team-photo": {pending("a.jpg"), pending("b.jpg")},
		"menu":       {pending("menu.pdf")},
	}

	refs, err := p.UploadAll(context.Background(), queues, nil)
	require.NoError(t, err)
	require.Len(t, refs["team-photo"], 2)
	require.Len(t, refs["menu"], 1)

	// Queue order is preserved per field regardless of completion order.
	assert.Equal(t, "a.jpg", refs["team-photo"][0].Name)
	assert.Equal(t, "b.jpg", refs["team-photo"][1].Name)
	assert.Equal(t, int32(3), api.putCalls.Load())
}

func TestUploadAll_AnyFailureFailsBatch(t *testing.T) {
	tests := []struct {
		name string
		api  *fakeAPI
	}{
		{"phase one rejection", &fakeAPI{failAuthorizeFor: "b.jpg"}},
		{"phase two transport error", &fakeAPI{failPutFor: "b.jpg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.api, 1, slog.New(slog.NewTextHandler(io.Discard, nil)))

			queues := map[string][]models.PendingFile{
				"photos": {pending("a.jpg"), pending("b.jpg"), pending("c.jpg")},
			}

			refs, err := p.UploadAll(context.Background(), queues, nil)
			require.Error(t, err)
			assert.Nil(t, refs, "a failed batch must not expose partial references")
		})
	}
}

func TestUploadAll_EmptyQueues(t *testing.T) {
	p := New(&fakeAPI{}, 2, slog.New(slog.NewTextHandler(io.Discard, nil)))

	refs, err := p.UploadAll(context.Background(), map[string][]models.PendingFile{"f": {}}, nil)
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestUploadAll_ManyFilesBoundedConcurrency(t *testing.T) {
	api := &fakeAPI{}
	p := New(api, 3, slog.New(slog.NewTextHandler(io.Discard, nil)))

	queues := map[string][]models.PendingFile{}
	for i := 0; i < 4; i++ {
		field := fmt.Sprintf("field-%d", i)
		for j := 0; j < 5; j++ {
			queues[field] = append(queues[field], pending(fmt.Sprintf("%s-%d.jpg", field, j)))
		}
	}

	refs, err := p.UploadAll(context.Background(), queues, nil)
	require.NoError(t, err)

	total := 0
	for _, fieldRefs := range refs {
		total += len(fieldRefs)
	}
	assert.Equal(t, 20, total)
	assert.Equal(t, int32(20), api.putCalls.Load())
}
