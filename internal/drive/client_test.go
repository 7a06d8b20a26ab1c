package drive

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// newFakeDriveClient starts a fake Drive API and returns a Client wired to it.
func newFakeDriveClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	svc, err := drive.NewService(context.Background(),
		option.WithoutAuthentication(),
		option.WithEndpoint(ts.URL),
	)
	require.NoError(t, err)

	return NewClientFromService(svc, nil)
}

func TestListPDFs(t *testing.T) {
	t.Run("returns pdf entries and sends the mime filter", func(t *testing.T) {
		var gotQuery string
		client := newFakeDriveClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query().Get("q")
			json.NewEncoder(w).Encode(map[string]any{
				"files": []map[string]string{
					{"id": "f1", "name": "solar-policy.pdf"},
					{"id": "f2", "name": "tariffs.pdf"},
				},
			})
		}))

		files, err := client.ListPDFs(context.Background(), "folder-1")
		require.NoError(t, err)

		require.Len(t, files, 2)
		assert.Equal(t, File{ID: "f1", Name: "solar-policy.pdf"}, files[0])
		assert.Equal(t, File{ID: "f2", Name: "tariffs.pdf"}, files[1])

		assert.Contains(t, gotQuery, "'folder-1' in parents")
		assert.Contains(t, gotQuery, "mimeType='application/pdf'")
		assert.Contains(t, gotQuery, "trashed=false")
	})

	t.Run("follows pagination", func(t *testing.T) {
		client := newFakeDriveClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("pageToken") == "" {
				json.NewEncoder(w).Encode(map[string]any{
					"files":         []map[string]string{{"id": "f1", "name": "a.pdf"}},
					"nextPageToken": "page2",
				})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"files": []map[string]string{{"id": "f2", "name": "b.pdf"}},
			})
		}))

		files, err := client.ListPDFs(context.Background(), "folder-1")
		require.NoError(t, err)
		require.Len(t, files, 2)
		assert.Equal(t, "f2", files[1].ID)
	})

	t.Run("empty folder yields empty slice", func(t *testing.T) {
		client := newFakeDriveClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"files": []map[string]string{}})
		}))

		files, err := client.ListPDFs(context.Background(), "folder-1")
		require.NoError(t, err)
		assert.Empty(t, files)
	})

	t.Run("maps 404 to ErrNotFound", func(t *testing.T) {
		client := newFakeDriveClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":{"code":404,"message":"folder not found"}}`, http.StatusNotFound)
		}))

		_, err := client.ListPDFs(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("maps 403 to ErrAuthentication", func(t *testing.T) {
		client := newFakeDriveClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":{"code":403,"message":"forbidden"}}`, http.StatusForbidden)
		}))

		_, err := client.ListPDFs(context.Background(), "folder-1")
		assert.ErrorIs(t, err, ErrAuthentication)
	})

	t.Run("rejects empty folder id", func(t *testing.T) {
		client := newFakeDriveClient(t, http.NewServeMux())

		_, err := client.ListPDFs(context.Background(), "")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestDownload(t *testing.T) {
	t.Run("writes an exact copy to dest", func(t *testing.T) {
		content := []byte("%PDF-1.4 fake body")
		client := newFakeDriveClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "media", r.URL.Query().Get("alt"))
			w.Write(content)
		}))

		dest := filepath.Join(t.TempDir(), "doc.pdf")
		require.NoError(t, client.Download(context.Background(), "f1", dest))

		got, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, content, got)
	})

	t.Run("maps 404 and leaves no file behind", func(t *testing.T) {
		client := newFakeDriveClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":{"code":404,"message":"no such file"}}`, http.StatusNotFound)
		}))

		dest := filepath.Join(t.TempDir(), "doc.pdf")
		err := client.Download(context.Background(), "gone", dest)
		assert.ErrorIs(t, err, ErrNotFound)

		_, statErr := os.Stat(dest)
		assert.True(t, os.IsNotExist(statErr))
	})
}

func TestNewClientRejectsGarbageCredentials(t *testing.T) {
	_, err := NewClient(context.Background(), []byte(`{"not":"a key"}`), nil)
	assert.ErrorIs(t, err, ErrAuthentication)
}
