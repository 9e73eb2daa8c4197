package publisher

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLinkedIn struct {
	srv      *httptest.Server
	uploaded []byte
	post     map[string]any
	steps    []string
	failPost bool
}

func newFakeLinkedIn(t *testing.T) *fakeLinkedIn {
	t.Helper()
	f := &fakeLinkedIn{}
	mux := http.NewServeMux()
	mux.HandleFunc("/img.png", func(w http.ResponseWriter, r *http.Request) {
		f.steps = append(f.steps, "download")
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("PNGDATA"))
	})
	mux.HandleFunc("/v2/assets", func(w http.ResponseWriter, r *http.Request) {
		f.steps = append(f.steps, "register")
		assert.Equal(t, "registerUpload", r.URL.Query().Get("action"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var body registerUploadReq
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "urn:li:person:abc", body.RegisterUploadRequest.Owner)
		_, _ = io.WriteString(w, `{"value":{"uploadMechanism":{"com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest":{"uploadUrl":"`+f.srv.URL+`/upload"}},"asset":"urn:li:digitalmediaAsset:A1"}}`)
	})
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		f.steps = append(f.steps, "upload")
		assert.Equal(t, http.MethodPut, r.Method)
		f.uploaded, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/v2/ugcPosts", func(w http.ResponseWriter, r *http.Request) {
		f.steps = append(f.steps, "post")
		if f.failPost {
			http.Error(w, `{"message":"duplicate"}`, http.StatusUnprocessableEntity)
			return
		}
		assert.Equal(t, "2.0.0", r.Header.Get("X-Restli-Protocol-Version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&f.post))
		w.Header().Set("X-RestLi-Id", "urn:li:share:99")
		w.WriteHeader(http.StatusCreated)
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func newTestPublisher(t *testing.T, f *fakeLinkedIn) *LinkedIn {
	t.Helper()
	p, err := New(Config{AccessToken: "tok", AuthorURN: "urn:li:person:abc", BaseURL: f.srv.URL}, f.srv.Client(), nil)
	require.NoError(t, err)
	return p
}

func TestPublishWithRemoteImage(t *testing.T) {
	f := newFakeLinkedIn(t)
	p := newTestPublisher(t, f)

	id, err := p.Publish(context.Background(), "Hello LinkedIn", f.srv.URL+"/img.png")
	require.NoError(t, err)
	require.Equal(t, "urn:li:share:99", id)
	require.Equal(t, []string{"download", "register", "upload", "post"}, f.steps)
	require.Equal(t, []byte("PNGDATA"), f.uploaded)

	share := f.post["specificContent"].(map[string]any)["com.linkedin.ugc.ShareContent"].(map[string]any)
	require.Equal(t, "IMAGE", share["shareMediaCategory"])
	require.Equal(t, "Hello LinkedIn", share["shareCommentary"].(map[string]any)["text"])
	media := share["media"].([]any)[0].(map[string]any)
	require.Equal(t, "urn:li:digitalmediaAsset:A1", media["media"])
}

func TestPublishWithLocalImage(t *testing.T) {
	f := newFakeLinkedIn(t)
	p := newTestPublisher(t, f)

	path := filepath.Join(t.TempDir(), "cover.jpg")
	require.NoError(t, os.WriteFile(path, []byte("JPEGDATA"), 0o600))

	_, err := p.Publish(context.Background(), "Local", path)
	require.NoError(t, err)
	require.Equal(t, []string{"register", "upload", "post"}, f.steps)
	require.Equal(t, []byte("JPEGDATA"), f.uploaded)
}

func TestPublishTextOnly(t *testing.T) {
	f := newFakeLinkedIn(t)
	p := newTestPublisher(t, f)

	_, err := p.Publish(context.Background(), "Just words", "")
	require.NoError(t, err)
	require.Equal(t, []string{"post"}, f.steps)
}

func TestPublishSurfacesAPIError(t *testing.T) {
	f := newFakeLinkedIn(t)
	f.failPost = true
	p := newTestPublisher(t, f)

	_, err := p.Publish(context.Background(), "x", "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "create post", apiErr.Step)
	require.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{AccessToken: "t"}, nil, nil)
	require.Error(t, err)
	_, err = New(Config{AccessToken: "t", AuthorURN: "person:1"}, nil, nil)
	require.Error(t, err)
	_, err = New(Config{AccessToken: "t", AuthorURN: "urn:li:organization:1"}, nil, nil)
	require.NoError(t, err)
}

func TestPublishRequiresText(t *testing.T) {
	f := newFakeLinkedIn(t)
	_, err := newTestPublisher(t, f).Publish(context.Background(), "  ", "")
	require.Error(t, err)
	require.Empty(t, f.steps)
}
