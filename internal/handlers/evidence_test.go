package handlers_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/sosrelay/internal/app"
	"github.com/charlesng35/sosrelay/internal/evidence"
	"github.com/charlesng35/sosrelay/internal/handlers/testutil"
)

type memoryObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: map[string][]byte{}}
}

func (m *memoryObjects) BucketExists(context.Context, string) (bool, error) {
	return true, nil
}

func (m *memoryObjects) MakeBucket(context.Context, string, minio.MakeBucketOptions) error {
	return nil
}

func (m *memoryObjects) PutObject(_ context.Context, bucket, key string, reader io.Reader, size int64, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[bucket+"/"+key] = data
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: size}, nil
}

func (m *memoryObjects) RemoveObject(_ context.Context, bucket, key string, _ minio.RemoveObjectOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, bucket+"/"+key)
	return nil
}

func (m *memoryObjects) has(bucket, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[bucket+"/"+key]
	return ok
}

func uploadRequest(t *testing.T, kind string, content []byte, token string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("type", kind))
	part, err := writer.CreateFormFile("file", "capture.bin")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, "/api/evidence", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestEvidenceHandlerUploadAndDelete(t *testing.T) {
	objects := newMemoryObjects()
	env := testutil.NewEnv(t, testutil.WithEvidenceStore(evidence.NewWithClient(objects, "https://files.example.com")))
	token := env.Token("user-1")

	rec := env.Do(uploadRequest(t, "photo", []byte("jpeg-bytes"), token))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var file evidence.File
	testutil.DecodeInto(t, testutil.DecodeResponse(t, rec).Data, &file)
	require.True(t, strings.HasPrefix(file.Path, "user-1/"))
	require.True(t, strings.HasSuffix(file.Path, ".jpg"))
	require.Equal(t, "https://files.example.com/emergency-photos/"+file.Path, file.URL)
	require.True(t, objects.has("emergency-photos", file.Path))

	rec = env.Request(http.MethodDelete, "/api/evidence", map[string]string{"type": "photo", "path": file.Path}, env.Token("user-2"))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.True(t, objects.has("emergency-photos", file.Path))

	rec = env.Request(http.MethodDelete, "/api/evidence", map[string]string{"type": "photo", "path": file.Path}, token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, objects.has("emergency-photos", file.Path))
}

func TestEvidenceHandlerRejectsBadUploads(t *testing.T) {
	env := testutil.NewEnv(t,
		testutil.WithEvidenceStore(evidence.NewWithClient(newMemoryObjects(), "https://files.example.com")),
		testutil.WithConfig(func(cfg *app.Config) { cfg.Storage.MaxUploadBytes = 16 }),
	)
	token := env.Token("user-1")

	rec := env.Do(uploadRequest(t, "document", []byte("data"), token))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.Do(uploadRequest(t, "video", bytes.Repeat([]byte("x"), 64), token))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	require.Equal(t, "PAYLOAD_TOO_LARGE", testutil.DecodeResponse(t, rec).Error.Code)

	rec = env.Request(http.MethodPost, "/api/evidence", map[string]string{"type": "photo"}, token)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvidenceHandlerDisabledStore(t *testing.T) {
	env := testutil.NewEnv(t)
	token := env.Token("user-1")

	rec := env.Do(uploadRequest(t, "photo", []byte("data"), token))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "FEATURE_DISABLED", testutil.DecodeResponse(t, rec).Error.Code)

	rec = env.Request(http.MethodDelete, "/api/evidence", map[string]string{"type": "photo", "path": "user-1/1.jpg"}, token)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
