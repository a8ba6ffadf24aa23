package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalFileStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	store := NewLocalFileStorage(base, zap.NewNop())

	content := []byte("%PDF-1.4 fake")
	require.NoError(t, store.Save(ctx, "claims/7/a.pdf", content))

	assert.True(t, store.Exists(ctx, "claims/7/a.pdf"))
	assert.Equal(t, filepath.Join(base, "claims", "7", "a.pdf"), store.GetFullPath("claims/7/a.pdf"))

	got, err := store.Read(ctx, "claims/7/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Join(base, "claims", "7"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, store.Delete(ctx, "claims/7/a.pdf"))
	assert.False(t, store.Exists(ctx, "claims/7/a.pdf"))
	require.NoError(t, store.Delete(ctx, "claims/7/a.pdf"))

	_, err = store.Read(ctx, "claims/7/a.pdf")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestLocalFileStorage_RejectsTraversal(t *testing.T) {
	ctx := context.Background()
	store := NewLocalFileStorage(t.TempDir(), zap.NewNop())

	assert.Error(t, store.Save(ctx, "../escape.txt", []byte("x")))
	_, err := store.Read(ctx, "../../etc/passwd")
	assert.Error(t, err)
	assert.False(t, store.Exists(ctx, "../escape.txt"))
	assert.Error(t, store.Delete(ctx, "../escape.txt"))
}

func TestLocalFileStorage_Overwrite(t *testing.T) {
	ctx := context.Background()
	store := NewLocalFileStorage(t.TempDir(), zap.NewNop())

	require.NoError(t, store.Save(ctx, "f.txt", []byte("first")))
	require.NoError(t, store.Save(ctx, "f.txt", []byte("second")))

	got, err := store.Read(ctx, "f.txt")
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = body
	f.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3FileStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	store := NewS3FileStorage(fake, S3Config{Bucket: "claims-bucket", Prefix: "/tpa/"}, zap.NewNop())

	content := []byte("%PDF-1.4\n%fake")
	require.NoError(t, store.Save(ctx, "claims/9/doc.pdf", content))

	assert.Contains(t, fake.objects, "claims-bucket/tpa/claims/9/doc.pdf")
	assert.Equal(t, "application/pdf", fake.types["claims-bucket/tpa/claims/9/doc.pdf"])
	assert.Equal(t, "s3://claims-bucket/tpa/claims/9/doc.pdf", store.GetFullPath("claims/9/doc.pdf"))
	assert.True(t, store.Exists(ctx, "claims/9/doc.pdf"))

	got, err := store.Read(ctx, "claims/9/doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	require.NoError(t, store.Delete(ctx, "claims/9/doc.pdf"))
	assert.False(t, store.Exists(ctx, "claims/9/doc.pdf"))

	_, err = store.Read(ctx, "claims/9/doc.pdf")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestS3FileStorage_Errors(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	store := NewS3FileStorage(fake, S3Config{Bucket: "b"}, zap.NewNop())

	assert.Error(t, store.Save(ctx, "../x", []byte("x")))
	assert.Error(t, store.Save(ctx, "", []byte("x")))
	assert.Empty(t, store.GetFullPath("../x"))

	fake.putErr = errors.New("throttled")
	err := store.Save(ctx, "claims/1/a.txt", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}
