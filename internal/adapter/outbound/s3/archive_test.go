package s3

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thumbfast/server/internal/module/history"
)

type fakePutter struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	failKey string
}

func newFakePutter() *fakePutter {
	return &fakePutter{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	key := aws.ToString(in.Key)
	if key == f.failKey {
		return nil, errors.New("access denied")
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	f.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func TestArchive_Store(t *testing.T) {
	putter := newFakePutter()
	a := newArchive(putter, "bucket", "/generations/", nil)

	err := a.Store(context.Background(), &history.Entry{
		ID: "abc",
		Images: []history.Image{
			{Data: []byte("one"), MediaType: "image/png"},
			{Data: []byte("two"), MediaType: "image/jpeg"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []byte("one"), putter.objects["generations/abc/0.png"])
	assert.Equal(t, []byte("two"), putter.objects["generations/abc/1.jpg"])
	assert.Equal(t, "image/jpeg", putter.types["generations/abc/1.jpg"])
}

func TestArchive_Store_ContinuesAfterFailure(t *testing.T) {
	putter := newFakePutter()
	putter.failKey = "abc/0.webp"
	a := newArchive(putter, "bucket", "", nil)

	err := a.Store(context.Background(), &history.Entry{
		ID: "abc",
		Images: []history.Image{
			{Data: []byte("one"), MediaType: "image/webp"},
			{Data: []byte("two"), MediaType: "image/webp"},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
	assert.Contains(t, putter.objects, "abc/1.webp")
}

func TestNewArchive_RequiresBucket(t *testing.T) {
	_, err := NewArchive(context.Background(), &Config{}, nil)
	assert.Error(t, err)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".png", extension("image/png"))
	assert.Equal(t, ".jpg", extension("IMAGE/JPEG"))
	assert.Equal(t, ".bin", extension("application/x-unknown-thing"))
}
