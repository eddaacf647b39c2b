package persist

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/require"
)

type s3Object struct {
	body     []byte
	metadata map[string]string
}

// fakeS3 is an in-memory S3API.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]s3Object
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string]s3Object{}}
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
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = s3Object{body: body, metadata: in.Metadata}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("The specified key does not exist.")}
	}
	return &s3.GetObjectOutput{
		Body:     io.NopCloser(bytes.NewReader(obj.body)),
		Metadata: obj.metadata,
	}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3StoreRoundTrip(t *testing.T) {
	client := newFakeS3()
	clock := newFakeClock()
	store := NewS3Store(client, "bucket", WithS3Prefix("p/"), WithS3Clock(clock.Now))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "admin:users", []byte(`{"v":1}`), clock.Now().Add(time.Hour)))
	require.Contains(t, client.objects, "bucket/p/admin:users.json")

	data, err := store.Load(ctx, "admin:users")
	require.NoError(t, err)
	require.Equal(t, `{"v":1}`, string(data))

	data, err = store.Load(ctx, "missing")
	require.NoError(t, err)
	require.Nil(t, data)

	require.NoError(t, store.Delete(ctx, "admin:users"))
	data, err = store.Load(ctx, "admin:users")
	require.NoError(t, err)
	require.Nil(t, data)
}

func TestS3StoreExpiry(t *testing.T) {
	clock := newFakeClock()
	store := NewS3Store(newFakeS3(), "bucket", WithS3Clock(clock.Now))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "k", []byte("v"), clock.Now().Add(time.Minute)))
	clock.Advance(time.Minute)

	data, err := store.Load(ctx, "k")
	require.NoError(t, err)
	require.Nil(t, data, "expired object must not load")
}

func TestS3StoreErrors(t *testing.T) {
	client := newFakeS3()
	client.putErr = errors.New("AccessDenied")
	store := NewS3Store(client, "bucket")

	err := store.Save(context.Background(), "k", []byte("v"), time.Now().Add(time.Hour))
	require.Error(t, err)
	require.Contains(t, err.Error(), "AccessDenied")

	store.Close()
	_, err = store.Load(context.Background(), "k")
	require.ErrorIs(t, err, ErrStoreClosed)
}

func TestIsS3NotFound(t *testing.T) {
	require.True(t, isS3NotFound(&types.NoSuchKey{}))
	require.True(t, isS3NotFound(&types.NotFound{}))
	require.True(t, isS3NotFound(errors.New("api error NoSuchKey: gone")))
	require.False(t, isS3NotFound(errors.New("throttled")))
}
