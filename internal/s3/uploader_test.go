package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	b, _ := io.ReadAll(in.Body)
	f.body = string(b)
	return &s3.PutObjectOutput{}, f.err
}

func TestUploader_Upload(t *testing.T) {
	putter := &fakePutter{}
	u := &Uploader{Client: putter, Bucket: "logs", Region: "ap-southeast-1"}

	url, err := u.Upload(context.Background(), "a/b.json", "application/json", strings.NewReader(`[]`))
	require.NoError(t, err)

	assert.Equal(t, "https://logs.s3.ap-southeast-1.amazonaws.com/a/b.json", url)
	assert.Equal(t, "logs", aws.ToString(putter.input.Bucket))
	assert.Equal(t, "application/json", aws.ToString(putter.input.ContentType))
	assert.Equal(t, "[]", putter.body)
}

func TestUploader_PrefersCloudFront(t *testing.T) {
	u := &Uploader{Bucket: "logs", Region: "eu-west-1", CloudFrontDomain: "cdn.example.org"}

	assert.Equal(t, "https://cdn.example.org/x.json", u.URL("x.json"))
}

func TestUploader_WrapsError(t *testing.T) {
	cause := errors.New("access denied")
	u := &Uploader{Client: &fakePutter{err: cause}, Bucket: "logs", Region: "eu-west-1"}

	_, err := u.Upload(context.Background(), "x.json", "application/json", strings.NewReader("{}"))

	assert.ErrorIs(t, err, cause)
}
