package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileFetcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pib.csv")
	require.NoError(t, os.WriteFile(path, []byte("Ano\n2020\n"), 0o644))

	r := NewRouter(nil, 0)
	data, err := r.Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Ano\n2020\n", string(data))

	data, err = r.Fetch(context.Background(), "file://"+path)
	require.NoError(t, err)
	assert.Equal(t, "Ano\n2020\n", string(data))

	_, err = r.Fetch(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path == "/ok.geojson" {
			_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[]}`))
			return
		}
		http.NotFound(w, req)
	}))
	defer srv.Close()

	r := NewRouter(srv.Client(), 0)
	data, err := r.Fetch(context.Background(), srv.URL+"/ok.geojson")
	require.NoError(t, err)
	assert.Contains(t, string(data), "FeatureCollection")

	_, err = r.Fetch(context.Background(), srv.URL+"/missing.geojson")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestRouterUnsupported(t *testing.T) {
	r := NewRouter(nil, 0)

	_, err := r.Fetch(context.Background(), "ftp://host/file.csv")
	assert.True(t, errors.Is(err, ErrUnsupportedScheme))

	_, err = r.Fetch(context.Background(), "s3://bucket/key.csv")
	assert.True(t, errors.Is(err, ErrUnsupportedScheme), "s3 without a fetcher is unsupported")
}

type fakeS3 struct {
	bucket, key string
	body        string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.bucket, f.key = *in.Bucket, *in.Key
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewBufferString(f.body))}, nil
}

func TestS3Fetcher(t *testing.T) {
	fake := &fakeS3{body: "Ano,CD_MUN7\n"}
	r := NewRouter(nil, 0)
	r.S3 = &S3Fetcher{client: fake}

	data, err := r.Fetch(context.Background(), "s3://dados-rs/pib/pib_long.csv")
	require.NoError(t, err)
	assert.Equal(t, "Ano,CD_MUN7\n", string(data))
	assert.Equal(t, "dados-rs", fake.bucket)
	assert.Equal(t, "pib/pib_long.csv", fake.key)

	_, err = r.Fetch(context.Background(), "s3://dados-rs/")
	require.Error(t, err)
}

func TestSizeLimit(t *testing.T) {
	body := strings.Repeat("x", 64)

	path := filepath.Join(t.TempDir(), "big.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	r := NewRouter(srv.Client(), 32)
	r.S3 = &S3Fetcher{client: &fakeS3{body: body}, maxBytes: 32}

	for _, loc := range []string{path, srv.URL + "/big.csv", "s3://dados-rs/big.csv"} {
		_, err := r.Fetch(context.Background(), loc)
		assert.ErrorIs(t, err, ErrTooLarge, loc)
	}

	r = NewRouter(srv.Client(), 64)
	r.S3 = &S3Fetcher{client: &fakeS3{body: body}, maxBytes: 64}
	for _, loc := range []string{path, srv.URL + "/big.csv", "s3://dados-rs/big.csv"} {
		data, err := r.Fetch(context.Background(), loc)
		require.NoError(t, err, loc)
		assert.Len(t, data, 64)
	}
}

func TestReadLimitedDefault(t *testing.T) {
	data, err := readLimited(strings.NewReader("abc"), 0)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
}

func TestScheme(t *testing.T) {
	assert.Equal(t, "", scheme("data/pib_long.csv"))
	assert.Equal(t, "", scheme(`C:\dados\pib.csv`))
	assert.Equal(t, "https", scheme("HTTPS://example.org/a.csv"))
	assert.Equal(t, "s3", scheme("s3://b/k"))
}
