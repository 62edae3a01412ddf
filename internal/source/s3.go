package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options configures the S3 client. Endpoint and PathStyle target S3-compatible stores such as MinIO.
type S3Options struct {
	Region    string
	Endpoint  string
	PathStyle bool
	MaxBytes  int64
}

// objectGetter is the slice of the S3 API the fetcher needs.
type objectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Fetcher reads s3://bucket/key locations.
type S3Fetcher struct {
	client   objectGetter
	maxBytes int64
}

// NewS3Fetcher loads the default AWS credential chain for the given region.
func NewS3Fetcher(ctx context.Context, opts S3Options) (*S3Fetcher, error) {
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.PathStyle {
			o.UsePathStyle = true
		}
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})
	return &S3Fetcher{client: client, maxBytes: opts.MaxBytes}, nil
}

func (f *S3Fetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	bucket, key, err := splitS3(location)
	if err != nil {
		return nil, err
	}
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		return nil, fmt.Errorf("s3 get %s: %w", location, err)
	}
	defer out.Body.Close()
	data, err := readLimited(out.Body, f.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("s3 read %s: %w", location, err)
	}
	return data, nil
}

func splitS3(location string) (bucket, key string, err error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", "", fmt.Errorf("parse %s: %w", location, err)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 location %q needs bucket and key", location)
	}
	return bucket, key, nil
}
