package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config holds the optional S3 client settings.
// Empty fields fall back to the default AWS configuration chain.
type S3Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// s3API is the subset of the S3 client used by S3.
type s3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3 serves scripts from S3 buckets. Paths look like s3://bucket/key.
// Directories are key prefixes ending at a "/".
type S3 struct {
	client s3API
}

// NewS3 creates an S3 source from cfg.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	var opts []func(*config.LoadOptions) error

	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		opts = append(opts, config.WithCredentialsProvider(creds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // S3-compatible services
		})
	}

	return &S3{client: s3.NewFromConfig(awsCfg, clientOpts...)}, nil
}

// parseS3Path splits s3://bucket/key into bucket and key. The key may be empty.
func parseS3Path(path string) (bucket, key string, err error) {
	if !IsS3(path) {
		return "", "", fmt.Errorf("invalid S3 path: %s", path)
	}
	rest := path[len(S3Scheme):]
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("invalid S3 path: %s", path)
	}
	return bucket, key, nil
}

func s3Path(bucket, key string) string {
	return S3Scheme + bucket + "/" + key
}

// dirPrefix turns a directory key into a listing prefix.
func dirPrefix(key string) string {
	if key == "" || strings.HasSuffix(key, "/") {
		return key
	}
	return key + "/"
}

// Stat implements Source. A key that is not an object but prefixes other
// objects is reported as a directory.
func (s *S3) Stat(ctx context.Context, path string) (Entry, error) {
	bucket, key, err := parseS3Path(path)
	if err != nil {
		return Entry{}, err
	}

	name := baseName(key)
	if key != "" && !strings.HasSuffix(key, "/") {
		out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err == nil {
			return Entry{Name: name, Path: path, Regular: true, Size: aws.ToInt64(out.ContentLength)}, nil
		}
		if !isNotFound(err) {
			return Entry{}, fmt.Errorf("failed to stat S3 object %s: %w", path, err)
		}
	}

	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		Prefix:  aws.String(dirPrefix(key)),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return Entry{}, fmt.Errorf("failed to stat S3 prefix %s: %w", path, err)
	}
	if aws.ToInt32(out.KeyCount) == 0 && len(out.Contents) == 0 {
		return Entry{}, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
	}
	return Entry{Name: name, Path: path, IsDir: true}, nil
}

// List implements Source.
func (s *S3) List(ctx context.Context, dir string) ([]Entry, error) {
	bucket, key, err := parseS3Path(dir)
	if err != nil {
		return nil, err
	}
	prefix := dirPrefix(key)

	var entries []Entry
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list S3 prefix %s: %w", dir, err)
		}
		for _, cp := range page.CommonPrefixes {
			k := aws.ToString(cp.Prefix)
			entries = append(entries, Entry{
				Name:  strings.TrimSuffix(strings.TrimPrefix(k, prefix), "/"),
				Path:  s3Path(bucket, strings.TrimSuffix(k, "/")),
				IsDir: true,
			})
		}
		for _, obj := range page.Contents {
			k := aws.ToString(obj.Key)
			if k == prefix {
				// directory placeholder object
				continue
			}
			entries = append(entries, Entry{
				Name:    strings.TrimPrefix(k, prefix),
				Path:    s3Path(bucket, k),
				Regular: true,
				Size:    aws.ToInt64(obj.Size),
			})
		}
	}
	return entries, nil
}

// Open implements Source.
func (s *S3) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	bucket, key, err := parseS3Path(path)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
		}
		return nil, fmt.Errorf("failed to get S3 object: %w", err)
	}
	return resp.Body, nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	return errors.As(err, &nf) || errors.As(err, &nsk)
}

func baseName(key string) string {
	key = strings.TrimSuffix(key, "/")
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		return key[i+1:]
	}
	return key
}

var _ Source = (*S3)(nil)
