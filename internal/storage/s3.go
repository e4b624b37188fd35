package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config configures the S3 backend.
type S3Config struct {
	Bucket    string
	Region    string
	Prefix    string // Key prefix inside the bucket
	Endpoint  string // Custom endpoint for S3-compatible stores
	PublicURL string // Base URL objects are downloadable from
	PathStyle bool
}

// objectAPI is the part of the S3 client the backend uses.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3 stores files as objects in a bucket.
type S3 struct {
	client objectAPI
	cfg    S3Config
}

// NewS3 loads AWS credentials from the default chain and creates the backend.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 storage: bucket is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})
	return newS3(client, cfg), nil
}

func newS3(client objectAPI, cfg S3Config) *S3 {
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")
	cfg.PublicURL = strings.TrimSuffix(cfg.PublicURL, "/")
	return &S3{client: client, cfg: cfg}
}

func (s *S3) key(ref string) string {
	if s.cfg.Prefix == "" {
		return ref
	}
	return s.cfg.Prefix + "/" + ref
}

// Open downloads an object.
func (s *S3) Open(ctx context.Context, ref string) ([]byte, error) {
	if err := checkRef(ref); err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.key(ref)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return nil, fmt.Errorf("get object: %w", err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// Save uploads data. Taken keys get a random suffix.
func (s *S3) Save(ctx context.Context, dir, name, contentType string, data []byte) (string, error) {
	ref, err := join(dir, name)
	if err != nil {
		return "", err
	}

	candidate := ref
	for range maxNameAttempts {
		exists, err := s.exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if exists {
			candidate = alternate(ref)
			continue
		}
		_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.cfg.Bucket),
			Key:         aws.String(s.key(candidate)),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(contentType),
		})
		if err != nil {
			return "", fmt.Errorf("put object: %w", err)
		}
		return candidate, nil
	}
	return "", fmt.Errorf("no free key for %s", ref)
}

func (s *S3) exists(ctx context.Context, ref string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.key(ref)),
	})
	if err == nil {
		return true, nil
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return false, nil
	}
	return false, fmt.Errorf("head object: %w", err)
}

// URL returns the public link for ref, or an s3:// URI when no public base
// URL is configured.
func (s *S3) URL(ref string) string {
	if s.cfg.PublicURL != "" {
		return s.cfg.PublicURL + "/" + s.key(ref)
	}
	return "s3://" + s.cfg.Bucket + "/" + s.key(ref)
}
