package source

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/earthkit/fieldkit/cache"
	"github.com/earthkit/fieldkit/config"
	"github.com/earthkit/fieldkit/errs"
	"github.com/earthkit/fieldkit/fieldlist"
)

// S3 fetches one object from AWS S3, caches it to disk and reads it with
// file semantics. Credentials come from the default chain (environment,
// shared config, instance role) unless Anonymous is set, which suits the
// public meteorological archives.
type S3 struct {
	cfg       *config.Config
	bucket    string
	key       string
	region    string
	anonymous bool
}

// S3Option tweaks an S3 source.
type S3Option func(*S3)

// WithRegion pins the bucket region. Default us-east-1.
func WithRegion(region string) S3Option {
	return func(s *S3) { s.region = region }
}

// WithAnonymous disables request signing for public buckets.
func WithAnonymous() S3Option {
	return func(s *S3) { s.anonymous = true }
}

// NewS3 creates an S3 source for bucket/key.
func NewS3(cfg *config.Config, bucket, key string, opts ...S3Option) *S3 {
	s := &S3{cfg: cfg, bucket: bucket, key: key, region: "us-east-1"}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func s3Factory(cfg *config.Config, args Args) (Source, error) {
	bucket, err := stringArg(args, "bucket")
	if err != nil {
		return nil, err
	}
	key, err := stringArg(args, "key")
	if err != nil {
		return nil, err
	}

	var opts []S3Option
	if region, ok := args["region"].(string); ok {
		opts = append(opts, WithRegion(region))
	}
	if anon, ok := args["anonymous"].(bool); ok && anon {
		opts = append(opts, WithAnonymous())
	}

	return NewS3(cfg, bucket, key, opts...), nil
}

// FieldList downloads the object (or reuses the cached copy) and opens it.
// The compression codec is chosen from the object key.
func (s *S3) FieldList(ctx context.Context) (*fieldlist.FieldList, error) {
	path, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}

	return openLocal(path, s.key)
}

func (s *S3) fetch(ctx context.Context) (string, error) {
	cch, err := cache.New(s.cfg)
	if err != nil {
		return "", err
	}

	fingerprint := cache.Fingerprint("s3", s.region, s.bucket, s.key)
	if path, ok := cch.Get(fingerprint); ok {
		return path, nil
	}

	awsCfg := aws.NewConfig().WithRegion(s.region)
	if s.anonymous {
		awsCfg = awsCfg.WithCredentials(credentials.AnonymousCredentials)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return "", fmt.Errorf("%w: s3 session: %w", errs.ErrDownload, err)
	}
	svc := s3.New(sess)

	fill := func(w io.Writer) error {
		out, err := svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key),
		})
		if err != nil {
			return fmt.Errorf("%w: s3://%s/%s: %w", errs.ErrDownload, s.bucket, s.key, err)
		}
		defer out.Body.Close()

		if _, err := io.Copy(w, out.Body); err != nil {
			return fmt.Errorf("%w: s3://%s/%s: %w", errs.ErrDownload, s.bucket, s.key, err)
		}

		return nil
	}

	if cch != nil {
		return cch.Put(fingerprint, fill)
	}

	return spillToTemp(fill)
}
