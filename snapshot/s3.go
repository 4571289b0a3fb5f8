package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ObjectAPI is the part of the S3 client the store uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config locates the object holding the document.
type S3Config struct {
	Bucket    string
	Key       string
	Region    string
	Endpoint  string // empty for AWS, set for MinIO and friends
	AccessKey string
	SecretKey string
}

// S3Store keeps the document as a single object.
type S3Store struct {
	api    ObjectAPI
	bucket string
	key    string
}

// NewS3Store builds an S3 client from cfg. Without an access key requests
// are sent anonymously.
func NewS3Store(cfg S3Config) *S3Store {
	opts := s3.Options{
		Region: cfg.Region,
	}
	if opts.Region == "" {
		opts.Region = "us-east-1"
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}

	if cfg.AccessKey != "" {
		creds := aws.Credentials{
			AccessKeyID:     cfg.AccessKey,
			SecretAccessKey: cfg.SecretKey,
			Source:          "coopcanvas config",
		}
		opts.Credentials = aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return creds, nil
		})
	} else {
		opts.Credentials = aws.AnonymousCredentials{}
	}

	return NewS3StoreWithAPI(s3.New(opts), cfg.Bucket, cfg.Key)
}

func NewS3StoreWithAPI(api ObjectAPI, bucket, key string) *S3Store {
	if key == "" {
		key = "canvas.json"
	}

	return &S3Store{api: api, bucket: bucket, key: key}
}

func (s *S3Store) Save(ctx context.Context, d *Document) error {
	b, err := Marshal(d)
	if err != nil {
		return err
	}

	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(b),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("snapshot: put s3://%s/%s: %w", s.bucket, s.key, err)
	}

	return nil
}

func (s *S3Store) Load(ctx context.Context) (*Document, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})

	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return nil, ErrNoSnapshot
	} else if err != nil {
		return nil, fmt.Errorf("snapshot: get s3://%s/%s: %w", s.bucket, s.key, err)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, err
	}

	return Unmarshal(b)
}

func (s *S3Store) Close() error { return nil }
