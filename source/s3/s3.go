// Package s3 implements a blockstore.Source backed by an S3-compatible
// bucket, using the AWS SDK v2 client.
package s3

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/oklog/ulid/v2"

	"github.com/vaultgrid/vaultgrid/blockstore"
)

// Client is the subset of *s3.Client this package calls, narrowed so
// tests can supply a fake.
type Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Source stores one object per descriptor under a fixed key prefix in
// one S3 bucket.
type Source struct {
	client  Client
	bucket  string
	prefix  string
	maxSize int
	entropy *ulid.MonotonicEntropy
}

// New returns a Source writing objects into bucket under prefix
// (joined with "/"; may be empty), rejecting payloads over maxSize
// bytes. maxSize <= 0 means unbounded (subject to S3's own 5 TiB cap).
func New(client Client, bucket, prefix string, maxSize int) *Source {
	return &Source{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		maxSize: maxSize,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (s *Source) MaxSize() int {
	if s.maxSize <= 0 {
		return int(^uint(0) >> 1)
	}
	return s.maxSize
}

func (s *Source) key(descriptor blockstore.Descriptor) string {
	if s.prefix == "" {
		return string(descriptor)
	}
	return s.prefix + "/" + string(descriptor)
}

// Create reserves a descriptor by writing a zero-length placeholder
// object, mirroring the local backend's create-then-put split; S3 has
// no "reserve a key" primitive of its own.
func (s *Source) Create(ctx context.Context) (blockstore.Descriptor, error) {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy)
	descriptor := blockstore.Descriptor(id.String())
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(descriptor)),
		Body:   bytes.NewReader(nil),
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create %s: %w", s.key(descriptor), err)
	}
	return descriptor, nil
}

func (s *Source) Put(ctx context.Context, descriptor blockstore.Descriptor, data []byte) error {
	if s.maxSize > 0 && len(data) > s.maxSize {
		return fmt.Errorf("s3: payload of %d bytes exceeds max size %d", len(data), s.maxSize)
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(descriptor)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("s3: put %s: %w", s.key(descriptor), err)
	}
	return nil
}

func (s *Source) Get(ctx context.Context, descriptor blockstore.Descriptor) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(descriptor)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: s3 key %s", blockstore.ErrNotFound, s.key(descriptor))
		}
		return nil, fmt.Errorf("s3: get %s: %w", s.key(descriptor), err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3: read body of %s: %w", s.key(descriptor), err)
	}
	return data, nil
}

func (s *Source) Delete(ctx context.Context, descriptor blockstore.Descriptor) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(descriptor)),
	})
	if err != nil {
		return fmt.Errorf("s3: delete %s: %w", s.key(descriptor), err)
	}
	return nil
}
