// Package flight implements a blockstore.Source backed by a remote
// Arrow Flight service, reached over gRPC.
package flight

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/oklog/ulid/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/vaultgrid/vaultgrid/blockstore"
)

// blobSchema is the single-column Arrow schema every Put/Get record
// carries: one binary value holding a blob's entire payload.
func blobSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "data", Type: arrow.BinaryTypes.Binary},
	}, nil)
}

// Source stores one blob per descriptor as a single-row Arrow record,
// addressed by a flight descriptor path of [bucket, descriptor].
type Source struct {
	client  flight.Client
	bucket  string
	maxSize int
	alloc   memory.Allocator
	entropy *ulid.MonotonicEntropy
}

// Dial connects to a Flight service at target and returns a Source
// scoped to bucket. tlsConfig nil dials in plaintext.
func Dial(ctx context.Context, target, bucket string, maxSize int, tlsConfig *tls.Config) (*Source, error) {
	var dialOpts []grpc.DialOption
	if tlsConfig != nil {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig)))
	} else {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	client, err := flight.NewClientWithMiddleware(target, nil, nil, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("flight: dial %s: %w", target, err)
	}

	return &Source{
		client:  client,
		bucket:  bucket,
		maxSize: maxSize,
		alloc:   memory.DefaultAllocator,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}, nil
}

// Close releases the underlying gRPC connection.
func (s *Source) Close() error {
	return s.client.Close()
}

func (s *Source) MaxSize() int {
	if s.maxSize <= 0 {
		return int(^uint(0) >> 1)
	}
	return s.maxSize
}

func (s *Source) descriptorPath(descriptor blockstore.Descriptor) []string {
	return []string{s.bucket, string(descriptor)}
}

func (s *Source) Create(ctx context.Context) (blockstore.Descriptor, error) {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy)
	descriptor := blockstore.Descriptor(id.String())
	if err := s.put(ctx, descriptor, nil); err != nil {
		return nil, err
	}
	return descriptor, nil
}

func (s *Source) Put(ctx context.Context, descriptor blockstore.Descriptor, data []byte) error {
	if s.maxSize > 0 && len(data) > s.maxSize {
		return fmt.Errorf("flight: payload of %d bytes exceeds max size %d", len(data), s.maxSize)
	}
	return s.put(ctx, descriptor, data)
}

func (s *Source) put(ctx context.Context, descriptor blockstore.Descriptor, data []byte) error {
	stream, err := s.client.DoPut(ctx)
	if err != nil {
		return fmt.Errorf("flight: open put stream for %s: %w", descriptor, err)
	}

	writer := flight.NewRecordWriter(stream, ipc.WithSchema(blobSchema()))
	writer.SetFlightDescriptor(&flight.FlightDescriptor{
		Type: flight.DescriptorPATH,
		Path: s.descriptorPath(descriptor),
	})

	builder := array.NewBinaryBuilder(s.alloc, arrow.BinaryTypes.Binary)
	builder.Append(data)
	rec := builder.NewRecord()
	builder.Release()

	writeErr := writer.Write(rec)
	rec.Release()
	if writeErr != nil {
		writer.Close()
		return fmt.Errorf("flight: write %s: %w", descriptor, writeErr)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("flight: close put stream for %s: %w", descriptor, err)
	}
	if err := stream.CloseSend(); err != nil {
		return fmt.Errorf("flight: finish put stream for %s: %w", descriptor, err)
	}
	if _, err := stream.Recv(); err != nil && err != io.EOF {
		return fmt.Errorf("flight: ack put of %s: %w", descriptor, err)
	}
	return nil
}

func (s *Source) Get(ctx context.Context, descriptor blockstore.Descriptor) ([]byte, error) {
	info, err := s.client.GetFlightInfo(ctx, &flight.FlightDescriptor{
		Type: flight.DescriptorPATH,
		Path: s.descriptorPath(descriptor),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: flight path %v: %v", blockstore.ErrNotFound, s.descriptorPath(descriptor), err)
	}
	if len(info.Endpoint) == 0 {
		return nil, fmt.Errorf("%w: flight path %v has no endpoint", blockstore.ErrNotFound, s.descriptorPath(descriptor))
	}

	stream, err := s.client.DoGet(ctx, info.Endpoint[0].Ticket)
	if err != nil {
		return nil, fmt.Errorf("flight: open get stream for %s: %w", descriptor, err)
	}

	reader, err := flight.NewRecordReader(stream)
	if err != nil {
		return nil, fmt.Errorf("flight: read record stream for %s: %w", descriptor, err)
	}
	defer reader.Release()

	var out []byte
	for reader.Next() {
		rec := reader.Record()
		if rec.NumCols() == 0 {
			continue
		}
		col, ok := rec.Column(0).(*array.Binary)
		if !ok {
			continue
		}
		for i := range col.Len() {
			if !col.IsNull(i) {
				out = append(out, col.Value(i)...)
			}
		}
	}
	if err := reader.Err(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("flight: stream %s: %w", descriptor, err)
	}
	return out, nil
}

func (s *Source) Delete(ctx context.Context, descriptor blockstore.Descriptor) error {
	stream, err := s.client.DoAction(ctx, &flight.Action{
		Type: "delete",
		Body: []byte(descriptor),
	})
	if err != nil {
		return fmt.Errorf("flight: delete %s: %w", descriptor, err)
	}
	_, err = stream.Recv()
	if err != nil && err != io.EOF {
		return fmt.Errorf("flight: delete %s: %w", descriptor, err)
	}
	return nil
}
