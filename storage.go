package salesagg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectAPI is the part of the S3 client used for sources and sinks.
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configures the client built for s3:// paths.
type S3Options struct {
	Region   string
	Profile  string
	Endpoint string
}

// Storage opens sources and sinks by path. Plain paths are local files;
// s3://bucket/key paths go through S3. The S3 client is only built when an
// s3:// path is first used.
type Storage struct {
	opts S3Options

	mu     sync.Mutex
	client ObjectAPI
}

func NewStorage(opts S3Options) *Storage {
	return &Storage{opts: opts}
}

// NewStorageWithClient uses client for every s3:// path.
func NewStorageWithClient(client ObjectAPI) *Storage {
	return &Storage{client: client}
}

func (s *Storage) objects(ctx context.Context) (ObjectAPI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if s.opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(s.opts.Region))
	}
	if s.opts.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(s.opts.Profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	endpoint := s.opts.Endpoint
	s.client = s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return s.client, nil
}

// ParseS3Path splits s3://bucket/key at the first slash after the bucket. The
// key is kept byte for byte, including any '#', '?' or percent sequences. ok is
// false for anything else.
func ParseS3Path(path string) (bucket, key string, ok bool, err error) {
	rest, found := strings.CutPrefix(path, "s3://")
	if !found {
		return "", "", false, nil
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", true, fmt.Errorf("s3 path %s needs both bucket and key", path)
	}
	return bucket, key, true, nil
}

// OpenSource opens path for reading. Failures are *SourceReadError.
func (s *Storage) OpenSource(ctx context.Context, path string) (io.ReadCloser, error) {
	bucket, key, isS3, err := ParseS3Path(path)
	if err != nil {
		return nil, &SourceReadError{Path: path, Err: err}
	}
	if !isS3 {
		f, err := os.Open(path)
		if err != nil {
			return nil, &SourceReadError{Path: path, Err: err}
		}
		return f, nil
	}

	client, err := s.objects(ctx)
	if err != nil {
		return nil, &SourceReadError{Path: path, Err: err}
	}
	resp, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, &SourceReadError{Path: path, Err: fmt.Errorf("S3 GetObject %s/%s: %w", bucket, key, err)}
	}
	return resp.Body, nil
}

// CreateSink opens path for writing, truncating local files. Close reports
// success only once the data is durable: fsynced locally, or uploaded for
// s3:// paths (staged in a temporary file until then).
func (s *Storage) CreateSink(ctx context.Context, path string, contentType string) (io.WriteCloser, error) {
	bucket, key, isS3, err := ParseS3Path(path)
	if err != nil {
		return nil, &SinkWriteError{Path: path, Err: err}
	}
	if !isS3 {
		f, err := os.Create(path)
		if err != nil {
			return nil, &SinkWriteError{Path: path, Err: err}
		}
		return &fileSink{File: f}, nil
	}

	client, err := s.objects(ctx)
	if err != nil {
		return nil, &SinkWriteError{Path: path, Err: err}
	}
	tmp, err := os.CreateTemp("", "salesagg-*"+filepath.Ext(key))
	if err != nil {
		return nil, &SinkWriteError{Path: path, Err: fmt.Errorf("stage upload: %w", err)}
	}
	return &s3Sink{ctx: ctx, client: client, bucket: bucket, key: key, contentType: contentType, tmp: tmp}, nil
}

type fileSink struct {
	*os.File
}

func (f *fileSink) Close() error {
	syncErr := f.File.Sync()
	closeErr := f.File.Close()
	return errors.Join(syncErr, closeErr)
}

type s3Sink struct {
	ctx         context.Context
	client      ObjectAPI
	bucket      string
	key         string
	contentType string
	tmp         *os.File
	closed      bool
}

func (s *s3Sink) Write(p []byte) (int, error) {
	return s.tmp.Write(p)
}

func (s *s3Sink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	defer os.Remove(s.tmp.Name())
	defer s.tmp.Close()

	if _, err := s.tmp.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind staged upload: %w", err)
	}
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		Body:   s.tmp,
	}
	if s.contentType != "" {
		input.ContentType = aws.String(s.contentType)
	}
	if _, err := s.client.PutObject(s.ctx, input); err != nil {
		return fmt.Errorf("S3 PutObject %s/%s: %w", s.bucket, s.key, err)
	}
	return nil
}

// Abort discards the staged upload without sending it.
func (s *s3Sink) Abort() error {
	if s.closed {
		return nil
	}
	s.closed = true
	closeErr := s.tmp.Close()
	return errors.Join(closeErr, os.Remove(s.tmp.Name()))
}
