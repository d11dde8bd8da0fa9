package download

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"qrpdf/internal/log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// ObjectPutter is the part of the S3 API the sink uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configures NewS3Sink.
type S3Options struct {
	Region string
	// Endpoint points the client at an S3 compatible service. Path style
	// addressing is used when it is set.
	Endpoint string
}

// S3Sink uploads into an S3 bucket with the same create-if-absent rule as
// GCSSink.
type S3Sink struct {
	client ObjectPutter
	bucket string
	prefix string
}

// NewS3Sink loads credentials from the default AWS chain.
func NewS3Sink(ctx context.Context, bucket, prefix string, opts S3Options) (*S3Sink, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	if opts.Region != "" {
		cfg.Region = opts.Region
	} else if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	var s3Opts []func(*s3.Options)
	if opts.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		})
	}
	return NewS3SinkWithClient(s3.NewFromConfig(cfg, s3Opts...), bucket, prefix), nil
}

// NewS3SinkWithClient wraps an existing client.
func NewS3SinkWithClient(client ObjectPutter, bucket, prefix string) *S3Sink {
	return &S3Sink{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (s *S3Sink) Name() string {
	return "s3:" + s.bucket
}

// Key returns the object key a file called name is stored under.
func (s *S3Sink) Key(name string) string {
	name = SafeFilename(name)
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func (s *S3Sink) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	key := s.Key(name)
	location := fmt.Sprintf("s3://%s/%s", s.bucket, key)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(PDFContentType),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		var apiErr smithy.APIError
		if stderrors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed" {
			log.LogWithFields(log.F("object", location)).Info("Object already exists, skipping upload")
			return location, nil
		}
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return location, nil
}
