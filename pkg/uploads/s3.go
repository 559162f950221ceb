package uploads

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/MichaelFlanagan/SystemFifty/pkg/apperr"
	sc "github.com/MichaelFlanagan/SystemFifty/pkg/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// s3KeyPrefix is prepended to every object key.
const s3KeyPrefix = "uploads/"

// ObjectAPI is the subset of *s3.Client used by S3.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var loadDefaultAWSConfig = config.LoadDefaultConfig

// S3 stores files in an S3-compatible bucket.
type S3 struct {
	client ObjectAPI
	bucket string
}

// NewS3 builds a client from cfg. A non-empty Endpoint switches to
// path-style addressing for MinIO and similar servers.
func NewS3(ctx context.Context, cfg sc.S3) (*S3, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3WithClient(client, cfg.Bucket), nil
}

func NewS3WithClient(client ObjectAPI, bucket string) *S3 {
	return &S3{client: client, bucket: bucket}
}

func (b *S3) Kind() string { return "s3" }

func (b *S3) key(name string) *string { return aws.String(s3KeyPrefix + name) }

func (b *S3) Put(ctx context.Context, name, contentType string, data []byte) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           b.key(name),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
		IfNoneMatch:   aws.String("*"),
	})
	if err != nil {
		return apperr.Storage("failed to save file", err)
	}
	return nil
}

func (b *S3) Open(ctx context.Context, name string) (io.ReadCloser, *ObjectInfo, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    b.key(name),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil, apperr.NotFound("file not found")
		}
		return nil, nil, apperr.Storage("failed to open file", err)
	}
	ct := aws.ToString(out.ContentType)
	if ct == "" {
		ct = "application/octet-stream"
	}
	return out.Body, &ObjectInfo{
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: ct,
		ModTime:     aws.ToTime(out.LastModified),
	}, nil
}

func (b *S3) Delete(ctx context.Context, name string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    b.key(name),
	})
	if err != nil && !isNotFound(err) {
		return apperr.Storage("failed to delete file", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NoSuchKey" || apiErr.ErrorCode() == "NotFound")
}
