package health

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// headBucketAPI es el subconjunto del cliente S3 que usamos.
type headBucketAPI interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Bucket chequea con HeadBucket que el bucket de imágenes exista y sea accesible.
type S3Bucket struct {
	client headBucketAPI
	bucket string
}

// NewS3Bucket crea el chequeo. Si endpoint no está vacío se usa path-style (MinIO, LocalStack).
func NewS3Bucket(ctx context.Context, bucket, region, endpoint string) (*S3Bucket, error) {
	if bucket == "" || region == "" {
		return nil, errors.New("s3 bucket and region are required")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3opts []func(*s3.Options)
	if endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Bucket{client: s3.NewFromConfig(cfg, s3opts...), bucket: bucket}, nil
}

// CheckBucket implementa BucketChecker.
func (bucket *S3Bucket) CheckBucket(ctx context.Context) error {
	_, err := bucket.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket.bucket)})
	if err != nil {
		return fmt.Errorf("head bucket %s: %w", bucket.bucket, err)
	}
	return nil
}

// bucketErrorCode extrae el código de error de AWS (NotFound, Forbidden, ...).
func bucketErrorCode(err error) string {
	var apiError smithy.APIError
	if errors.As(err, &apiError) && apiError.ErrorCode() != "" {
		return apiError.ErrorCode()
	}
	return "UNAVAILABLE"
}
