package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3 implements Storage against an S3-compatible endpoint. In production
// this is Cloudflare R2, configured through its account-scoped endpoint.
type S3 struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucketName    string
	publicURL     string
	logger        *slog.Logger
}

// NewS3 creates an S3 store for the configured R2 account and bucket.
func NewS3(cfg S3Config, logger *slog.Logger) (*S3, error) {
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	// R2 endpoints hang off the account ID.
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)

	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")

	customResolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:           endpoint,
				SigningRegion: region,
			}, nil
		},
	)

	awsCfg := aws.Config{
		Region:                      region,
		Credentials:                 creds,
		EndpointResolverWithOptions: customResolver,
	}

	client := s3.NewFromConfig(awsCfg)

	logger.Info("initialized S3 blob storage", "bucket", cfg.BucketName, "endpoint", endpoint)
	return &S3{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucketName:    cfg.BucketName,
		publicURL:     strings.TrimSuffix(cfg.PublicURL, "/"),
		logger:        logger,
	}, nil
}

var _ Storage = (*S3)(nil)

func (s *S3) validateKey(key string) error {
	if key == "" || strings.Contains(key, "..") {
		return ErrInvalidKey
	}
	return nil
}

// wrapS3Error maps AWS API failures onto the package sentinels.
func (s *S3) wrapS3Error(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return ErrNotFound
		case "AccessDenied":
			return ErrAccessDenied
		case "EntityTooLarge":
			return ErrTooLarge
		}
	}
	var respErr *smithy.OperationError
	if errors.As(err, &respErr) {
		return respErr
	}
	return err
}

func (s *S3) Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error {
	if err := s.validateKey(key); err != nil {
		return &Error{Op: "Put", Key: key, Err: err}
	}

	if !opts.Overwrite {
		exists, err := s.Exists(ctx, key)
		if err != nil {
			return &Error{Op: "Put", Key: key, Err: err}
		}
		if exists {
			return &Error{Op: "Put", Key: key, Err: ErrKeyExists}
		}
	}

	// The service layer validates sizes before the transfer starts, so this
	// is a backstop, not the primary check. Buffering also gives the SDK a
	// seekable body for retries.
	reader := data
	if opts.MaxSize > 0 {
		buf, err := io.ReadAll(io.LimitReader(data, opts.MaxSize+1))
		if err != nil {
			return &Error{Op: "Put", Key: key, Err: fmt.Errorf("failed to read payload: %w", err)}
		}
		if int64(len(buf)) > opts.MaxSize {
			return &Error{Op: "Put", Key: key, Err: ErrTooLarge}
		}
		reader = bytes.NewReader(buf)
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = detectContentType(key)
	}

	result, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        reader,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return &Error{Op: "Put", Key: key, Err: s.wrapS3Error(err)}
	}

	s.logger.Debug("stored object", "key", key, "etag", aws.ToString(result.ETag))
	return nil
}

func (s *S3) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	if err := s.validateKey(key); err != nil {
		return nil, ObjectInfo{}, &Error{Op: "Get", Key: key, Err: err}
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, ObjectInfo{}, &Error{Op: "Get", Key: key, Err: s.wrapS3Error(err)}
	}

	return result.Body, ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(result.ContentLength),
		ContentType:  aws.ToString(result.ContentType),
		LastModified: aws.ToTime(result.LastModified),
		ETag:         aws.ToString(result.ETag),
	}, nil
}

func (s *S3) Delete(ctx context.Context, key string) error {
	if err := s.validateKey(key); err != nil {
		return &Error{Op: "Delete", Key: key, Err: err}
	}

	// S3 deletes are idempotent; no error for a missing key.
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return &Error{Op: "Delete", Key: key, Err: s.wrapS3Error(err)}
	}
	return nil
}

func (s *S3) URL(ctx context.Context, key string, expires time.Duration) (string, error) {
	if err := s.validateKey(key); err != nil {
		return "", &Error{Op: "URL", Key: key, Err: err}
	}

	if s.publicURL != "" && expires == 0 {
		return fmt.Sprintf("%s/%s", s.publicURL, key), nil
	}
	if expires == 0 {
		expires = 15 * time.Minute
	}

	request, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", &Error{Op: "URL", Key: key, Err: err}
	}
	return request.URL, nil
}

func (s *S3) Exists(ctx context.Context, key string) (bool, error) {
	if err := s.validateKey(key); err != nil {
		return false, &Error{Op: "Exists", Key: key, Err: err}
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		var respErr *smithy.GenericAPIError
		if errors.As(err, &respErr) && respErr.ErrorCode() == "NotFound" {
			return false, nil
		}
		var httpErr interface{ HTTPStatusCode() int }
		if errors.As(err, &httpErr) && httpErr.HTTPStatusCode() == http.StatusNotFound {
			return false, nil
		}
		return false, &Error{Op: "Exists", Key: key, Err: s.wrapS3Error(err)}
	}
	return true, nil
}
