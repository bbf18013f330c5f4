package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/libra-vcs/libra/internal/objstore"
	"github.com/libra-vcs/libra/internal/vcserrors"
)

// S3Remote is the RemoteStore backend for S3-compatible object storage,
// configured from the LIBRA_STORAGE_* environment variables. Large blobs
// that overflow the tiered controller's local cache live here
// permanently.
type S3Remote struct {
	client *s3.Client
	bucket string
}

// S3RemoteConfig mirrors the LIBRA_STORAGE_* environment variables.
type S3RemoteConfig struct {
	Bucket    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
}

// S3RemoteConfigFromEnv reads LIBRA_STORAGE_BUCKET/_ENDPOINT/_ACCESS_KEY/
// _SECRET_KEY/_REGION. It returns ok=false if LIBRA_STORAGE_TYPE is unset
// or not "s3", in which case the caller should run without a remote tier.
func S3RemoteConfigFromEnv() (cfg S3RemoteConfig, ok bool) {
	if strings.ToLower(os.Getenv("LIBRA_STORAGE_TYPE")) != "s3" {
		return S3RemoteConfig{}, false
	}
	return S3RemoteConfig{
		Bucket:    os.Getenv("LIBRA_STORAGE_BUCKET"),
		Endpoint:  os.Getenv("LIBRA_STORAGE_ENDPOINT"),
		AccessKey: os.Getenv("LIBRA_STORAGE_ACCESS_KEY"),
		SecretKey: os.Getenv("LIBRA_STORAGE_SECRET_KEY"),
		Region:    os.Getenv("LIBRA_STORAGE_REGION"),
	}, true
}

// ThresholdBytesFromEnv parses LIBRA_STORAGE_THRESHOLD, returning def if
// unset or unparsable.
func ThresholdBytesFromEnv(def int64) int64 {
	v := os.Getenv("LIBRA_STORAGE_THRESHOLD")
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

// NewS3Remote builds an S3Remote, resolving credentials the way the AWS SDK
// default chain does, overridden by explicit cfg values when present.
func NewS3Remote(ctx context.Context, cfg S3RemoteConfig) (*S3Remote, error) {
	if cfg.Bucket == "" {
		return nil, vcserrors.Validation("LIBRA_STORAGE_BUCKET is required for the s3 remote backend")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, vcserrors.Transport("load aws config", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Remote{client: client, bucket: cfg.Bucket}, nil
}

func (r *S3Remote) key(id objstore.ID) string {
	s := string(id)
	return fmt.Sprintf("objects/%s/%s", s[:2], s[2:])
}

// Get fetches and parses an object's compressed form from the bucket.
func (r *S3Remote) Get(id objstore.ID) ([]byte, objstore.Kind, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key(id)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, 0, vcserrors.ObjectNotFound(string(id))
		}
		return nil, 0, vcserrors.Transport("s3 get", err)
	}
	defer out.Body.Close()

	compressed, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, 0, vcserrors.Transport("s3 get body", err)
	}

	return objstore.DecompressFramed(compressed, id)
}

// Put uploads the zlib-compressed framed object.
func (r *S3Remote) Put(id objstore.ID, payload []byte, kind objstore.Kind) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	compressed, err := objstore.CompressFramed(kind, payload)
	if err != nil {
		return "", fmt.Errorf("compress object %s for s3: %w", id, err)
	}

	key := r.key(id)
	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(compressed),
	})
	if err != nil {
		return "", vcserrors.Transport("s3 put", err)
	}
	return fmt.Sprintf("s3://%s/%s", r.bucket, key), nil
}

// Exists issues a HEAD request for the object.
func (r *S3Remote) Exists(id objstore.ID) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key(id)),
	})
	return err == nil
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

var _ RemoteStore = (*S3Remote)(nil)
