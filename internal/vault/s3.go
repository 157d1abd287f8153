package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"import-data/internal/config"
	"import-data/internal/importer"
)

// checksumMetadata is the object metadata key holding an asset's SHA-256.
const checksumMetadata = "sha256"

// S3API is the subset of the S3 client the vault calls directly.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Uploader streams objects to S3; *manager.Uploader satisfies it.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Vault mirrors assets into an S3 bucket (or an S3-compatible store).
// Each object carries its SHA-256 as metadata so unchanged assets are
// not uploaded again.
type S3Vault struct {
	name     string
	bucket   string
	prefix   string
	client   S3API
	uploader Uploader
}

var _ importer.Vault = (*S3Vault)(nil)

// NewS3Vault creates an S3Vault over the given client and uploader.
func NewS3Vault(name, bucket, prefix string, client S3API, uploader Uploader) *S3Vault {
	return &S3Vault{
		name:     name,
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		client:   client,
		uploader: uploader,
	}
}

// NewS3VaultFromConfig loads AWS configuration and builds an S3Vault.
// Static credentials from cfg take precedence over the default chain.
func NewS3VaultFromConfig(ctx context.Context, cfg config.VaultConfig) (*S3Vault, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 vault requires s3_bucket to be set")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKeyID != "" && cfg.S3SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3Vault(cfg.Name, cfg.S3Bucket, cfg.S3Prefix, client, manager.NewUploader(client)), nil
}

// Name returns the vault name.
func (v *S3Vault) Name() string { return v.name }

func (v *S3Vault) objectKey(key string) string {
	key = strings.TrimPrefix(key, "/")
	if v.prefix == "" {
		return key
	}
	return path.Join(v.prefix, key)
}

// PutAsset uploads the asset unless the stored object already carries
// checksum in its metadata.
func (v *S3Vault) PutAsset(ctx context.Context, key string, r io.Reader, size int64, checksum string) (bool, error) {
	objectKey := v.objectKey(key)

	head, err := v.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(objectKey),
	})
	switch {
	case err == nil:
		if head.Metadata[checksumMetadata] == checksum {
			return false, nil
		}
	case isNotFound(err):
	default:
		return false, fmt.Errorf("checking s3://%s/%s: %w", v.bucket, objectKey, err)
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(v.bucket),
		Key:           aws.String(objectKey),
		Body:          r,
		ContentLength: aws.Int64(size),
		Metadata:      map[string]string{checksumMetadata: checksum},
	}
	if ct := mime.TypeByExtension(path.Ext(objectKey)); ct != "" {
		input.ContentType = aws.String(ct)
	}
	if _, err := v.uploader.Upload(ctx, input); err != nil {
		return false, fmt.Errorf("uploading s3://%s/%s: %w", v.bucket, objectKey, err)
	}
	return true, nil
}

// ValidateSetup verifies that the bucket exists and is reachable.
func (v *S3Vault) ValidateSetup(ctx context.Context) error {
	if _, err := v.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(v.bucket)}); err != nil {
		return fmt.Errorf("s3 bucket %s not accessible: %w", v.bucket, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
