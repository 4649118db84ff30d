package storage

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const s3KeyPrefix = "products/"

// S3Backend streams uploads to an S3 bucket. Objects are stored publicly
// readable under the products/ prefix.
type S3Backend struct {
	client *s3.Client
	bucket string
	region string
}

// S3Config carries the settings needed to reach the bucket. Static
// credentials are optional; the default AWS chain applies when absent.
type S3Config struct {
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// NewS3Backend builds the client once at startup.
func NewS3Backend(ctx context.Context, cfg S3Config) (*S3Backend, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 storage requires a bucket name")
	}
	opts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsConfig, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return &S3Backend{
		client: s3.NewFromConfig(awsConfig),
		bucket: cfg.Bucket,
		region: cfg.Region,
	}, nil
}

// Store uploads each file under a generated key. Objects uploaded before a
// failure are deleted again so no orphans remain in the bucket.
func (b *S3Backend) Store(ctx context.Context, files []UploadedFile) ([]StoredObject, error) {
	stored := make([]StoredObject, 0, len(files))
	for _, f := range files {
		key := s3KeyPrefix + GenerateFilename(f.Name)
		_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(b.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(f.Data),
			ContentType: aws.String(f.ContentType),
			ACL:         types.ObjectCannedACLPublicRead,
		})
		if err != nil {
			keys := make([]string, len(stored))
			for i, s := range stored {
				keys[i] = s.Key
			}
			b.DeleteMany(ctx, keys)
			return nil, fmt.Errorf("failed to upload %s to s3: %w", f.Name, err)
		}
		stored = append(stored, StoredObject{
			URL: b.objectURL(key),
			Key: key,
		})
	}
	return stored, nil
}

// Delete removes one object. The key may also be a previously returned
// object URL, in which case the key is recovered from it.
func (b *S3Backend) Delete(ctx context.Context, key string) bool {
	key = b.resolveKey(key)
	if key == "" {
		return false
	}
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		log.Printf("Failed to delete s3 object %s: %v", key, err)
		return false
	}
	return true
}

// DeleteMany removes a batch of objects in one request, returning the number
// the bucket reported deleted.
func (b *S3Backend) DeleteMany(ctx context.Context, keys []string) int {
	objects := make([]types.ObjectIdentifier, 0, len(keys))
	for _, key := range keys {
		if resolved := b.resolveKey(key); resolved != "" {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(resolved)})
		}
	}
	if len(objects) == 0 {
		return 0
	}
	out, err := b.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(b.bucket),
		Delete: &types.Delete{Objects: objects},
	})
	if err != nil {
		log.Printf("Failed to bulk-delete %d s3 objects: %v", len(objects), err)
		return 0
	}
	return len(out.Deleted)
}

func (b *S3Backend) objectURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", b.bucket, b.region, key)
}

// resolveKey accepts either a bare object key or an object URL.
func (b *S3Backend) resolveKey(key string) string {
	if !strings.HasPrefix(key, "http://") && !strings.HasPrefix(key, "https://") {
		return key
	}
	u, err := url.Parse(key)
	if err != nil {
		log.Printf("Invalid s3 object URL %q: %v", key, err)
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}
