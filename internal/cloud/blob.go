package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"time"

	"nabil-inventory-api/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// blobFilename is the well-known file name each user's dataset lives under.
const blobFilename = "inventory_data.json"

// BlobConfig holds settings for the S3 file-blob backend.
type BlobConfig struct {
	Bucket    string
	Region    string
	Prefix    string
	Endpoint  string // optional S3-compatible endpoint
	AccessKey string
	SecretKey string
}

// BlobAdapter keeps one well-known JSON file per identity inside a private
// bucket. Push is find-by-name then create-or-overwrite: the same key is
// always written, so duplicates cannot accumulate. Credentials are attached
// to every request by the SDK signer. No live updates.
type BlobAdapter struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewBlobAdapter builds the S3 client and verifies nothing - the backend
// is only reached when a sync actually runs, and sync failures are
// non-fatal by contract.
func NewBlobAdapter(ctx context.Context, cfg BlobConfig) (*BlobAdapter, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("blob adapter requires a bucket")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	log.Printf("[BlobAdapter] Initialized - bucket:%s prefix:%s", cfg.Bucket, cfg.Prefix)
	return &BlobAdapter{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (a *BlobAdapter) key(identity string) string {
	return path.Join(a.prefix, identity, blobFilename)
}

// Push writes the full snapshot to the identity's well-known object key.
func (a *BlobAdapter) Push(ctx context.Context, identity string, snap model.Snapshot) error {
	if identity == "" {
		return fmt.Errorf("empty identity")
	}

	snap.LastSync = time.Now().UnixMilli()
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	key := a.key(identity)

	// Find-by-name first: the distinction only matters for logging, since
	// PutObject on the same key never creates duplicates.
	_, err = a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if !isNotFound(err) {
			return fmt.Errorf("failed to check remote file: %w", err)
		}
		log.Printf("[BlobAdapter] Creating remote file for %s", identity)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot: %w", err)
	}
	return nil
}

// Pull fetches the identity's snapshot; (nil, nil) when the file does not
// exist yet.
func (a *BlobAdapter) Pull(ctx context.Context, identity string) (*model.Snapshot, error) {
	if identity == "" {
		return nil, fmt.Errorf("empty identity")
	}

	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(identity)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to download snapshot: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot body: %w", err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("corrupt remote snapshot for %s: %w", identity, err)
	}
	return &snap, nil
}

// Close is a no-op; the S3 client holds no persistent connection.
func (a *BlobAdapter) Close() error {
	return nil
}

func isNotFound(err error) bool {
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}

var _ Adapter = (*BlobAdapter)(nil)
