// Package objectstore uploads fused datasets to S3 as parquet files.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"candlefuse/config"
	"candlefuse/internal/market"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Putter is the subset of the S3 client used for uploads.
type Putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Sink struct {
	client      Putter
	bucket      string
	prefix      string
	compression string
	now         func() time.Time
}

// New builds an S3 client from the storage config. Static credentials are used when both keys are set.
func New(ctx context.Context, cfg config.S3Config) (*Sink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage.s3.bucket is empty")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})
	return NewWithClient(client, cfg), nil
}

func NewWithClient(client Putter, cfg config.S3Config) *Sink {
	return &Sink{
		client:      client,
		bucket:      cfg.Bucket,
		prefix:      strings.Trim(cfg.Prefix, "/"),
		compression: cfg.Compression,
		now:         time.Now,
	}
}

func (s *Sink) Name() string { return "s3" }

// Key is <prefix>/coin=BTC/bar=4h/date=2024-06-01/<stamp>_<uuid>.parquet.
func (s *Sink) Key(ds market.FusedDataset) string {
	now := s.now().UTC()
	filename := fmt.Sprintf("%s_%s.parquet", now.Format("20060102150405"), uuid.NewString())
	return path.Join(
		s.prefix,
		"coin="+strings.ToUpper(ds.Asset.Coin),
		"bar="+ds.Bar.FileSuffix(),
		"date="+now.Format("2006-01-02"),
		filename,
	)
}

func (s *Sink) WriteDataset(ctx context.Context, ds market.FusedDataset) error {
	data, err := EncodeDataset(ds, s.compression)
	if err != nil {
		return err
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.Key(ds)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
		Metadata: map[string]string{
			"content-type": "parquet",
			"compression":  s.compression,
			"provider":     ds.Provider,
			"rows":         fmt.Sprint(len(ds.Rows)),
		},
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("upload %s parquet: %w", ds.Asset.Coin, err)
	}
	return nil
}
