// Package blobstore adapts the object-store side of large-payload offloading:
// raw OTLP export bodies are written here before a reference is queued for
// asynchronous transformation (§4.1).
package blobstore

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"brokle/internal/config"
)

// Client wraps an S3-compatible object store (AWS S3, MinIO, or any other
// provider speaking the S3 API) for the raw-event bucket.
type Client struct {
	s3     *s3.Client
	bucket string
	logger *logrus.Logger
}

// Connect builds a Client from blob storage configuration. It supports both
// native AWS (default credential chain or static keys) and custom endpoints
// such as MinIO/LocalStack, which require path-style addressing.
func Connect(ctx context.Context, cfg *config.BlobStorageConfig, logger *logrus.Logger) (*Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	var awsCfg aws.Config
	var err error

	if cfg.Endpoint != "" {
		// Custom endpoint: MinIO/LocalStack, always with static credentials.
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(region),
			awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
			),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to load aws config: %w", err)
		}
		awsCfg.BaseEndpoint = aws.String(cfg.Endpoint)
	} else if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(region),
			awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
			),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to load aws config: %w", err)
		}
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
		if err != nil {
			return nil, fmt.Errorf("failed to load aws config: %w", err)
		}
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})

	c := &Client{
		s3:     client,
		bucket: cfg.BucketName,
		logger: logger,
	}

	logger.WithFields(logrus.Fields{
		"provider":    cfg.Provider,
		"bucket":      cfg.BucketName,
		"region":      region,
		"endpoint":    cfg.Endpoint,
		"path_style":  cfg.UsePathStyle,
	}).Info("connected to blob store")

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.EnsureContainer(checkCtx); err != nil {
		return nil, fmt.Errorf("failed to verify blob store container: %w", err)
	}

	return c, nil
}
