package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/sirupsen/logrus"

	apperrors "brokle/pkg/errors"
)

// ErrNotFound is returned by Get when the key does not exist, distinct from
// transient failures (network errors, throttling) which return a wrapped
// ServiceUnavailable error instead.
var ErrNotFound = errors.New("blobstore: object not found")

// Put writes content under key with the given content type.
func (c *Client) Put(ctx context.Context, key string, content []byte, contentType string) error {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"bucket": c.bucket,
			"key":    key,
		}).Error("failed to put object")
		return apperrors.NewServiceUnavailableError(fmt.Sprintf("failed to write %s to blob store: %v", key, err))
	}

	c.logger.WithFields(logrus.Fields{
		"bucket": c.bucket,
		"key":    key,
		"size":   len(content),
	}).Debug("wrote object to blob store")
	return nil
}

// PutJSON marshals v and stores it under key with a JSON content type.
func (c *Client) PutJSON(ctx context.Context, key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal blob payload: %w", err)
	}
	return c.Put(ctx, key, body, "application/json")
}

// Get fetches the object at key. It returns ErrNotFound when the key does
// not exist, distinguishing that case from transient infrastructure errors
// so callers can decide whether a retry makes sense.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		c.logger.WithError(err).WithFields(logrus.Fields{
			"bucket": c.bucket,
			"key":    key,
		}).Error("failed to get object")
		return nil, apperrors.NewServiceUnavailableError(fmt.Sprintf("failed to read %s from blob store: %v", key, err))
	}
	defer result.Body.Close()

	content, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob body: %w", err)
	}
	return content, nil
}

// EnsureContainer verifies the configured bucket exists, creating it when it
// does not. This is safe to call on every startup: CreateBucket on an
// already-owned bucket is a no-op for most providers and MinIO returns
// BucketAlreadyOwnedByYou, which is treated as success.
func (c *Client) EnsureContainer(ctx context.Context) error {
	_, err := c.s3.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return fmt.Errorf("failed to check blob store bucket %q: %w", c.bucket, err)
	}

	_, err = c.s3.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(c.bucket)})
	if err != nil {
		var owned *s3types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return fmt.Errorf("failed to create blob store bucket %q: %w", c.bucket, err)
	}
	return nil
}

// isNotFound reports whether err represents a missing key or bucket, as
// opposed to a transient or permission failure. The AWS SDK v2 surfaces this
// either as a typed NoSuchKey/NotFound error or, for some providers
// (including MinIO on HeadObject/HeadBucket), as a generic smithy API error
// carrying a "NotFound" code with no body to decode into a typed error.
func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *s3types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "404":
			return true
		}
	}
	return false
}
