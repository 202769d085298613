/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// DefaultS3Prefix is the object key prefix for collections.
const DefaultS3Prefix = "airtime/store"

// S3Config holds S3 client configuration. Endpoint targets S3-compatible
// services such as MinIO and switches to path-style addressing.
type S3Config struct {
	Region          string
	Bucket          string
	Prefix          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// ObjectAPI is the subset of the S3 client used for persistence.
type ObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Persistence stores each collection as one JSON object.
type S3Persistence struct {
	client ObjectAPI
	bucket string
	prefix string
}

// NewS3Persistence builds a client from cfg. Static credentials are used when
// both keys are set, otherwise the default AWS credential chain.
func NewS3Persistence(ctx context.Context, cfg S3Config) (*S3Persistence, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3PersistenceFromClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewS3PersistenceFromClient wraps an existing client.
func NewS3PersistenceFromClient(client ObjectAPI, bucket, prefix string) *S3Persistence {
	if prefix == "" {
		prefix = DefaultS3Prefix
	}
	return &S3Persistence{client: client, bucket: bucket, prefix: prefix}
}

func (p *S3Persistence) objectKey(key string) string {
	return path.Join(p.prefix, key+".json")
}

// Load reads the object for key. A missing object is not an error.
func (p *S3Persistence) Load(ctx context.Context, key string) ([]byte, bool, error) {
	data, _, ok, err := p.get(ctx, key)
	return data, ok, err
}

func (p *S3Persistence) get(ctx context.Context, key string) (data []byte, etag string, ok bool, err error) {
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.objectKey(key)),
	})
	var missing *types.NoSuchKey
	if errors.As(err, &missing) {
		return nil, "", false, nil
	}
	if err != nil {
		return nil, "", false, fmt.Errorf("load %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err = io.ReadAll(out.Body)
	if err != nil {
		return nil, "", false, fmt.Errorf("read %s: %w", key, err)
	}
	return data, aws.ToString(out.ETag), true, nil
}

// Update uses conditional writes: If-Match on the ETag that was read, or
// If-None-Match for a first write. A failed precondition is retried.
func (p *S3Persistence) Update(ctx context.Context, key string, fn UpdateFunc) error {
	return retryConflicts(ctx, key, func() error {
		current, etag, found, err := p.get(ctx, key)
		if err != nil {
			return err
		}
		next, err := fn(current, found)
		if err != nil {
			return err
		}

		in := &s3.PutObjectInput{
			Bucket:        aws.String(p.bucket),
			Key:           aws.String(p.objectKey(key)),
			Body:          bytes.NewReader(next),
			ContentType:   aws.String("application/json"),
			ContentLength: aws.Int64(int64(len(next))),
		}
		if found {
			in.IfMatch = aws.String(etag)
		} else {
			in.IfNoneMatch = aws.String("*")
		}
		_, err = p.client.PutObject(ctx, in)
		if isPreconditionFailure(err) {
			return errConflict
		}
		if err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
		return nil
	})
}

func isPreconditionFailure(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "PreconditionFailed", "ConditionalRequestConflict":
		return true
	}
	return false
}

// Save overwrites the object for key.
func (p *S3Persistence) Save(ctx context.Context, key string, data []byte) error {
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(p.objectKey(key)),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
