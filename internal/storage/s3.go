package storage

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"

	"github.com/percona/pg-dr-sync/internal/core"
)

// S3 is the AWS-backed storage variant for cross-site-durable manifest
// storage, used when storage.kind == "s3".
type S3 struct {
	client *s3.S3
	bucket string
	prefix string
}

// NewS3 builds an S3 backend for bucket/prefix in region (or the SDK's
// default credential-chain region if empty).
func NewS3(bucket, prefix, region string) (*S3, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, errors.Wrap(err, "new aws session")
	}
	return &S3{client: s3.New(sess), bucket: bucket, prefix: prefix}, nil
}

func (s *S3) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return strings.TrimSuffix(s.prefix, "/") + "/" + name
}

func (s *S3) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
		Body:   bytes.NewReader(data),
	})
	return errors.Wrapf(err, "s3 put %s", name)
}

func (s *S3) Get(ctx context.Context, name string) ([]byte, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if isAWSNotFound(err) {
		return nil, errors.Wrapf(core.ErrNotFound, "%s", name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "s3 get %s", name)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (s *S3) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	err := s.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.key(prefix)),
	}, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, obj := range page.Contents {
			key := aws.StringValue(obj.Key)
			if s.prefix != "" {
				key = strings.TrimPrefix(key, strings.TrimSuffix(s.prefix, "/")+"/")
			}
			names = append(names, key)
		}
		return true
	})
	return names, errors.Wrapf(err, "s3 list %s", prefix)
}

func (s *S3) Probe(ctx context.Context, name string) (bool, error) {
	_, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if isAWSNotFound(err) {
		return false, nil
	}
	return err == nil, errors.Wrapf(err, "s3 head %s", name)
}

func isAWSNotFound(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "NoSuchKey")
}
