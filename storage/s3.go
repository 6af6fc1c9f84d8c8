package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// S3 accepts at most this many keys per DeleteObjects call
const maxDeleteBatch = 1000

type S3Storage struct {
	Bucket   Bucket
	s3Client *s3.S3
}

func NewS3Storage(bucket *Bucket) (*S3Storage, error) {
	client, err := bucket.CreateSVC()
	if err != nil {
		return nil, err
	}
	return &S3Storage{Bucket: *bucket, s3Client: client}, nil
}

func (s *S3Storage) Upload(ctx context.Context, path string, reader io.Reader, mimeType string) error {
	path, err := cleanPath(path)
	if err != nil {
		return err
	}
	uploader := s3manager.NewUploaderWithClient(s.s3Client)
	_, err = uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      &s.Bucket.Name,
		Key:         aws.String(s.Bucket.GetRemotePath(path)),
		ContentType: &mimeType,
		Body:        reader,
	})
	return err
}

func (s *S3Storage) PublicURL(path string) string {
	return s.Bucket.BaseURL() + s.Bucket.GetRemotePath(strings.TrimLeft(path, "/"))
}

func (s *S3Storage) PathFromURL(url string) (string, bool) {
	base := s.Bucket.BaseURL()
	if !strings.HasPrefix(url, base) {
		return "", false
	}
	key := strings.TrimPrefix(url, base)
	if prefix := strings.Trim(s.Bucket.Prefix, "/"); prefix != "" {
		if !strings.HasPrefix(key, prefix+"/") {
			return "", false
		}
		key = strings.TrimPrefix(key, prefix+"/")
	}
	path, err := cleanPath(key)
	return path, err == nil
}

func (s *S3Storage) Remove(ctx context.Context, paths []string) error {
	var errs []error
	objects := make([]*s3.ObjectIdentifier, 0, len(paths))
	for _, path := range paths {
		path, err := cleanPath(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		objects = append(objects, &s3.ObjectIdentifier{Key: aws.String(s.Bucket.GetRemotePath(path))})
	}
	for start := 0; start < len(objects); start += maxDeleteBatch {
		end := min(start+maxDeleteBatch, len(objects))
		out, err := s.s3Client.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
			Bucket: &s.Bucket.Name,
			Delete: &s3.Delete{Objects: objects[start:end], Quiet: aws.Bool(true)},
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, e := range out.Errors {
			errs = append(errs, fmt.Errorf("%s: %s", aws.StringValue(e.Key), aws.StringValue(e.Message)))
		}
	}
	return errors.Join(errs...)
}
