package storage

import (
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// Bucket describes an S3 (or compatible) bucket
type Bucket struct {
	Name     string
	Region   string
	Endpoint string // Empty for AWS
	Prefix   string // Prefix of all object keys
	Key      string
	Secret   string
}

// CreateSVC creates an S3 client. Without a key the default AWS credential chain is used.
func (b *Bucket) CreateSVC() (*s3.S3, error) {
	cfg := aws.NewConfig().WithRegion(b.Region)
	if b.Key != "" {
		cfg = cfg.WithCredentials(credentials.NewStaticCredentials(b.Key, b.Secret, ""))
	}
	if b.Endpoint != "" {
		cfg = cfg.WithEndpoint(b.Endpoint).WithS3ForcePathStyle(true)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, err
	}
	return s3.New(sess), nil
}

func (b *Bucket) GetRemotePath(path string) string {
	prefix := strings.Trim(b.Prefix, "/")
	if prefix == "" {
		return path
	}
	return prefix + "/" + path
}

// BaseURL is the public address of the bucket root
func (b *Bucket) BaseURL() string {
	if b.Endpoint != "" {
		return strings.TrimRight(b.Endpoint, "/") + "/" + b.Name + "/"
	}
	return "https://" + b.Name + ".s3." + b.Region + ".amazonaws.com/"
}
