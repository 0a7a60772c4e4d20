package storage

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store writes images to a bucket under "<folder>/<name>" keys and hands out
// public URLs rooted at publicURL. Objects get a canned ACL only when acl is
// set; buckets with ACLs disabled must grant read access by bucket policy.
type S3Store struct {
	client    objectAPI
	bucket    string
	publicURL string
	acl       types.ObjectCannedACL
}

// NewS3Store uses the default credential chain (environment locally, IAM role
// in production). A non-empty endpoint targets S3-compatible services.
func NewS3Store(ctx context.Context, region, bucket, endpoint, publicURL, acl string) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return newS3Store(client, bucket, publicURL, acl), nil
}

func newS3Store(client objectAPI, bucket, publicURL, acl string) *S3Store {
	return &S3Store{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		acl:       types.ObjectCannedACL(acl),
	}
}

func (s *S3Store) Save(ctx context.Context, folder string, fh *multipart.FileHeader) (string, error) {
	if err := ValidateImage(folder, fh); err != nil {
		return "", err
	}

	file, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	key := path.Join(folder, objectName(fh, time.Now()))
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(fh.Header.Get("Content-Type")),
		ACL:         s.acl,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file to S3: %w", err)
	}

	return s.publicURL + "/" + key, nil
}

func (s *S3Store) Delete(ctx context.Context, location string) error {
	key, ok := s.keyFor(location)
	if !ok {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete S3 object %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) keyFor(location string) (string, bool) {
	if rest, ok := strings.CutPrefix(location, s.publicURL+"/"); ok {
		return rest, rest != ""
	}
	u, err := url.Parse(location)
	if err != nil || u.Path == "" {
		return "", false
	}
	key := strings.TrimPrefix(u.Path, "/")
	return key, key != ""
}
