package services

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dmitrijs2005/beyond/internal/common"
	sc "github.com/dmitrijs2005/beyond/internal/server/config"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
	presignDeleteObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignDeleteObject(ctx, in, optFns...)
	}
)

// avatarURLExpiry bounds how long a redirect target stays usable.
const avatarURLExpiry = 3 * time.Minute

// allowedAvatarContentTypes whitelists the image types an avatar upload may
// declare.
var allowedAvatarContentTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
	"image/gif":  {},
}

// AvatarService hands out short-lived presigned URLs on the S3-compatible
// backend holding user avatars. When no bucket is configured the service is
// disabled and every operation returns common.ErrorUnavailable.
type AvatarService struct {
	config *sc.Config
}

func NewAvatarService(cfg *sc.Config) *AvatarService {
	return &AvatarService{config: cfg}
}

// Enabled reports whether avatar storage is configured.
func (s *AvatarService) Enabled() bool {
	return s.config.S3Bucket != ""
}

// AllowedContentType reports whether the declared upload type is an
// accepted image type.
func (s *AvatarService) AllowedContentType(contentType string) bool {
	_, ok := allowedAvatarContentTypes[contentType]
	return ok
}

// StorageKey returns the object key holding the user's avatar. One object
// per user; uploads overwrite in place.
func StorageKey(user string) string {
	return fmt.Sprintf("users/%s/avatar", user)
}

func (s *AvatarService) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

// PresignedPutURL returns a URL the client can PUT the avatar bytes to.
// The declared content type is bound into the signature.
func (s *AvatarService) PresignedPutURL(ctx context.Context, user, contentType string) (string, error) {
	if !s.Enabled() {
		return "", common.ErrorUnavailable
	}

	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket
	key := StorageKey(user)

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		ContentType: &contentType,
	}, s3.WithPresignExpires(avatarURLExpiry))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}

// PresignedGetURL returns a URL the avatar can be fetched from.
func (s *AvatarService) PresignedGetURL(ctx context.Context, user string) (string, error) {
	if !s.Enabled() {
		return "", common.ErrorUnavailable
	}

	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket
	key := StorageKey(user)

	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(avatarURLExpiry))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}

// PresignedDeleteURL returns a URL that removes the avatar object.
func (s *AvatarService) PresignedDeleteURL(ctx context.Context, user string) (string, error) {
	if !s.Enabled() {
		return "", common.ErrorUnavailable
	}

	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket
	key := StorageKey(user)

	req, err := presignDeleteObject(presignClient, ctx, &s3.DeleteObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(avatarURLExpiry))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}
