package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/nijaru/yt-blog/models"
	"github.com/pkg/errors"
)

type ArchiveConfig struct {
	AccessKey string
	SecretKey string
	Region    string
	// Endpoint is set for S3-compatible stores such as DigitalOcean Spaces or
	// MinIO; empty means AWS.
	Endpoint string
	Bucket   string
}

// Archive keeps a copy of every generated article and its transcript in
// S3-compatible object storage.
type Archive struct {
	client *s3.Client
	bucket string
}

type archivedArticle struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	SourceTitle string    `json:"source_title"`
	SourceLink  string    `json:"source_link"`
	Content     string    `json:"content"`
	Transcript  string    `json:"transcript"`
	CreatedAt   time.Time `json:"created_at"`
	ArchivedAt  time.Time `json:"archived_at"`
}

func NewArchive(ctx context.Context, cfg ArchiveConfig) (*Archive, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("archive bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
		awsconfig.WithRetryMaxAttempts(1),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load SDK config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Archive{client: client, bucket: cfg.Bucket}, nil
}

// Key is the object key for an article.
func Key(article *models.Article) string {
	return fmt.Sprintf("articles/%d/%d.json", article.OwnerID, article.ID)
}

func (a *Archive) Archive(ctx context.Context, article *models.Article, transcript string) error {
	data, err := json.Marshal(archivedArticle{
		ID:          article.ID,
		OwnerID:     article.OwnerID,
		SourceTitle: article.SourceTitle,
		SourceLink:  article.SourceLink,
		Content:     article.Content,
		Transcript:  transcript,
		CreatedAt:   article.CreatedAt,
		ArchivedAt:  time.Now().UTC(),
	})
	if err != nil {
		return errors.Wrap(err, "failed to marshal article")
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(Key(article)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return errors.Wrapf(err, "failed to archive article %d", article.ID)
	}

	return nil
}
