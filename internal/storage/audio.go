// Package storage presigns direct uploads of recording audio to an
// S3-compatible bucket (MinIO, S3, R2, ...).
//
// Audio never passes through the API server. A client asks for an upload
// URL, PUTs the file straight to the bucket, then stores the returned
// AudioURL in the recording.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// objectPrefix groups every uploaded take under one folder in the bucket.
const objectPrefix = "recordings/"

// Options configures an AudioStore.
type Options struct {
	Endpoint  string // host[:port], no scheme
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	PublicURL string        // optional base for AudioURL, e.g. a CDN
	Expiry    time.Duration // lifetime of a presigned URL
}

// AudioStore issues presigned PUT URLs for new audio objects.
type AudioStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
	expiry    time.Duration
	now       func() time.Time
}

// Upload is a presigned upload slot.
type Upload struct {
	UploadURL string    `json:"upload_url"`
	AudioURL  string    `json:"audio_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewAudioStore builds the MinIO client. Setting Region lets the client sign
// URLs without first asking the server for the bucket's location.
func NewAudioStore(opts Options) (*AudioStore, error) {
	if opts.Endpoint == "" || opts.Bucket == "" {
		return nil, fmt.Errorf("storage: endpoint and bucket are required")
	}
	if opts.Expiry <= 0 {
		return nil, fmt.Errorf("storage: presign expiry must be positive, got %s", opts.Expiry)
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: creating MinIO client: %w", err)
	}

	publicURL := strings.TrimRight(opts.PublicURL, "/")
	if publicURL == "" {
		publicURL = client.EndpointURL().String() + "/" + opts.Bucket
	}

	return &AudioStore{
		client:    client,
		bucket:    opts.Bucket,
		publicURL: publicURL,
		expiry:    opts.Expiry,
		now:       time.Now,
	}, nil
}

// PresignUpload reserves a new object key ending in ext (e.g. ".mp3") and
// returns a URL the client can PUT the audio to until ExpiresAt.
func (s *AudioStore) PresignUpload(ctx context.Context, ext string) (*Upload, error) {
	key := NewObjectKey(ext)

	issued := s.now()
	u, err := s.client.PresignedPutObject(ctx, s.bucket, key, s.expiry)
	if err != nil {
		return nil, fmt.Errorf("storage: presigning %s: %w", key, err)
	}

	return &Upload{
		UploadURL: u.String(),
		AudioURL:  s.publicURL + "/" + (&url.URL{Path: key}).EscapedPath(),
		ExpiresAt: issued.Add(s.expiry).UTC(),
	}, nil
}

// NewObjectKey returns "recordings/<uuid><ext>". Random keys mean two
// uploads never overwrite each other and keys reveal nothing about the user.
func NewObjectKey(ext string) string {
	return path.Join(objectPrefix, uuid.NewString()+strings.ToLower(ext))
}
