package mediastore

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"creative_gateway/internal/models"
	"creative_gateway/internal/providers"
	"creative_gateway/internal/utils"
)

// maxDownloadBytes caps how much we pull from a provider-hosted URL.
const maxDownloadBytes = 256 << 20

// allowedContentTypes is the explicit allow-list for stored media. Anything
// else, notably text/html, image/svg+xml, script types and octet-stream, is
// rejected before any upload: a compromised provider response must not plant
// executable content in public storage.
var allowedContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
	"video/mp4":  ".mp4",
	"video/webm": ".webm",
	"audio/mpeg": ".mp3",
	"audio/wav":  ".wav",
}

// Config holds media store settings.
type Config struct {
	Bucket        string
	Region        string
	Prefix        string
	PublicBaseURL string // e.g. CDN domain; derived from bucket if empty
}

// Store uploads generated assets to S3 under unique keys and hands back
// publicly resolvable URLs. Keys never collide, so a retried persist cannot
// corrupt an existing object.
type Store struct {
	client   *s3.Client
	bucket   string
	prefix   string
	baseURL  string
	download *http.Client
	logger   *utils.Logger
}

// New creates a media store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}

	return &Store{
		client:   s3.NewFromConfig(awsCfg),
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		download: &http.Client{Timeout: 120 * time.Second},
		logger:   utils.NewLogger("mediastore"),
	}, nil
}

// Persist stores a provider result durably and returns its public URL.
// Inline bytes are preferred; a remote URL is downloaded first. The content
// type comes from the provider, the data URI prefix, or the download
// response, in that order, and must pass the allow-list.
func (s *Store) Persist(ctx context.Context, result *providers.MediaResult, modality models.Modality) (string, error) {
	data := result.Bytes
	contentType := result.ContentType

	if len(data) == 0 {
		switch {
		case strings.HasPrefix(result.URL, "data:"):
			var err error
			data, contentType, err = decodeDataURI(result.URL, contentType)
			if err != nil {
				return "", err
			}
		case result.URL != "":
			var err error
			data, contentType, err = s.fetch(ctx, result.URL, contentType)
			if err != nil {
				return "", err
			}
		default:
			return "", fmt.Errorf("media result has neither bytes nor a URL")
		}
	}

	ext, err := validateContentType(contentType)
	if err != nil {
		return "", err
	}

	// Timestamp plus a random suffix keeps retried uploads from colliding.
	key := fmt.Sprintf("%s%s/%s-%s%s",
		s.prefix, modality, time.Now().UTC().Format("20060102-150405"), shortID(), ext)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(normalizeContentType(contentType)),
		ACL:         s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	s.logger.Info("Stored asset", "key", key, "bytes", len(data), "content_type", contentType)
	return s.baseURL + "/" + key, nil
}

// fetch downloads a provider-hosted asset.
func (s *Store) fetch(ctx context.Context, url, contentType string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := s.download.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("asset download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read asset body: %w", err)
	}

	// Provider-reported type wins over the download header.
	if contentType == "" {
		contentType = resp.Header.Get("Content-Type")
	}
	return data, contentType, nil
}

// decodeDataURI handles inline data: URIs some vendors return.
func decodeDataURI(uri, contentType string) ([]byte, string, error) {
	rest := strings.TrimPrefix(uri, "data:")
	meta, encoded, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data URI")
	}

	if contentType == "" {
		contentType = strings.TrimSuffix(meta, ";base64")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode data URI: %w", err)
	}
	return data, contentType, nil
}

// validateContentType enforces the allow-list and resolves the file extension.
func validateContentType(contentType string) (string, error) {
	normalized := normalizeContentType(contentType)
	if normalized == "" {
		return "", fmt.Errorf("missing content type on generated asset")
	}

	ext, ok := allowedContentTypes[normalized]
	if !ok {
		return "", fmt.Errorf("content type %q is not allowed for stored media", normalized)
	}
	return ext, nil
}

// normalizeContentType lowercases and strips parameters like "; charset=".
func normalizeContentType(contentType string) string {
	base, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

func shortID() string {
	return uuid.NewString()[:8]
}
