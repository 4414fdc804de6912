package storage

import (
	"cmp"
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config selects and configures a FileStore.
type Config struct {
	// URI is file:///dir, a plain directory path, or s3://bucket/prefix.
	URI string `yaml:"uri" json:"uri"`

	// S3 settings. Region defaults to AWS_REGION, then us-east-1. Keys
	// default to AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY; with no keys
	// requests are anonymous.
	Region    string `yaml:"region,omitempty" json:"region,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	PathStyle bool   `yaml:"path_style,omitempty" json:"path_style,omitempty"`
	AccessKey string `yaml:"access_key,omitempty" json:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty" json:"secret_key,omitempty"`
}

// Open builds the FileStore described by cfg.
func Open(_ context.Context, cfg Config) (FileStore, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("storage: empty uri")
	}
	if !strings.Contains(cfg.URI, "://") {
		return NewLocal(cfg.URI)
	}
	u, err := url.Parse(cfg.URI)
	if err != nil {
		return nil, fmt.Errorf("storage: parse uri: %w", err)
	}
	switch u.Scheme {
	case "file":
		dir := u.Path
		if u.Host != "" && u.Host != "localhost" {
			dir = u.Host + u.Path
		}
		return NewLocal(dir)
	case "s3":
		if u.Host == "" {
			return nil, fmt.Errorf("storage: %q has no bucket", cfg.URI)
		}
		return NewS3(newS3Client(cfg), u.Host, u.Path), nil
	default:
		return nil, fmt.Errorf("storage: unsupported scheme %q", u.Scheme)
	}
}

func newS3Client(cfg Config) *s3.Client {
	region := cmp.Or(cfg.Region, os.Getenv("AWS_REGION"), "us-east-1")
	access := cmp.Or(cfg.AccessKey, os.Getenv("AWS_ACCESS_KEY_ID"))
	secret := cmp.Or(cfg.SecretKey, os.Getenv("AWS_SECRET_ACCESS_KEY"))

	opts := s3.Options{
		Region:       region,
		UsePathStyle: cfg.PathStyle,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	if access != "" && secret != "" {
		var session string
		if cfg.AccessKey == "" {
			session = os.Getenv("AWS_SESSION_TOKEN")
		}
		opts.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) {
				return aws.Credentials{
					AccessKeyID:     access,
					SecretAccessKey: secret,
					SessionToken:    session,
					Source:          "rvc",
				}, nil
			}))
	} else {
		opts.Credentials = aws.AnonymousCredentials{}
	}
	return s3.New(opts)
}
