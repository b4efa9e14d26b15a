// Package s3 connects to the S3-compatible buffer and measures bucket usage.
package s3

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	awss3 "github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/mesh-intelligence/storagereport/pkg/types"
)

type (
	// Client is the subset of the S3 API the scanner calls.
	Client = s3iface.S3API

	// credentialsFile is the legacy JSON secrets file layout.
	credentialsFile struct {
		URL       string `json:"url"`
		AccessKey string `json:"accessKey"`
		SecretKey string `json:"secretKey"`
	}
)

const defaultRegion = "us-east-1"

// NewClient returns an S3 client for the configured endpoint. Buckets are
// addressed path-style since the buffer is not AWS and has no per-bucket
// DNS names.
func NewClient(cfg types.S3Config) (Client, error) {
	if cfg.URL == "" {
		return nil, types.ErrS3URLEmpty
	}

	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}

	awsCfg := &aws.Config{
		Endpoint:         aws.String(Endpoint(cfg)),
		Region:           aws.String(region),
		S3ForcePathStyle: aws.Bool(true),
		DisableSSL:       aws.Bool(!cfg.Secure),
	}
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	} else {
		awsCfg.Credentials = credentials.AnonymousCredentials
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	return awss3.New(sess), nil
}

// Endpoint turns the configured host[:port] into a URL. A URL that already
// carries a scheme is used as is.
func Endpoint(cfg types.S3Config) string {
	if strings.Contains(cfg.URL, "://") {
		return cfg.URL
	}
	if cfg.Secure {
		return "https://" + cfg.URL
	}
	return "http://" + cfg.URL
}

// ApplyCredentialsFile fills blank URL and key fields of cfg from the JSON
// file named by cfg.CredentialsFile. Values already set in cfg win.
func ApplyCredentialsFile(cfg *types.S3Config) error {
	if cfg.CredentialsFile == "" {
		return nil
	}

	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return fmt.Errorf("read s3 credentials: %w", err)
	}

	var creds credentialsFile
	if err := json.Unmarshal(data, &creds); err != nil {
		return fmt.Errorf("parse s3 credentials %s: %w", cfg.CredentialsFile, err)
	}

	if cfg.URL == "" {
		cfg.URL = creds.URL
	}
	if cfg.AccessKey == "" {
		cfg.AccessKey = creds.AccessKey
	}
	if cfg.SecretKey == "" {
		cfg.SecretKey = creds.SecretKey
	}
	return nil
}
