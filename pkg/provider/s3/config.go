// Package s3 implements the provider interfaces for AWS S3 and
// S3-compatible storage, used for s3:// input files and result export.
package s3

// Config configures an S3 provider.
//
// Credentials come from the AWS SDK v2 default chain (environment, shared
// files, profile, instance role) unless AccessKeyID and SecretAccessKey are
// both set.
//
// When Region is empty and the SDK resolves none, AWS S3 uses us-east-1.
// With a custom Endpoint no default region is applied.
type Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string

	Region string

	// Endpoint is a custom endpoint URL for S3-compatible stores such as
	// MinIO (http://localhost:9000). Leave empty for AWS S3.
	Endpoint string

	// Profile is the shared config profile to use.
	Profile string

	AccessKeyID     string
	SecretAccessKey string

	// ForcePathStyle puts the bucket in the path instead of the host name.
	// Most S3-compatible stores need it.
	ForcePathStyle bool
}

// DefaultAWSRegion is the fallback region for AWS S3 when not specified.
const DefaultAWSRegion = "us-east-1"

// listPageSize is the ListObjectsV2 page size.
const listPageSize = 1000

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return &ConfigError{Field: "Bucket", Message: "bucket name is required"}
	}
	if (c.AccessKeyID != "") != (c.SecretAccessKey != "") {
		return &ConfigError{
			Field:   "AccessKeyID/SecretAccessKey",
			Message: "both access key ID and secret access key must be provided together",
		}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "s3 config: " + e.Field + ": " + e.Message
}
