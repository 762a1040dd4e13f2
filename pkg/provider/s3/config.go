// Package s3 implements the provider contract for AWS S3 and
// S3-compatible object stores (MinIO, Wasabi, DigitalOcean Spaces).
package s3

// Config configures an S3 backend.
//
// Credentials resolve through the AWS SDK v2 default chain unless
// AccessKeyID/SecretAccessKey are set explicitly. For S3-compatible
// stores set Endpoint and usually ForcePathStyle.
type Config struct {
	// Bucket is the initial bucket (required). It can be switched later
	// through the container interface.
	Bucket string

	// Region is the AWS region. Empty lets the SDK resolve it from
	// environment or profile; for plain AWS with nothing resolved the
	// us-east-1 fallback applies. No fallback when Endpoint is set.
	Region string

	// Endpoint is a custom endpoint URL for S3-compatible stores.
	// Leave empty for AWS S3.
	Endpoint string

	// Profile selects a shared-config profile. Empty uses the default
	// chain.
	Profile string

	// AccessKeyID and SecretAccessKey are explicit static credentials.
	// Both must be set together; they take precedence over the chain.
	AccessKeyID     string
	SecretAccessKey string

	// ForcePathStyle forces path-style URLs (bucket in path, not
	// subdomain). Required for most S3-compatible stores.
	ForcePathStyle bool

	// MaxKeys is the page size for List. Zero uses DefaultMaxKeys;
	// values over MaxAllowedKeys are clamped.
	MaxKeys int
}

const (
	// DefaultMaxKeys is the default List page size.
	DefaultMaxKeys = 1000

	// MaxAllowedKeys is the page size ceiling S3 enforces.
	MaxAllowedKeys = 1000

	// DefaultAWSRegion is the fallback region for plain AWS S3.
	DefaultAWSRegion = "us-east-1"
)

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return &ConfigError{Field: "Bucket", Message: "bucket name is required"}
	}
	if (c.AccessKeyID != "") != (c.SecretAccessKey != "") {
		return &ConfigError{
			Field:   "AccessKeyID/SecretAccessKey",
			Message: "access key ID and secret access key must be provided together",
		}
	}
	return nil
}

// ConfigError reports a configuration validation failure.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "s3 config: " + e.Field + ": " + e.Message
}
