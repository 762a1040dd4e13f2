package config

import (
	"context"
	"fmt"

	"github.com/omnistor/omnistor/pkg/provider"
	"github.com/omnistor/omnistor/pkg/provider/file"
	"github.com/omnistor/omnistor/pkg/provider/s3"
)

// OpenBackend constructs a provider from a backend profile.
func OpenBackend(ctx context.Context, b BackendConfig) (provider.Provider, error) {
	switch b.Type {
	case "s3":
		return s3.New(ctx, s3.Config{
			Bucket:          b.Bucket,
			Region:          b.Region,
			Endpoint:        b.Endpoint,
			Profile:         b.Profile,
			AccessKeyID:     b.AccessKeyID,
			SecretAccessKey: b.SecretAccessKey,
			ForcePathStyle:  b.ForcePathStyle,
		})
	case "file":
		return file.New(file.Config{BaseDir: b.BaseDir})
	default:
		return nil, fmt.Errorf("config: unknown backend type %q", b.Type)
	}
}
