package archive

import (
	"context"
	"fmt"
)

type SinkType string

const (
	SinkTypeFS  SinkType = "fs"
	SinkTypeS3  SinkType = "s3"
	SinkTypeGCS SinkType = "gcs"
)

// Config selects and configures a sink.
type Config struct {
	Type     SinkType
	Dir      string
	Bucket   string
	Region   string
	Endpoint string
	Prefix   string
}

// NewSink builds the configured sink. GCS needs a build with -tags gcp.
func NewSink(ctx context.Context, cfg Config) (Sink, error) {
	switch cfg.Type {
	case SinkTypeFS, "":
		dir := cfg.Dir
		if dir == "" {
			dir = "data/archive"
		}
		return NewFileSink(dir)
	case SinkTypeS3:
		region := cfg.Region
		if region == "" {
			region = "us-east-1"
		}
		return NewS3Sink(ctx, S3Config{Bucket: cfg.Bucket, Region: region, Endpoint: cfg.Endpoint, Prefix: cfg.Prefix})
	case SinkTypeGCS:
		return newGCSSink(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported archive type: %s", cfg.Type)
	}
}
