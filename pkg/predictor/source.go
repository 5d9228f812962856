package predictor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/iris-ai/irisd/pkg/config"
)

// maxArtifactSize bounds how much of an artifact is read into memory.
const maxArtifactSize = 64 << 20

// ObjectGetter is the subset of the S3 client used to fetch artifacts.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type loadOptions struct {
	s3     config.S3Config
	client ObjectGetter
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

// WithS3Config sets the region and endpoint used for s3:// locations.
func WithS3Config(cfg config.S3Config) LoadOption {
	return func(o *loadOptions) { o.s3 = cfg }
}

// WithS3Client sets the client used for s3:// locations instead of one
// built from the default AWS credential chain.
func WithS3Client(c ObjectGetter) LoadOption {
	return func(o *loadOptions) { o.client = c }
}

// Load reads, decompresses, decodes and validates the artifact at location.
//
// location is a local path, a file:// URL or an s3://bucket/key URL. A
// ".gz" or ".zst" suffix selects decompression; the remaining extension
// selects the encoding (".yaml"/".yml" for YAML, JSON otherwise).
func Load(ctx context.Context, location string, opts ...LoadOption) (*Model, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	rc, name, err := open(ctx, location, &o)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	r, name, err := decompress(rc, name)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(io.LimitReader(r, maxArtifactSize+1))
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", location, err)
	}
	if len(data) > maxArtifactSize {
		return nil, fmt.Errorf("artifact %s exceeds %d bytes", location, maxArtifactSize)
	}

	a, err := Decode(data, formatOf(name))
	if err != nil {
		return nil, fmt.Errorf("artifact %s: %w", location, err)
	}
	m, err := Build(a)
	if err != nil {
		return nil, fmt.Errorf("artifact %s: %w", location, err)
	}
	return m, nil
}

// LoadOrUnavailable loads the model, logging and returning an Unavailable
// predictor on failure so the process can keep serving health and list
// requests.
func LoadOrUnavailable(ctx context.Context, logger *slog.Logger, location string, opts ...LoadOption) Predictor {
	m, err := Load(ctx, location, opts...)
	if err != nil {
		logger.ErrorContext(ctx, "model load failed, inference disabled",
			"location", location,
			"error", err,
		)
		return &Unavailable{Cause: err}
	}
	logger.InfoContext(ctx, "model loaded",
		"location", location,
		"name", m.Name(),
		"kind", m.Kind(),
	)
	return m
}

// open returns the raw artifact stream and the object name used to infer
// compression and encoding.
func open(ctx context.Context, location string, o *loadOptions) (io.ReadCloser, string, error) {
	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Plain path (a one-letter scheme is a Windows drive).
		f, err := os.Open(location)
		if err != nil {
			return nil, "", fmt.Errorf("open artifact: %w", err)
		}
		return f, location, nil
	}

	switch u.Scheme {
	case "file":
		f, err := os.Open(u.Path)
		if err != nil {
			return nil, "", fmt.Errorf("open artifact: %w", err)
		}
		return f, u.Path, nil
	case "s3":
		bucket, key := u.Host, strings.TrimPrefix(u.Path, "/")
		if bucket == "" || key == "" {
			return nil, "", fmt.Errorf("invalid s3 location %q", location)
		}
		client := o.client
		if client == nil {
			c, err := newS3Client(ctx, o.s3)
			if err != nil {
				return nil, "", err
			}
			client = c
		}
		out, err := client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, "", fmt.Errorf("get s3 artifact: %w", err)
		}
		return out.Body, key, nil
	default:
		return nil, "", fmt.Errorf("unsupported artifact scheme %q", u.Scheme)
	}
}

func newS3Client(ctx context.Context, cfg config.S3Config) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// decompress wraps r according to the name's compression suffix and
// returns the name with that suffix removed.
func decompress(r io.Reader, name string) (io.ReadCloser, string, error) {
	switch path.Ext(name) {
	case ".gz":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, "", fmt.Errorf("gzip artifact: %w", err)
		}
		return zr, strings.TrimSuffix(name, ".gz"), nil
	case ".zst":
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, "", fmt.Errorf("zstd artifact: %w", err)
		}
		return dec.IOReadCloser(), strings.TrimSuffix(name, ".zst"), nil
	default:
		return io.NopCloser(r), name, nil
	}
}

func formatOf(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}
