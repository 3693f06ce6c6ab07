package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"

	"codeval/internal/eval/model"
	appErr "codeval/pkg/errors"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// maxProblemBytes caps a single problem object; suites beyond this are
// authoring mistakes, not inputs.
const maxProblemBytes = 32 << 20

// MinIOConfig holds object storage settings for the problem bucket.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	UseSSL    bool   `yaml:"useSSL"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
}

// MinIOSource fetches problem definitions from an S3-compatible bucket,
// one JSON object per problem under `<prefix>/<problemID>.json`.
type MinIOSource struct {
	client *minio.Client
	bucket string
	prefix string
}

func NewMinIOSource(cfg MinIOConfig) (*MinIOSource, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client failed: %w", err)
	}
	return &MinIOSource{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *MinIOSource) Problem(ctx context.Context, problemID string) (model.Problem, error) {
	if problemID == "" {
		return model.Problem{}, appErr.New(appErr.ProblemNotFound).WithMessage("empty problem id")
	}
	key := path.Join(s.prefix, problemID+".json")
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return model.Problem{}, appErr.Wrapf(err, appErr.CatalogFetchFailed, "minio get %s failed", key)
	}
	defer obj.Close()

	raw, err := io.ReadAll(io.LimitReader(obj, maxProblemBytes))
	if err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
			return model.Problem{}, appErr.Newf(appErr.ProblemNotFound, "problem %s not found", problemID)
		}
		return model.Problem{}, appErr.Wrapf(err, appErr.CatalogFetchFailed, "minio read %s failed", key)
	}

	var p model.Problem
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.Problem{}, appErr.Wrapf(err, appErr.TestCaseInvalid, "decode problem %s failed", problemID)
	}
	if p.ID == "" {
		p.ID = problemID
	}
	return normalizeProblem(p)
}
