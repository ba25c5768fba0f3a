package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3Types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/go-kit/log/level"
	"github.com/zkkeyless/go-keyless-prover/global"
	"github.com/zkkeyless/go-keyless-prover/types"
)

// ResourceService fetches the circuit resources (zkey, verification key, witness generator, circuit config)
// from a bucket into the local resources directory
type ResourceService struct {
	env *types.Environment
}

func NewResourceService(env *types.Environment) *ResourceService {
	return &ResourceService{
		env: env,
	}
}

// Resource is one object of the bucket and where it goes locally
type Resource struct {
	Name       string
	LocalPath  string
	Executable bool
}

// Download fetches bucket/prefix/name for every resource, skipping files already present
func (rs *ResourceService) Download(ctx context.Context, bucket, prefix string, resources []Resource) error {
	if rs.env.S3Downloader == nil {
		return errors.New("s3 downloader not configured")
	}
	for _, r := range resources {
		if r.LocalPath == "" {
			continue
		}
		if _, err := os.Stat(r.LocalPath); err == nil {
			level.Info(global.Logger).Log("msg", "resource already present", "path", r.LocalPath)
			continue
		}
		if err := rs.downloadOne(ctx, bucket, path.Join(prefix, r.Name), r.LocalPath, r.Executable); err != nil {
			return err
		}
	}
	return nil
}

func (rs *ResourceService) downloadOne(ctx context.Context, bucket, key, localPath string, executable bool) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(localPath), ".download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	dlCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	n, err := rs.env.S3Downloader.Download(dlCtx, tmp, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	cErr := tmp.Close()
	if err != nil {
		var noKey *s3Types.NoSuchKey
		var apiErr *smithy.GenericAPIError
		if errors.As(err, &noKey) {
			level.Error(global.Logger).Log("msg", "resource does not exist", "bucket", bucket, "key", key)
			return fmt.Errorf("resource s3://%s/%s does not exist", bucket, key)
		} else if errors.As(err, &apiErr) && apiErr.ErrorCode() == "AccessDenied" {
			level.Error(global.Logger).Log("msg", "access denied", "bucket", bucket, "key", key)
			return fmt.Errorf("access denied to s3://%s/%s", bucket, key)
		}
		return err
	}
	if cErr != nil {
		return cErr
	}
	if executable {
		if err := os.Chmod(tmp.Name(), 0755); err != nil {
			return err
		}
	}
	if err := os.Rename(tmp.Name(), localPath); err != nil {
		return err
	}
	level.Info(global.Logger).Log("msg", "resource downloaded", "key", key, "path", localPath, "bytes", n)
	return nil
}
