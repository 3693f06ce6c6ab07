package executor

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"codeval/internal/eval/sandbox/spec"
	appErr "codeval/pkg/errors"
	"codeval/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// createScratchDir creates the exclusive working directory for one
// execution. The returned cleanup removes it; removal failure is logged
// and never fatal.
func createScratchDir(root, submissionID, testID string) (string, func(), error) {
	name := submissionID + "-" + testID + "-" + uuid.NewString()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", func() {}, appErr.Wrapf(err, appErr.ScratchDirFailed, "create scratch dir failed")
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn(context.Background(), "scratch dir cleanup failed",
				zap.String("dir", dir), zap.Error(err))
		}
	}
	return dir, cleanup, nil
}

func writeUnitFiles(dir string, files map[string][]byte) error {
	for rel, contents := range files {
		clean := filepath.Clean(rel)
		if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
			return appErr.Newf(appErr.InvalidParams, "invalid unit file path: %s", rel)
		}
		path := filepath.Join(dir, clean)
		if sub := filepath.Dir(path); sub != dir {
			if err := os.MkdirAll(sub, 0755); err != nil {
				return appErr.Wrapf(err, appErr.ScratchDirFailed, "create unit subdir failed")
			}
		}
		if err := os.WriteFile(path, contents, 0644); err != nil {
			return appErr.Wrapf(err, appErr.ScratchDirFailed, "write unit file failed")
		}
	}
	return nil
}

func validateRunSpec(runSpec spec.RunSpec) error {
	if runSpec.SubmissionID == "" {
		return appErr.ValidationError("submission_id", "required")
	}
	if runSpec.TestID == "" {
		return appErr.ValidationError("test_id", "required")
	}
	if len(runSpec.RunCmd) == 0 {
		return appErr.ValidationError("run_cmd", "required")
	}
	if len(runSpec.Files) == 0 {
		return appErr.ValidationError("files", "required")
	}
	return nil
}

func defaultEnv(env []string) []string {
	if len(env) > 0 {
		return env
	}
	return []string{"PATH=/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"}
}
