package catalog

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"codeval/internal/eval/model"
	appErr "codeval/pkg/errors"
)

// LocalSource reads problem definitions from a directory of JSON files,
// one `<problemID>.json` per problem. Used for development and tests.
type LocalSource struct {
	dir string
}

func NewLocalSource(dir string) *LocalSource {
	return &LocalSource{dir: dir}
}

func (s *LocalSource) Problem(_ context.Context, problemID string) (model.Problem, error) {
	if problemID == "" || strings.ContainsAny(problemID, "/\\") || strings.Contains(problemID, "..") {
		return model.Problem{}, appErr.Newf(appErr.ProblemNotFound, "invalid problem id: %q", problemID)
	}
	raw, err := os.ReadFile(filepath.Join(s.dir, problemID+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return model.Problem{}, appErr.Newf(appErr.ProblemNotFound, "problem %s not found", problemID)
		}
		return model.Problem{}, appErr.Wrapf(err, appErr.CatalogFetchFailed, "read problem %s failed", problemID)
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
