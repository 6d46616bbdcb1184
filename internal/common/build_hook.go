package common

import (
	"github.com/sirupsen/logrus"
)

// BuildHook tags every entry with the build of the binary and the run it
// belongs to, so that journal and sentry events of one batch can be grouped.
type BuildHook struct {
	RunID string
}

func (h *BuildHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *BuildHook) Fire(e *logrus.Entry) error {
	e.Data["build_commit"] = BuildCommit
	if h.RunID != "" {
		e.Data["run_id"] = h.RunID
	}
	return nil
}
