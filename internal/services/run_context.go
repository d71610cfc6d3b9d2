package services

import (
	"github.com/sirupsen/logrus"
)

// RunContext carries the per-run progress counter and failure ledger through
// every phase of a sync run. Each run owns exactly one; it is never shared
// across runs.
type RunContext struct {
	Progress *Progress
	Ledger   *FailureLedger
	Log      logrus.FieldLogger
}

// NewRunContext creates the state for one sync run. The progress observer
// may be nil.
func NewRunContext(log logrus.FieldLogger, observer func(total int)) *RunContext {
	return &RunContext{
		Progress: NewProgress(observer),
		Ledger:   NewFailureLedger(),
		Log:      log,
	}
}
