package worker

import (
	"time"

	"viralcut/internal/pkg/logger"
	"viralcut/internal/worker/processor"
)

type Deps struct {
	Queue    Queue
	Repo     processor.BatchRepo
	Pipeline processor.Pipeline
	Progress processor.ProgressRecorder
	Log      *logger.Logger

	// PopWait is how long one BRPOP blocks before the loop checks ctx again.
	PopWait time.Duration
	// BatchTimeout bounds one batch; zero means no limit.
	BatchTimeout time.Duration
}
