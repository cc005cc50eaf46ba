package recommend

import "fmt"

// Stage names the pipeline step a failure occurred in.
type Stage string

const (
	StageRetrieve Stage = "retrieve"
	StageGenerate Stage = "generate"
)

// PipelineError wraps a retrieval or generation failure, tagged with the
// failing stage for diagnostics. Reconciliation never produces one: its
// per-item lookup misses only degrade individual fields.
type PipelineError struct {
	Stage Stage
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("recommendation pipeline stage %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
