// Package pipeline builds and runs the per-architecture device tool
// pipeline: bitcode merge and lowering for GCN targets, direct assembly
// for PTX targets, and the packaging stage that folds every
// per-architecture artifact into one fat-binary container.
package pipeline

// Stage is a single external tool invocation.
type Stage struct {
	// Name labels the stage in logs and failure reports.
	Name string
	// Exec is the tool path.
	Exec string
	// Args is the complete ordered argument list.
	Args []string
	// Inputs are the artifacts the stage consumes, for plan output.
	Inputs []string
	// Output is the artifact the stage produces, empty for diagnostic
	// stages that produce none.
	Output string
	// Temp marks Output as session-scoped.
	Temp bool
}

// Job is the ordered stage list for one compilation. Stages run strictly
// in append order; a stage may only consume artifacts produced by earlier
// stages or the original inputs, which holds by construction since every
// builder threads its own temporaries forward.
type Job struct {
	stages []Stage
}

func (j *Job) Append(stages ...Stage) {
	j.stages = append(j.stages, stages...)
}

func (j *Job) Stages() []Stage {
	return j.stages
}
