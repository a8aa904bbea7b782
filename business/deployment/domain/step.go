package domain

// Step is one stage of the deployment procedure.
type Step int

const (
	StepSigner Step = iota
	StepBalance
	StepSubmit
	StepConfirm
	StepRecord
	StepVerify
)

// Steps lists every step in execution order.
var Steps = []Step{StepSigner, StepBalance, StepSubmit, StepConfirm, StepRecord, StepVerify}

func (s Step) String() string {
	switch s {
	case StepSigner:
		return "resolve signer"
	case StepBalance:
		return "check balance"
	case StepSubmit:
		return "submit creation tx"
	case StepConfirm:
		return "wait for confirmation"
	case StepRecord:
		return "write record"
	case StepVerify:
		return "verify contract"
	default:
		return "unknown"
	}
}

// StepStatus is the progress state of a step.
type StepStatus int

const (
	StatusPending StepStatus = iota
	StatusRunning
	StatusDone
	StatusWarning
	StatusFailed
)

func (s StepStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusDone:
		return "done"
	case StatusWarning:
		return "warning"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StepEvent reports a step transition.
type StepEvent struct {
	Step   Step
	Status StepStatus
	Detail string
}
