package domain

import "fmt"

// Reason classifies why a deployment failed.
type Reason string

const (
	ReasonNoSigner            Reason = "no signer"
	ReasonRejected            Reason = "network/contract rejection"
	ReasonConfirmationTimeout Reason = "confirmation timeout"
	ReasonArtifactUnavailable Reason = "contract artifact unavailable"
	ReasonInterrupted         Reason = "interrupted"
)

// DeploymentError is anything preventing a successful, confirmed publication.
type DeploymentError struct {
	Reason Reason
	Step   Step
	Err    error
}

func (e *DeploymentError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("deployment failed at %s: %s", e.Step, e.Reason)
	}
	return fmt.Sprintf("deployment failed at %s: %s: %v", e.Step, e.Reason, e.Err)
}

func (e *DeploymentError) Unwrap() error {
	return e.Err
}

// IOError is anything preventing the deployment record from being written or read.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
