// Package ui provides the Bubble Tea TUI for the contract deployer.
package ui

import (
	"github.com/fd1az/flashloan-deployer/business/deployment/domain"
)

// Message types for TUI updates

// StepMsg is sent when a deployment step changes state.
type StepMsg struct {
	Event domain.StepEvent
}

// AccountMsg is sent once the deploying account and its balance are known.
type AccountMsg struct {
	Deployer string
	Balance  string
}

// SubmittedMsg is sent when the creation tx is accepted by the node.
type SubmittedMsg struct {
	Submission *domain.Submission
}

// DeployedMsg is sent when the creation tx is confirmed.
type DeployedMsg struct {
	Record *domain.Record
}

// RecordedMsg is sent when the record file is written.
type RecordedMsg struct {
	Path string
}

// VerifiedMsg carries the post-deployment reads.
type VerifiedMsg struct {
	Verification *domain.Verification
}

// SummaryMsg is sent when the run completes successfully.
type SummaryMsg struct {
	Summary *domain.Summary
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// FinishedMsg tells the TUI the run is over; Err is nil on success.
type FinishedMsg struct {
	Err error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}
