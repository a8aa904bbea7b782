package infra

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-deployer/business/deployment/app"
	"github.com/fd1az/flashloan-deployer/business/deployment/domain"
	"github.com/fd1az/flashloan-deployer/internal/asset"
	"github.com/fd1az/flashloan-deployer/pkg/ui"
)

// TUIReporter implements Reporter for the Bubble Tea TUI.
type TUIReporter struct {
	send func(tea.Msg)
}

var _ app.Reporter = (*TUIReporter)(nil)

// NewTUIReporter creates a TUIReporter. A nil send uses ui.Send.
func NewTUIReporter(send func(tea.Msg)) *TUIReporter {
	if send == nil {
		send = ui.Send
	}
	return &TUIReporter{send: send}
}

func (r *TUIReporter) StepChanged(_ context.Context, ev domain.StepEvent) {
	r.send(ui.StepMsg{Event: ev})
}

func (r *TUIReporter) AccountResolved(_ context.Context, deployer common.Address, balance asset.Amount) {
	r.send(ui.AccountMsg{Deployer: deployer.Hex(), Balance: balance.String()})
}

func (r *TUIReporter) Submitted(_ context.Context, sub *domain.Submission) {
	r.send(ui.SubmittedMsg{Submission: sub})
}

func (r *TUIReporter) Deployed(_ context.Context, rec *domain.Record) {
	r.send(ui.DeployedMsg{Record: rec})
}

func (r *TUIReporter) Recorded(_ context.Context, path string) {
	r.send(ui.RecordedMsg{Path: path})
}

func (r *TUIReporter) Verified(_ context.Context, v *domain.Verification) {
	r.send(ui.VerifiedMsg{Verification: v})
}

func (r *TUIReporter) Completed(_ context.Context, s *domain.Summary) {
	r.send(ui.SummaryMsg{Summary: s})
}

func (r *TUIReporter) Failed(_ context.Context, err error) {
	r.send(ui.ErrorMsg{Error: err})
}
