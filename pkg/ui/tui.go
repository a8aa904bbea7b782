package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/flashloan-deployer/business/deployment/domain"
	"github.com/fd1az/flashloan-deployer/internal/asset"
	"github.com/fd1az/flashloan-deployer/pkg/ui/components"
)

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"   // Initial welcome screen
	PhaseDeploying Phase = "deploying" // Steps running
	PhaseFinished  Phase = "finished"  // Run over, waiting for quit
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 1500 * time.Millisecond

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	keys    KeyMap
	help    help.Model
	spinner spinner.Model

	// Components
	steps        *components.StepsComponent
	deployment   *components.DetailsComponent
	verification *components.DetailsComponent

	// Phase state
	phase        Phase
	welcomeStart time.Time
	started      time.Time
	finishedAt   time.Time

	title     string
	summary   *domain.Summary
	errors    []ErrorEntry // Persistent error panel (last 3)
	finishErr error

	width    int
	height   int
	quitting bool
}

// New creates a new TUI model. title names the contract and network.
func New(title string) Model {
	labels := make([]string, len(domain.Steps))
	for i, s := range domain.Steps {
		labels[i] = s.String()
	}

	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(ColorPrimary)),
	)

	return Model{
		keys:         DefaultKeyMap(),
		help:         help.New(),
		spinner:      sp,
		steps:        components.NewStepsComponent(labels),
		deployment:   components.NewDetailsComponent("DEPLOYMENT"),
		verification: components.NewDetailsComponent("VERIFICATION"),
		phase:        PhaseWelcome,
		welcomeStart: time.Now(),
		title:        title,
		errors:       make([]ErrorEntry, 0, 3),
	}
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.spinner.Tick)
}

// tickCmd returns a command that sends a tick every 100ms for smooth animations.
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

// start leaves the welcome screen and triggers the deployment callback.
func (m *Model) start() {
	m.phase = PhaseDeploying
	m.started = time.Now()
	// Trigger callback directly (don't use Send() from within Update)
	if OnStart != nil {
		go OnStart()
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Always allow quit
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		// During welcome phase, any other key skips ahead
		if m.phase == PhaseWelcome {
			m.start()
			return m, nil
		}
		switch {
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.ClearErrors):
			m.errors = make([]ErrorEntry, 0, 3)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case TickMsg:
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m.start()
		}
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case StepMsg:
		for i, s := range domain.Steps {
			if s == msg.Event.Step {
				m.steps.Set(i, stepState(msg.Event.Status), msg.Event.Detail)
				break
			}
		}

	case AccountMsg:
		m.deployment.Set("Deployer", msg.Deployer)
		m.deployment.Set("Balance", msg.Balance)

	case SubmittedMsg:
		if sub := msg.Submission; sub != nil {
			m.deployment.Set("Transaction", sub.TxHash.Hex())
			m.deployment.Set("Nonce", fmt.Sprintf("%d", sub.Nonce))
			m.deployment.Set("Gas", fmt.Sprintf("%d @ %s", sub.GasLimit, asset.FormatGwei(sub.GasPrice)))
			m.deployment.Set("Contract", sub.Address.Hex()+" (pending)")
		}

	case DeployedMsg:
		if rec := msg.Record; rec != nil {
			m.deployment.Set("Contract", rec.ContractAddress)
			if rec.BlockNumber > 0 {
				m.deployment.Set("Block", fmt.Sprintf("#%d", rec.BlockNumber))
			}
		}

	case RecordedMsg:
		m.deployment.Set("Record", msg.Path)

	case VerifiedMsg:
		if v := msg.Verification; v != nil {
			m.verification.Set("Owner", readResult(v.Owner.Hex(), v.OwnerErr))
			m.verification.Set("Pool", readResult(v.Pool.Hex(), v.PoolErr))
			if v.OwnerErr == nil && !v.OwnerMatches {
				m.verification.Set("Note", "owner differs from deployer")
			}
		}

	case SummaryMsg:
		m.summary = msg.Summary

	case ErrorMsg:
		if msg.Error != nil {
			m.errors = append(m.errors, ErrorEntry{
				Message:   msg.Error.Error(),
				Timestamp: time.Now(),
			})
			if len(m.errors) > 3 {
				m.errors = m.errors[len(m.errors)-3:]
			}
		}

	case FinishedMsg:
		m.phase = PhaseFinished
		m.finishErr = msg.Err
		m.finishedAt = time.Now()
	}

	return m, nil
}

func stepState(s domain.StepStatus) components.StepState {
	switch s {
	case domain.StatusRunning:
		return components.StepRunning
	case domain.StatusDone:
		return components.StepDone
	case domain.StatusWarning:
		return components.StepWarning
	case domain.StatusFailed:
		return components.StepFailed
	default:
		return components.StepPending
	}
}

func readResult(value string, err error) string {
	if err != nil {
		return "failed: " + err.Error()
	}
	return value
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	if m.phase == PhaseWelcome {
		return m.renderWelcomeScreen()
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render(" FlashLoan Deployer "))
	b.WriteString(" ")
	b.WriteString(MutedValue.Render(m.title))
	b.WriteString("\n\n")

	b.WriteString(HeaderStyle.Render("STEPS"))
	b.WriteString("\n")
	b.WriteString(m.steps.View(m.spinner.View()))
	b.WriteString("\n")

	panels := []string{m.deployment.View()}
	if m.verification.Len() > 0 {
		panels = append(panels, m.verification.View())
	}
	if m.width > 100 && len(panels) == 2 {
		left := BoxStyle.Width(m.width/2 - 2).Render(panels[0])
		right := BoxStyle.Width(m.width/2 - 2).Render(panels[1])
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	} else {
		for _, p := range panels {
			b.WriteString(BoxStyle.Render(p))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")

	if m.summary != nil {
		b.WriteString(m.renderSummary())
		b.WriteString("\n")
	}

	// Persistent error panel (show last 3 errors)
	if len(m.errors) > 0 {
		b.WriteString(FailureStyle.Render("ERRORS"))
		b.WriteString(MutedValue.Render(" (e: clear)"))
		b.WriteString("\n")
		for _, err := range m.errors {
			b.WriteString(lipgloss.NewStyle().Foreground(ColorDanger).Render("  • " + err.Message))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(m.renderStatusLine())
	b.WriteString("\n")
	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))

	return b.String()
}

func (m Model) renderSummary() string {
	s := m.summary
	var sb strings.Builder

	sb.WriteString(SuccessStyle.Render("Contract deployed successfully"))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  Address:   %s\n", s.Record.ContractAddress))
	sb.WriteString(fmt.Sprintf("  Cost:      %s\n", s.Cost.StringFixed(6)))
	sb.WriteString(fmt.Sprintf("  Balance:   %s\n", s.Balance.StringFixed(6)))
	sb.WriteString(fmt.Sprintf("  Duration:  %s\n", s.Duration.Round(time.Millisecond)))
	if !s.Verification.OK() || !s.Verification.OwnerMatches {
		sb.WriteString(WarningStyle.Render("  Verification incomplete, see above"))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderStatusLine() string {
	switch m.phase {
	case PhaseFinished:
		elapsed := m.finishedAt.Sub(m.started).Round(time.Second)
		if m.finishErr != nil {
			return FailureStyle.Render(fmt.Sprintf("Failed after %s: %v", elapsed, m.finishErr)) +
				MutedValue.Render("  press q to exit")
		}
		return SuccessStyle.Render(fmt.Sprintf("Done in %s", elapsed)) + MutedValue.Render("  press q to exit")
	default:
		elapsed := time.Since(m.started).Round(time.Second)
		return MutedValue.Render(fmt.Sprintf("Elapsed: %s", elapsed))
	}
}

// renderWelcomeScreen renders the welcome screen.
func (m Model) renderWelcomeScreen() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary)

	elapsed := time.Since(m.welcomeStart)
	dots := strings.Repeat(".", int(elapsed.Milliseconds()/300)%4)

	var sb strings.Builder
	sb.WriteString("\n\n\n")

	logo := `
   ███████╗██╗      █████╗ ███████╗██╗  ██╗██╗      ██████╗  █████╗ ███╗   ██╗
   ██╔════╝██║     ██╔══██╗██╔════╝██║  ██║██║     ██╔═══██╗██╔══██╗████╗  ██║
   █████╗  ██║     ███████║███████╗███████║██║     ██║   ██║███████║██╔██╗ ██║
   ██╔══╝  ██║     ██╔══██║╚════██║██╔══██║██║     ██║   ██║██╔══██║██║╚██╗██║
   ██║     ███████╗██║  ██║███████║██║  ██║███████╗╚██████╔╝██║  ██║██║ ╚████║
   ╚═╝     ╚══════╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝╚══════╝ ╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═══╝
`
	sb.WriteString(titleStyle.Render(logo))
	sb.WriteString("\n")
	sb.WriteString(MutedValue.Render("                         C O N T R A C T   D E P L O Y E R"))
	sb.WriteString("\n\n")
	sb.WriteString(SuccessStyle.Render(fmt.Sprintf("                         %s%s", m.title, dots)))
	sb.WriteString("\n\n")
	sb.WriteString(MutedValue.Render("                     Press any key to start, or wait..."))
	sb.WriteString("\n")

	return sb.String()
}

// Program holds the Bubble Tea program instance for external access.
var Program *tea.Program

// OnStart is called when the welcome screen completes and the deployment
// should begin. It is set by main.
var OnStart func()

// Send sends a message to the running program.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
}
