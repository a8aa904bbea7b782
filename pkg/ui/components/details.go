package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// DetailsComponent renders an ordered key/value panel.
type DetailsComponent struct {
	title  string
	keys   []string
	values map[string]string
}

// NewDetailsComponent creates an empty panel.
func NewDetailsComponent(title string) *DetailsComponent {
	return &DetailsComponent{
		title:  title,
		values: make(map[string]string),
	}
}

// Set adds or replaces a value. New keys keep insertion order.
func (d *DetailsComponent) Set(key, value string) {
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// Get returns the value for key.
func (d *DetailsComponent) Get(key string) (string, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Len returns the number of entries.
func (d *DetailsComponent) Len() int {
	return len(d.keys)
}

// View renders the panel.
func (d *DetailsComponent) View() string {
	header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	label := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	value := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))

	var sb strings.Builder
	sb.WriteString(header.Render(d.title))
	sb.WriteString("\n")

	if len(d.keys) == 0 {
		sb.WriteString(label.Render("  waiting..."))
		return sb.String()
	}

	width := 0
	for _, k := range d.keys {
		if len(k) > width {
			width = len(k)
		}
	}
	for _, k := range d.keys {
		sb.WriteString(fmt.Sprintf("  %s  %s\n", label.Render(fmt.Sprintf("%-*s", width, k)), value.Render(d.values[k])))
	}
	return sb.String()
}
