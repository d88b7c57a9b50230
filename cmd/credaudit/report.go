package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/ericfisherdev/credreview/internal/application"
	"github.com/ericfisherdev/credreview/internal/domain/model"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

var outputFormats = []string{formatTable, formatJSON, formatYAML}

var (
	pink   = lipgloss.Color("205")
	purple = lipgloss.Color("99")
	cyan   = lipgloss.Color("86")
	red    = lipgloss.Color("196")
	green  = lipgloss.Color("82")
	yellow = lipgloss.Color("220")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(pink)
	statStyle   = lipgloss.NewStyle().Foreground(cyan)
	borderStyle = lipgloss.NewStyle().Foreground(purple)
	headerStyle = lipgloss.NewStyle().Foreground(pink).Bold(true)
	dangerStyle = lipgloss.NewStyle().Foreground(red).Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(green)
	warnStyle   = lipgloss.NewStyle().Foreground(yellow)
)

// Summary aggregates the outcome of a check run.
type Summary struct {
	Checked      int  `json:"checked" yaml:"checked"`
	Breached     int  `json:"breached" yaml:"breached"`
	Unknown      int  `json:"unknown" yaml:"unknown"`
	UsedFallback bool `json:"used_fallback" yaml:"used_fallback"`
	Deleted      int  `json:"deleted" yaml:"deleted"`

	Probed       bool `json:"probed" yaml:"probed"`
	Alive        int  `json:"alive,omitempty" yaml:"alive,omitempty"`
	Dead         int  `json:"dead,omitempty" yaml:"dead,omitempty"`
	ProbeUnknown int  `json:"probe_unknown,omitempty" yaml:"probe_unknown,omitempty"`
	ProbeStopped bool `json:"probe_stopped,omitempty" yaml:"probe_stopped,omitempty"`
}

// Report is what a check run prints. Secrets are never part of it.
type Report struct {
	Summary Summary        `json:"summary" yaml:"summary"`
	Records []model.Record `json:"records" yaml:"records"`
}

func newReport(records []model.Record, verified application.VerifyReport, probed *application.ProbeReport, deleted int) Report {
	r := Report{
		Summary: Summary{
			Checked:      verified.Checked,
			Breached:     verified.Breached,
			Unknown:      verified.Unknown,
			UsedFallback: verified.UsedFallback,
			Deleted:      deleted,
		},
		Records: records,
	}
	if r.Records == nil {
		r.Records = []model.Record{}
	}
	if probed != nil {
		r.Summary.Probed = true
		r.Summary.Alive = probed.Alive
		r.Summary.Dead = probed.Dead
		r.Summary.ProbeUnknown = probed.Unknown
		r.Summary.ProbeStopped = probed.Stopped
	}
	return r
}

func writeReport(w io.Writer, format string, r Report) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case formatTable:
		return writeTable(w, r)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

var (
	tableHeaders = []string{"#", "Profile", "Site", "Username", "Uses", "Breaches", "Site status"}
	tableWidths  = []int{4, 14, 32, 22, 5, 10, 12}
)

// writeTable prints a boxed report. Lipgloss only colors the text; the box
// itself is plain string formatting.
func writeTable(w io.Writer, r Report) error {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Credential review") + "\n")
	b.WriteString(summaryLine(r.Summary) + "\n\n")

	if len(r.Records) == 0 {
		b.WriteString(statStyle.Render("No records.") + "\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	total := 1
	for _, width := range tableWidths {
		total += width + 3
	}
	rule := strings.Repeat("─", total-2)

	b.WriteString(borderStyle.Render("┌"+rule+"┐") + "\n")
	b.WriteString(headerStyle.Render(tableRow(tableHeaders)) + "\n")
	b.WriteString(borderStyle.Render("├"+rule+"┤") + "\n")

	for i, rec := range r.Records {
		row := tableRow([]string{
			fmt.Sprintf("%d", i+1),
			rec.Profile,
			rec.Site,
			rec.Username,
			fmt.Sprintf("%d", rec.UsageCount),
			rec.Breach.String(),
			siteStatusText(rec),
		})
		b.WriteString(styleForRecord(rec).Render(row) + "\n")
	}
	b.WriteString(borderStyle.Render("└"+rule+"┘") + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func tableRow(cells []string) string {
	var b strings.Builder
	b.WriteString("│")
	for i, cell := range cells {
		fmt.Fprintf(&b, " %-*s │", tableWidths[i], truncate(cell, tableWidths[i]))
	}
	return b.String()
}

func summaryLine(s Summary) string {
	parts := []string{
		fmt.Sprintf("checked %d", s.Checked),
		dangerStyle.Render(fmt.Sprintf("breached %d", s.Breached)),
		fmt.Sprintf("unknown %d", s.Unknown),
	}
	if s.UsedFallback {
		parts = append(parts, "fallback used")
	}
	if s.Deleted > 0 {
		parts = append(parts, fmt.Sprintf("deleted %d", s.Deleted))
	}
	if s.Probed {
		probe := fmt.Sprintf("sites alive %d dead %d unknown %d", s.Alive, s.Dead, s.ProbeUnknown)
		if s.ProbeStopped {
			probe += " (stopped)"
		}
		parts = append(parts, probe)
	}
	return statStyle.Render(strings.Join(parts, " · "))
}

func siteStatusText(rec model.Record) string {
	if rec.HTTPStatus != nil && rec.SiteStatus != model.SiteStatusUnknown {
		return fmt.Sprintf("%s %d", rec.SiteStatus, *rec.HTTPStatus)
	}
	return string(rec.SiteStatus)
}

func styleForRecord(rec model.Record) lipgloss.Style {
	switch {
	case rec.Breach.Breached():
		return dangerStyle
	case !rec.Breach.Known || rec.SiteStatus == model.SiteStatusDead:
		return warnStyle
	default:
		return okStyle
	}
}

// truncate shortens s to at most width runes, marking the cut with an ellipsis.
func truncate(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	if width <= 1 {
		return "…"
	}
	runes := []rune(s)
	return string(runes[:width-1]) + "…"
}
