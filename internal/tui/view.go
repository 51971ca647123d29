package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ramshi122/crazy-time-predictor/internal/analytics"
	"github.com/ramshi122/crazy-time-predictor/internal/consensus"
	"github.com/ramshi122/crazy-time-predictor/internal/predictor"
	"github.com/ramshi122/crazy-time-predictor/internal/wheel"
)

const tilesPerLine = 25

var slotTitles = map[predictor.Slot]string{
	predictor.SlotClaude:   "CLAUDE",
	predictor.SlotGPT:      "GPT",
	predictor.SlotGemini:   "GEMINI",
	predictor.SlotEnsemble: "ENSEMBLE",
}

// View renders the whole screen.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n\n")

	if m.round == nil {
		if m.thinking {
			b.WriteString(m.spinner.View() + " fetching history and asking the models...\n")
		} else {
			b.WriteString(dimStyle.Render("no round yet") + "\n")
		}
		b.WriteString("\n" + m.statusLine())
		return b.String()
	}

	b.WriteString(renderTiles(m.round))
	b.WriteString("\n\n")
	b.WriteString(renderFrequency(m.round.Frequency))
	b.WriteString("\n\n")
	b.WriteString(m.renderBoxes())
	b.WriteString("\n")
	b.WriteString(renderConsensus(m.round.Consensus))
	b.WriteString("\n\n")
	b.WriteString(m.statusLine())
	return b.String()
}

func (m Model) header() string {
	title := titleStyle.Render("CRAZY TIME PREDICTOR")
	if m.round == nil {
		return title
	}
	status := localStyle.Render("LOCAL")
	if m.round.Status == predictor.StatusLive {
		status = liveStyle.Render("LIVE AI")
	}
	data := "live data"
	if m.round.DataSource == predictor.DataMock {
		data = "simulated data"
	} else if m.round.FeedSource != "" {
		data = "live data from " + m.round.FeedSource
	}
	return fmt.Sprintf("%s  %s  %s", title, status, dimStyle.Render(fmt.Sprintf("%s, %d spins", data, m.round.SpinCount)))
}

func renderTiles(r *predictor.Round) string {
	var lines []string
	var line []string
	for i, s := range r.History {
		line = append(line, tile(wheel.Normalize(s.Result)))
		if (i+1)%tilesPerLine == 0 {
			lines = append(lines, strings.Join(line, ""))
			line = nil
		}
	}
	if len(line) > 0 {
		lines = append(lines, strings.Join(line, ""))
	}
	return "Last results (newest first)\n" + strings.Join(lines, "\n")
}

func renderFrequency(rows []analytics.Row) string {
	var b strings.Builder
	b.WriteString("Frequency\n")
	for _, r := range rows {
		tag := ""
		if st, ok := tagStyles[r.Tag]; ok {
			tag = st.Render(r.Tag)
		}
		fmt.Fprintf(&b, "  %-12s %4d  %3d%%  gap %-3d %s\n",
			segmentStyle(r.Key).Render(r.Label), r.Count, r.Percent, r.Gap, tag)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderBoxes() string {
	winner, hasWinner := m.round.Winner()
	boxes := make([]string, 0, len(predictor.Slots))
	for _, slot := range predictor.Slots {
		box, ok := m.round.Boxes[slot]
		if !ok {
			continue
		}
		style := boxStyle
		if hasWinner && box.Key == winner.Key {
			style = winnerBoxStyle
		}
		if m.width > 0 && m.width < 4*30 {
			style = style.Width(max(20, m.width-4))
		}
		body := strings.Join([]string{
			titleStyle.Render(slotTitles[slot]) + " " + dimStyle.Render(box.Source),
			segmentStyle(box.Key).Render(wheel.Lookup(box.Key).Icon + " " + box.Label),
			fmt.Sprintf("%s %d%%", m.bar.ViewAs(float64(box.Display)/100), box.Display),
			dimStyle.Render(truncate(box.Reason, 48)),
		}, "\n")
		boxes = append(boxes, style.Render(body))
	}
	if m.width > 0 && m.width < 4*30 {
		return lipgloss.JoinVertical(lipgloss.Left, boxes...)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
}

func renderConsensus(votes []consensus.Vote) string {
	parts := make([]string, 0, len(votes))
	for _, v := range votes {
		s := fmt.Sprintf("%s x%d", v.Label, v.Count)
		if v.Winner {
			s = segmentStyle(v.Key).Render(s + " *")
		}
		parts = append(parts, s)
	}
	return "Consensus: " + strings.Join(parts, "  ")
}

func (m Model) statusLine() string {
	var parts []string
	if m.thinking {
		parts = append(parts, m.spinner.View()+" thinking")
	}
	if m.round != nil {
		st := m.round.Stats
		parts = append(parts, fmt.Sprintf("rounds %d  predictions %d  bonus rounds %d", st.Rounds, st.Total, st.Bonus))
	}
	if m.auto {
		if !m.nextAt.IsZero() && !m.thinking {
			left := max(0, int(m.nextAt.Sub(m.now()).Seconds()+0.999))
			parts = append(parts, fmt.Sprintf("AUTO ON, next in %ds", left))
		} else {
			parts = append(parts, "AUTO ON")
		}
	} else {
		parts = append(parts, "AUTO OFF")
	}
	line := strings.Join(parts, "  |  ")
	if m.err != nil {
		line += "\n" + errStyle.Render("error: "+m.err.Error())
	}
	return line + "\n" + dimStyle.Render("enter/space predict  a auto  q quit") + "\n" +
		dimStyle.Render("Confidence figures are synthetic. Outcomes are independent random draws.")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
