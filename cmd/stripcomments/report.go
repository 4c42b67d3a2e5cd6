package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/pavanmanishd/memarena"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#87CEEB")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Padding(0, 1)

	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

// failuresColumn is highlighted when non-zero.
const failuresColumn = 6

func renderStats(am memarena.ArenaMetrics, st runState) string {
	rows := make([][]string, 0, len(am.Pools))
	for _, pm := range am.Pools {
		rows = append(rows, []string{
			pm.Name,
			kind(pm),
			formatBytes(pm.Capacity),
			formatBytes(pm.Peak),
			strconv.FormatUint(pm.Allocs, 10),
			strconv.FormatUint(pm.Grows, 10),
			strconv.FormatUint(pm.Failures, 10),
			strconv.FormatUint(pm.Resets, 10),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("POOL", "KIND", "CAPACITY", "PEAK", "ALLOCS", "GROWS", "FAILURES", "RESETS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == failuresColumn && row >= 0 && row < len(rows) && rows[row][col] != "0" {
				return failStyle
			}
			return cellStyle
		})

	var b strings.Builder
	b.WriteString(titleStyle.Render("memarena"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "files: %d  failed: %d  in: %s  out: %s\n",
		st.files, st.failed, formatBytes(int(st.bytesIn)), formatBytes(int(st.bytesOut)))
	b.WriteString(t.String())
	return b.String()
}

func kind(pm memarena.PoolMetrics) string {
	switch {
	case pm.Volatile:
		return "volatile"
	case pm.Fixed:
		return "fixed"
	default:
		return "growable"
	}
}

func formatBytes(n int) string {
	switch {
	case n >= memarena.GB:
		return fmt.Sprintf("%.1f GiB", float64(n)/memarena.GB)
	case n >= memarena.MB:
		return fmt.Sprintf("%.1f MiB", float64(n)/memarena.MB)
	case n >= memarena.KB:
		return fmt.Sprintf("%.1f KiB", float64(n)/memarena.KB)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
