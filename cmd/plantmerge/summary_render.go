package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"plantmerge/internal/pipeline"
)

func renderSummary(summary *pipeline.Summary, colorize bool) string {
	if summary == nil {
		return ""
	}
	var b strings.Builder

	title := "Merge summary"
	if summary.DryRun {
		title = "Merge plan (dry run)"
	}
	for _, line := range renderSectionHeader(title, colorize) {
		b.WriteString(line + "\n")
	}

	headers := []string{"Dataset", "Root", "Folders", "Groups", "Files", "Size", "IDs"}
	rows := make([][]string, 0, len(summary.Datasets))
	for _, ds := range summary.Datasets {
		rows = append(rows, []string{
			ds.Label,
			ds.Root,
			strconv.Itoa(ds.Folders),
			strconv.Itoa(ds.Groups),
			strconv.Itoa(ds.Files),
			humanize.Bytes(uint64(ds.Bytes)),
			idRange(ds.FirstID, ds.LastID),
		})
	}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft}
	footer := []string{
		"Total", "",
		"",
		strconv.Itoa(summary.TotalGroups),
		strconv.Itoa(summary.TotalFiles),
		humanize.Bytes(uint64(summary.TotalBytes)),
		idRange(min(1, summary.TotalGroups), summary.TotalGroups),
	}
	b.WriteString(renderTable(headers, rows, aligns, footer...))
	b.WriteString("\n")

	lines := []string{
		renderStatusLine("Total groups", statusInfo, humanize.Comma(int64(summary.TotalGroups)), colorize),
		renderStatusLine("Next id", statusInfo, strconv.Itoa(summary.NextID), colorize),
	}
	if summary.DryRun {
		lines = append(lines, renderStatusLine("Output", statusWarn, summary.OutputDir+" (untouched)", colorize))
	} else {
		lines = append(lines,
			renderStatusLine("Output", statusOK, summary.OutputDir, colorize),
			renderStatusLine("Run id", statusInfo, summary.RunID, colorize),
		)
	}
	for _, line := range lines {
		b.WriteString(line + "\n")
	}
	return b.String()
}

func idRange(first, last int) string {
	if first == 0 {
		return "-"
	}
	if first == last {
		return strconv.Itoa(first)
	}
	return fmt.Sprintf("%d-%d", first, last)
}
