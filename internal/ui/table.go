package ui

import (
	"fmt"
	"strings"

	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/registry"
)

// maxCellWidth caps every cell so one long title cannot blow up the table.
const maxCellWidth = 50

// RenderItems renders a collection listing as an aligned text table using
// the collection's configured column projection.
func RenderItems(cols []registry.Column, items []models.Item) string {
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = len(c.Header)
	}

	rows := make([][]string, 0, len(items))
	for _, it := range items {
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = Truncate(cellValue(it, c.Key), maxCellWidth)
			if len(row[i]) > widths[i] {
				widths[i] = len(row[i])
			}
		}
		rows = append(rows, row)
	}

	var b strings.Builder
	for i, c := range cols {
		b.WriteString(Bold.Render(pad(c.Header, widths[i])))
		if i < len(cols)-1 {
			b.WriteString("  ")
		}
	}
	b.WriteString("\n")
	for i := range cols {
		b.WriteString(strings.Repeat("-", widths[i]))
		if i < len(cols)-1 {
			b.WriteString("  ")
		}
	}
	b.WriteString("\n")

	for _, row := range rows {
		for i, cell := range row {
			if i == 0 {
				b.WriteString(Accent.Render(pad(cell, widths[i])))
			} else {
				b.WriteString(pad(cell, widths[i]))
			}
			if i < len(row)-1 {
				b.WriteString("  ")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// cellValue projects one column key out of an item. The slug, title, and
// date keys are intrinsic; everything else reads the extra fields.
func cellValue(it models.Item, key string) string {
	switch key {
	case "slug":
		return it.Slug
	case "title":
		return it.Title
	case "date":
		return it.Date
	default:
		return it.Fields[key]
	}
}

// Truncate cuts s to at most max runes, ellipsized.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func pad(s string, width int) string {
	return fmt.Sprintf("%-*s", width, s)
}
