package editor

import (
	"fmt"
	"sort"
	"strings"

	"hexed/internal/decode"
	"hexed/internal/label"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// Snapshot is the read-only state handed to rendering. It is recomputed
// after each committed command; View only formats it.
type Snapshot struct {
	Path         string
	FileSize     int64
	WindowOffset int64
	Bytes        []byte

	Cursor   int64
	Nibble   int
	Pane     Pane
	SelStart int64 // -1 when no selection
	SelEnd   int64

	Labels     label.Values
	Matches    []int64
	MatchLen   int
	MatchIndex int

	Dirty    bool
	Saving   bool
	Scanning bool
	Status   string
}

// snapshot assembles the render state for the currently visible window.
func (m *Model) snapshot() Snapshot {
	start := int64(m.scrollY) * bytesPerRow
	window, err := m.doc.ReadAt(start, m.visibleRows()*bytesPerRow)
	if err != nil {
		// A failed read aborts the view refresh; the window renders empty
		// and the error lands in the status line.
		window = nil
		if m.statusMsg == "" {
			m.statusMsg = fmt.Sprintf("Read error: %v", err)
		}
	}

	selStart, selEnd := m.selectedRange()
	snap := Snapshot{
		Path:         m.doc.Path(),
		FileSize:     m.doc.Size(),
		WindowOffset: start,
		Bytes:        window,
		Cursor:       m.cursor,
		Nibble:       m.nibble,
		Pane:         m.pane,
		SelStart:     selStart,
		SelEnd:       selEnd,
		Labels:       m.labels,
		MatchIndex:   m.matchIndex,
		Dirty:        m.doc.Modified(),
		Saving:       m.saving,
		Scanning:     m.scanning,
		Status:       m.statusMsg,
	}
	if m.matches != nil {
		snap.Matches = m.matches.Matches
		snap.MatchLen = len(m.matches.Pattern.Bytes)
	}
	return snap
}

// inMatch reports whether off lies inside any recorded match.
func (s *Snapshot) inMatch(off int64) bool {
	if s.MatchLen == 0 || len(s.Matches) == 0 {
		return false
	}
	i := sort.Search(len(s.Matches), func(i int) bool { return s.Matches[i] > off })
	if i == 0 {
		return false
	}
	start := s.Matches[i-1]
	return off >= start && off < start+int64(s.MatchLen)
}

func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var b strings.Builder
	snap := m.snapshot()

	b.WriteString(m.renderLegend(&snap))
	b.WriteString("\n")

	switch m.view {
	case ViewFind:
		b.WriteString(m.renderMain(&snap))
		b.WriteString("\n")
		b.WriteString(m.renderPrompt("Search:", m.findInput))
	case ViewGoto:
		b.WriteString(m.renderMain(&snap))
		b.WriteString("\n")
		b.WriteString(m.renderPrompt("Jump to Byte:", m.gotoInput))
	case ViewConfirmQuit:
		b.WriteString(m.renderMain(&snap))
		b.WriteString("\n")
		b.WriteString(m.renderDialog("Unsaved changes. Quit anyway? (Y/N)"))
	default:
		b.WriteString(m.renderMain(&snap))
	}

	if snap.Status != "" {
		b.WriteString("\n")
		b.WriteString(snap.Status)
	}

	return b.String()
}

func (m *Model) renderLegend(snap *Snapshot) string {
	name := snap.Path
	if snap.Dirty {
		name = m.styles.Dirty.Render("*" + name)
	}

	endian := "BE"
	if !m.bigEndian {
		endian = "LE"
	}

	items := []string{
		name,
		humanize.Bytes(uint64(snap.FileSize)),
		endian,
		m.styles.LegendHighlight.Render("^S") + " Save",
		m.styles.LegendHighlight.Render("^F") + " Find",
		m.styles.LegendHighlight.Render("^J") + " Goto",
		m.styles.LegendHighlight.Render("^E") + " Endian",
		m.styles.LegendHighlight.Render("^Z") + "/" + m.styles.LegendHighlight.Render("^Y") + " Undo/Redo",
		m.styles.LegendHighlight.Render("^Q") + " Quit",
	}
	if snap.Saving {
		items = append(items, "saving...")
	}
	if snap.Scanning {
		items = append(items, "searching...")
	}

	legend := strings.Join(items, m.styles.Legend.Render(" | "))
	return m.styles.Legend.Width(m.width).Render(legend)
}

func (m *Model) renderMain(snap *Snapshot) string {
	var b strings.Builder

	b.WriteString(m.renderColumnHeader(snap))
	b.WriteString("\n")
	b.WriteString(m.renderWindow(snap))
	b.WriteString("\n")
	b.WriteString(m.renderLabels(snap))

	return b.String()
}

func (m *Model) renderColumnHeader(snap *Snapshot) string {
	header := strings.Repeat(" ", 10)

	cursorCol := int(snap.Cursor % bytesPerRow)
	for i := 0; i < bytesPerRow; i++ {
		hex := fmt.Sprintf("%02X", i)
		if i == cursorCol {
			hex = m.styles.Index.Render(hex)
		}
		header += hex
		if i < bytesPerRow-1 {
			if (i+1)%8 == 0 {
				header += "  "
			} else if (i+1)%4 == 0 {
				header += " "
			}
			header += " "
		}
	}

	return header
}

func (m *Model) renderWindow(snap *Snapshot) string {
	var lines []string
	visRows := m.visibleRows()

	for row := 0; row < visRows; row++ {
		rowOffset := snap.WindowOffset + int64(row)*bytesPerRow
		if rowOffset >= snap.FileSize && rowOffset > 0 {
			break
		}

		offsetStr := fmt.Sprintf("%08X  ", rowOffset)
		if rowOffset/bytesPerRow == snap.Cursor/bytesPerRow {
			offsetStr = m.styles.Index.Render(offsetStr)
		}

		var hexLine strings.Builder
		var textLine strings.Builder

		for col := 0; col < bytesPerRow; col++ {
			offset := rowOffset + int64(col)
			within := offset - snap.WindowOffset

			hexStr := "  "
			textStr := " "
			ok := within >= 0 && within < int64(len(snap.Bytes))
			if ok {
				v := snap.Bytes[within]
				hexStr = decode.ByteToHex(v)
				textStr = string(decode.ByteToText(v))
			}

			hexStyle := m.styles.Normal
			textStyle := m.styles.Normal
			switch {
			case snap.SelStart >= 0 && offset >= snap.SelStart && offset <= snap.SelEnd:
				hexStyle, textStyle = m.styles.Selection, m.styles.Selection
			case offset == snap.Cursor:
				if snap.Pane == PaneHex {
					hexStyle, textStyle = m.styles.CursorEdit, m.styles.Cursor
				} else {
					hexStyle, textStyle = m.styles.Cursor, m.styles.CursorEdit
				}
			case ok && snap.inMatch(offset):
				hexStyle, textStyle = m.styles.Match, m.styles.Match
			case ok && m.inWord(snap, offset):
				hexStyle, textStyle = m.styles.Word, m.styles.Word
			}

			hexLine.WriteString(hexStyle.Render(hexStr))
			textLine.WriteString(textStyle.Render(textStr))

			// Spacing must match renderColumnHeader exactly.
			if col < bytesPerRow-1 {
				if (col+1)%8 == 0 {
					hexLine.WriteString("  ")
				} else if (col+1)%4 == 0 {
					hexLine.WriteString(" ")
				}
				hexLine.WriteString(" ")
			}
		}

		lines = append(lines, offsetStr+hexLine.String()+"  "+textLine.String())
	}

	return strings.Join(lines, "\n")
}

// inWord highlights the bytes that participate in the multi-byte labels for
// the current cursor and byte order.
func (m *Model) inWord(snap *Snapshot, offset int64) bool {
	return offset > snap.Cursor && offset < snap.Cursor+label.Width
}

func (m *Model) renderLabels(snap *Snapshot) string {
	val := func(s string) string {
		if s == "" {
			return "-"
		}
		return m.styles.LabelValue.Render(s)
	}

	var b strings.Builder
	b.WriteString(m.styles.LabelName.Render("Offset: "))
	b.WriteString(val(snap.Labels.Offset))
	b.WriteString("\n")

	rows := []struct {
		name  string
		value string
	}{
		{"i8", snap.Labels.Signed8}, {"u8", snap.Labels.Unsigned8},
		{"i16", snap.Labels.Signed16}, {"u16", snap.Labels.Unsigned16},
		{"i32", snap.Labels.Signed32}, {"u32", snap.Labels.Unsigned32},
		{"i64", snap.Labels.Signed64}, {"u64", snap.Labels.Unsigned64},
	}
	for i, r := range rows {
		b.WriteString(m.styles.LabelName.Render(r.name + ": "))
		b.WriteString(val(r.value))
		if i%4 == 3 {
			b.WriteString("\n")
		} else {
			b.WriteString("  ")
		}
	}

	b.WriteString(m.styles.LabelName.Render("f32: "))
	b.WriteString(val(snap.Labels.Float32))
	b.WriteString("  ")
	b.WriteString(m.styles.LabelName.Render("f64: "))
	b.WriteString(val(snap.Labels.Float64))

	return b.String()
}

func (m *Model) renderPrompt(title, input string) string {
	return m.renderDialog(fmt.Sprintf("%s %s_", title, input))
}

func (m *Model) renderDialog(message string) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.config.Theme.BorderColor)).
		Padding(0, 2).
		Render(message)
	return box
}
