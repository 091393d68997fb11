// Package editor owns the interactive state of the hex editor: the open
// document, cursor, selection, pane focus, byte order, search state and the
// popup views. Keyboard events are translated into explicit commands which
// are applied one at a time; long-running scans and saves run as background
// tea commands tagged with request ids so stale results are discarded.
package editor

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"hexed/internal/config"
	"hexed/internal/decode"
	"hexed/internal/document"
	"hexed/internal/label"
	"hexed/internal/search"

	tea "github.com/charmbracelet/bubbletea"
)

// Pane is the editing surface the cursor lives in. Behavior differs only in
// decode/encode direction, so a tagged variant is all that is needed.
type Pane int

const (
	PaneHex Pane = iota
	PaneText
)

type View int

const (
	ViewMain View = iota
	ViewFind
	ViewGoto
	ViewConfirmQuit
)

type CommandKind int

const (
	CmdMoveCursor CommandKind = iota
	CmdSetPaneFocus
	CmdOverwrite
	CmdInsertByte
	CmdDeleteByte
	CmdIncreaseStreamLength
	CmdDecreaseStreamLength
	CmdJumpToOffset
	CmdToggleByteOrder
	CmdSearch
	CmdNextMatch
	CmdPrevMatch
	CmdUndo
	CmdRedo
	CmdSave
	CmdQuit
	CmdCopySelection
)

// Command is one core operation as produced by input handling. Only the
// fields relevant to Kind are set.
type Command struct {
	Kind    CommandKind
	Delta   int64  // CmdMoveCursor
	Extend  bool   // CmdMoveCursor: grow the selection instead of clearing it
	Pane    Pane   // CmdSetPaneFocus
	Value   byte   // CmdOverwrite
	Back    bool   // CmdDeleteByte: remove the byte before the cursor
	Offset  int64  // CmdJumpToOffset
	Pattern string // CmdSearch
}

const bytesPerRow = 16

type selection struct {
	Active bool
	Anchor int64
}

type Model struct {
	doc    *document.Document
	config *config.Config
	styles *config.Styles

	cursor    int64
	nibble    int // 0 or 1; which hex digit of the byte is focused
	pane      Pane
	scrollY   int
	selection selection
	bigEndian bool
	clipboard string

	labels label.Values

	matches     *search.State
	matchIndex  int
	searchStale bool
	pendingNav  int // -1 prev, +1 next; applied when a rescan lands
	scanID      int
	scanCancel  context.CancelFunc
	scanning    bool

	saveID int
	saving bool

	view      View
	findInput string
	gotoInput string
	statusMsg string

	width  int
	height int
}

// scanDoneMsg and saveDoneMsg report background work back to the main loop.
// Results carrying a stale id are dropped rather than applied out of order.
type scanDoneMsg struct {
	id    int
	state *search.State
	err   error
}

type saveDoneMsg struct {
	id  int
	tmp string
	err error
}

func NewModel(path string, offset int64) (*Model, error) {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.DefaultConfig()
	}

	doc, err := document.Open(path, cfg.Cache.ChunkSize, cfg.Cache.Budget)
	if err != nil {
		return nil, err
	}
	if offset < 0 {
		doc.Close()
		return nil, fmt.Errorf("offset %d is negative", offset)
	}
	if offset > 0 && offset >= doc.Size() {
		doc.Close()
		return nil, fmt.Errorf("offset %d is past the end of %s (%d bytes)", offset, path, doc.Size())
	}

	m := &Model{
		doc:       doc,
		config:    cfg,
		styles:    config.NewStyles(&cfg.Theme),
		cursor:    offset,
		bigEndian: true,
	}
	m.recompute()
	return m, nil
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ensureCursorVisible()
		return m, nil

	case scanDoneMsg:
		return m, m.applyScanResult(msg)

	case saveDoneMsg:
		return m, m.applySaveResult(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.statusMsg = ""

	switch m.view {
	case ViewFind:
		return m.handleFindKey(msg)
	case ViewGoto:
		return m.handleGotoKey(msg)
	case ViewConfirmQuit:
		return m.handleConfirmQuitKey(msg)
	default:
		return m.handleMainKey(msg)
	}
}

func (m *Model) handleMainKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	// Navigation
	case "up":
		return m, m.apply(Command{Kind: CmdMoveCursor, Delta: -bytesPerRow})
	case "down":
		return m, m.apply(Command{Kind: CmdMoveCursor, Delta: bytesPerRow})
	case "left":
		return m, m.moveHorizontal(-1)
	case "right":
		return m, m.moveHorizontal(1)
	case "shift+up":
		return m, m.apply(Command{Kind: CmdMoveCursor, Delta: -bytesPerRow, Extend: true})
	case "shift+down":
		return m, m.apply(Command{Kind: CmdMoveCursor, Delta: bytesPerRow, Extend: true})
	case "shift+left":
		return m, m.apply(Command{Kind: CmdMoveCursor, Delta: -1, Extend: true})
	case "shift+right":
		return m, m.apply(Command{Kind: CmdMoveCursor, Delta: 1, Extend: true})
	case "pgup", "ctrl+u":
		return m, m.apply(Command{Kind: CmdMoveCursor, Delta: -int64(m.visibleRows()) * bytesPerRow})
	case "pgdown", "ctrl+d":
		return m, m.apply(Command{Kind: CmdMoveCursor, Delta: int64(m.visibleRows()) * bytesPerRow})
	case "home":
		m.setCursor(m.cursor / bytesPerRow * bytesPerRow)
		m.nibble = 0
		m.recompute()
	case "end":
		m.setCursor(m.cursor/bytesPerRow*bytesPerRow + bytesPerRow - 1)
		m.nibble = 1
		m.recompute()
	case "ctrl+home":
		m.setCursor(0)
		m.recompute()
	case "ctrl+end":
		m.setCursor(m.maxCursor())
		m.recompute()
	case "tab":
		next := PaneText
		if m.pane == PaneText {
			next = PaneHex
		}
		return m, m.apply(Command{Kind: CmdSetPaneFocus, Pane: next})
	case "esc":
		m.selection.Active = false

	// Commands
	case "ctrl+q":
		return m, m.apply(Command{Kind: CmdQuit})
	case "ctrl+s":
		return m, m.apply(Command{Kind: CmdSave})
	case "ctrl+f":
		m.view = ViewFind
		m.findInput = ""
	case "ctrl+j":
		m.view = ViewGoto
		m.gotoInput = ""
	case "ctrl+e":
		return m, m.apply(Command{Kind: CmdToggleByteOrder})
	case "ctrl+z":
		return m, m.apply(Command{Kind: CmdUndo})
	case "ctrl+y":
		return m, m.apply(Command{Kind: CmdRedo})
	case "ctrl+n", "enter":
		return m, m.apply(Command{Kind: CmdNextMatch})
	case "ctrl+p":
		return m, m.apply(Command{Kind: CmdPrevMatch})
	case "ctrl+c":
		return m, m.apply(Command{Kind: CmdCopySelection})
	case "insert":
		return m, m.apply(Command{Kind: CmdInsertByte})
	case "delete":
		return m, m.apply(Command{Kind: CmdDeleteByte})
	case "backspace":
		return m, m.apply(Command{Kind: CmdDeleteByte, Back: true})
	case "alt+=":
		return m, m.apply(Command{Kind: CmdIncreaseStreamLength})
	case "alt+-":
		return m, m.apply(Command{Kind: CmdDecreaseStreamLength})

	default:
		if msg.Type == tea.KeyRunes && len(msg.Runes) == 1 && !msg.Alt {
			return m, m.handleTyped(msg.Runes[0])
		}
	}

	return m, nil
}

// moveHorizontal steps one position left or right. In the hex pane a
// position is a nibble, in the text pane a byte.
func (m *Model) moveHorizontal(dir int64) tea.Cmd {
	if m.pane == PaneText {
		return m.apply(Command{Kind: CmdMoveCursor, Delta: dir})
	}
	if dir < 0 {
		if m.nibble == 0 {
			cmd := m.apply(Command{Kind: CmdMoveCursor, Delta: -1})
			m.nibble = 1
			return cmd
		}
		m.nibble = 0
		m.selection.Active = false
	} else {
		if m.nibble == 1 {
			cmd := m.apply(Command{Kind: CmdMoveCursor, Delta: 1})
			m.nibble = 0
			return cmd
		}
		m.nibble = 1
		m.selection.Active = false
	}
	return nil
}

// handleTyped turns a printable keystroke into an overwrite of the byte (or
// nibble) under the cursor, depending on the focused pane.
func (m *Model) handleTyped(r rune) tea.Cmd {
	if m.doc.Size() == 0 {
		m.statusMsg = "File is empty; insert a byte first"
		return nil
	}

	if m.pane == PaneText {
		b, err := decode.TextCharToByte(r)
		if err != nil {
			m.statusMsg = fmt.Sprintf("Cannot encode %q as a byte", r)
			return nil
		}
		cmd := m.apply(Command{Kind: CmdOverwrite, Value: b})
		m.setCursor(m.cursor + 1)
		m.recompute()
		return cmd
	}

	if r > 0x7F || !decode.IsHexDigit(byte(r)) {
		m.statusMsg = fmt.Sprintf("Invalid hex: %q", r)
		return nil
	}
	n, _ := decode.HexDigitToNibble(byte(r))
	old, ok := m.doc.Byte(m.cursor)
	if !ok {
		return nil
	}

	var value byte
	if m.nibble == 0 {
		value = n<<4 | old&0x0F
	} else {
		value = old&0xF0 | n
	}
	cmd := m.apply(Command{Kind: CmdOverwrite, Value: value})

	if m.nibble == 1 {
		m.setCursor(m.cursor + 1)
	}
	m.nibble = 1 - m.nibble
	m.recompute()
	return cmd
}

// apply executes one core command. State is fully updated before the next
// input is handled; any returned tea.Cmd is background work.
func (m *Model) apply(cmd Command) tea.Cmd {
	switch cmd.Kind {
	case CmdMoveCursor:
		m.move(cmd.Delta, cmd.Extend)

	case CmdSetPaneFocus:
		m.pane = cmd.Pane
		m.nibble = 0

	case CmdOverwrite:
		at := m.cursor
		return m.commitMutation(func() error {
			return m.doc.Overwrite(at, []byte{cmd.Value})
		}, at, 0)

	case CmdInsertByte:
		at := m.cursor
		return m.commitMutation(func() error {
			return m.doc.Insert(at, []byte{0x00})
		}, at, 1)

	case CmdDeleteByte:
		at := m.cursor
		if cmd.Back {
			if at == 0 {
				return nil
			}
			at--
		}
		if at >= m.doc.Size() {
			return nil
		}
		bg := m.commitMutation(func() error {
			return m.doc.Delete(at, 1)
		}, at, -1)
		m.setCursor(at)
		m.recompute()
		return bg

	case CmdIncreaseStreamLength:
		at := m.doc.Size()
		return m.commitMutation(func() error {
			return m.doc.Resize(at + 1)
		}, at, 1)

	case CmdDecreaseStreamLength:
		size := m.doc.Size()
		if size == 0 {
			return nil
		}
		bg := m.commitMutation(func() error {
			return m.doc.Resize(size - 1)
		}, size-1, -1)
		m.setCursor(m.cursor)
		m.recompute()
		return bg

	case CmdJumpToOffset:
		if cmd.Offset < 0 || cmd.Offset > m.maxCursor() {
			m.statusMsg = fmt.Sprintf("Offset 0x%X is out of range", cmd.Offset)
			return nil
		}
		m.setCursor(cmd.Offset)
		m.recompute()

	case CmdToggleByteOrder:
		m.bigEndian = !m.bigEndian
		m.recompute()

	case CmdSearch:
		p, err := search.Compile(cmd.Pattern)
		if err != nil {
			m.statusMsg = fmt.Sprintf("Invalid pattern: %q", cmd.Pattern)
			return nil
		}
		m.pendingNav = 1
		return m.startScan(p)

	case CmdNextMatch:
		return m.navigateMatch(1)

	case CmdPrevMatch:
		return m.navigateMatch(-1)

	case CmdUndo:
		if m.saving {
			m.statusMsg = "Save in progress"
			return nil
		}
		e, ok := m.doc.Undo()
		if !ok {
			return nil
		}
		m.afterHistory(e, -e.LengthDelta())

	case CmdRedo:
		if m.saving {
			m.statusMsg = "Save in progress"
			return nil
		}
		e, ok := m.doc.Redo()
		if !ok {
			return nil
		}
		m.afterHistory(e, e.LengthDelta())

	case CmdSave:
		return m.startSave()

	case CmdQuit:
		if m.doc.Modified() {
			m.view = ViewConfirmQuit
			return nil
		}
		return tea.Quit

	case CmdCopySelection:
		m.copySelection()
	}

	return nil
}

// commitMutation runs one document mutation, invalidating search results
// and shifting recorded offsets when the length changed. delta is the
// length change the mutation causes, point where it happens.
func (m *Model) commitMutation(mutate func() error, point, delta int64) tea.Cmd {
	if m.saving {
		m.statusMsg = "Save in progress"
		return nil
	}
	if err := mutate(); err != nil {
		m.statusMsg = fmt.Sprintf("Error: %v", err)
		return nil
	}
	m.invalidateScan()
	if delta != 0 && m.matches != nil {
		m.matches.ShiftAfter(point, delta)
	}
	if delta != 0 && m.selection.Active && m.selection.Anchor >= point {
		if delta < 0 && m.selection.Anchor < point-delta {
			m.selection.Active = false
		} else {
			m.selection.Anchor += delta
		}
	}
	m.searchStale = m.matches != nil
	m.clampCursor()
	m.recompute()
	return nil
}

// afterHistory adjusts derived state after an undo or redo. delta is the
// length change that was just applied to the document.
func (m *Model) afterHistory(e document.Edit, delta int64) {
	m.invalidateScan()
	if delta != 0 && m.matches != nil {
		m.matches.ShiftAfter(e.Offset, delta)
	}
	m.searchStale = m.matches != nil
	m.selection.Active = false
	m.setCursor(e.Offset)
	m.recompute()
}

func (m *Model) move(delta int64, extend bool) {
	if extend {
		if !m.selection.Active {
			m.selection.Active = true
			m.selection.Anchor = m.cursor
		}
	} else {
		m.selection.Active = false
	}

	pos := m.cursor + delta
	if pos < 0 {
		pos = 0
	}
	if pos > m.maxCursor() {
		pos = m.maxCursor()
	}
	m.cursor = pos
	m.recompute()
}

func (m *Model) setCursor(pos int64) {
	m.selection.Active = false
	if pos < 0 {
		pos = 0
	}
	if pos > m.maxCursor() {
		pos = m.maxCursor()
	}
	m.cursor = pos
}

func (m *Model) clampCursor() {
	if m.cursor > m.maxCursor() {
		m.cursor = m.maxCursor()
	}
}

func (m *Model) maxCursor() int64 {
	if m.doc.Size() == 0 {
		return 0
	}
	return m.doc.Size() - 1
}

// selectedRange returns the inclusive selection bounds, or (-1, -1).
func (m *Model) selectedRange() (int64, int64) {
	if !m.selection.Active {
		return -1, -1
	}
	start, end := m.selection.Anchor, m.cursor
	if start > end {
		start, end = end, start
	}
	return start, end
}

// recompute refreshes every derived view of the bytes at the cursor. Called
// after each cursor move, byte-order toggle and committed edit.
func (m *Model) recompute() {
	var order binary.ByteOrder = binary.BigEndian
	if !m.bigEndian {
		order = binary.LittleEndian
	}
	data, err := m.doc.ReadAt(m.cursor, label.Width)
	if err != nil {
		m.statusMsg = fmt.Sprintf("Read error: %v", err)
		data = nil
	}
	m.labels = label.Compute(data, m.cursor, order)
	m.ensureCursorVisible()
}

func (m *Model) ensureCursorVisible() {
	visRows := m.visibleRows()
	cursorRow := int(m.cursor / bytesPerRow)

	if cursorRow < m.scrollY {
		m.scrollY = cursorRow
	} else if cursorRow >= m.scrollY+visRows {
		m.scrollY = cursorRow - visRows + 1
	}
}

func (m *Model) visibleRows() int {
	// Legend, column header, label panel, status line.
	rows := m.height - 10
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (m *Model) copySelection() {
	start, end := m.selectedRange()
	if start < 0 {
		start, end = m.cursor, m.cursor
	}
	data, err := m.doc.ReadAt(start, int(end-start+1))
	if err != nil || len(data) == 0 {
		return
	}
	if m.pane == PaneHex {
		m.clipboard = strings.Join(decode.BytesToHex(data), " ")
	} else {
		m.clipboard = decode.BytesToText(data)
	}
	m.statusMsg = fmt.Sprintf("Copied %d byte(s)", len(data))
}

// Clipboard returns the last copied selection, formatted for the pane it
// was copied from.
func (m *Model) Clipboard() string {
	return m.clipboard
}

// startScan kicks off a background scan for p, superseding any in-flight
// one.
func (m *Model) startScan(p search.Pattern) tea.Cmd {
	m.invalidateScan()
	m.scanID++
	m.scanning = true

	ctx, cancel := context.WithCancel(context.Background())
	m.scanCancel = cancel

	id := m.scanID
	snap := m.doc.Snapshot()
	return func() tea.Msg {
		st, err := search.Scan(ctx, snap, p)
		return scanDoneMsg{id: id, state: st, err: err}
	}
}

// invalidateScan aborts any in-flight scan; its result will arrive with a
// stale id and be dropped.
func (m *Model) invalidateScan() {
	if m.scanCancel != nil {
		m.scanCancel()
		m.scanCancel = nil
	}
	if m.scanning {
		m.scanID++
		m.scanning = false
	}
}

func (m *Model) applyScanResult(msg scanDoneMsg) tea.Cmd {
	if msg.id != m.scanID {
		return nil
	}
	m.scanning = false
	m.scanCancel = nil
	if msg.err != nil {
		if !errors.Is(msg.err, context.Canceled) {
			m.statusMsg = fmt.Sprintf("Search failed: %v", msg.err)
		}
		return nil
	}
	m.matches = msg.state
	m.searchStale = false

	nav := m.pendingNav
	m.pendingNav = 0
	if nav != 0 {
		return m.navigateMatch(nav)
	}
	return nil
}

// navigateMatch moves the cursor to the adjacent match, wrapping at the
// ends of the match list. With no scan results it is a no-op; with stale
// results it rescans first and navigates when the scan lands.
func (m *Model) navigateMatch(dir int) tea.Cmd {
	if m.matches == nil || m.matches.Pattern.Term == "" {
		m.statusMsg = "No search"
		return nil
	}
	if m.scanning {
		m.pendingNav = dir
		return nil
	}
	if m.searchStale {
		m.pendingNav = dir
		return m.startScan(m.matches.Pattern)
	}

	var (
		pos int64
		idx int
		err error
	)
	if dir > 0 {
		pos, idx, err = m.matches.Next(m.cursor)
	} else {
		pos, idx, err = m.matches.Prev(m.cursor)
	}
	if err != nil {
		m.statusMsg = fmt.Sprintf("Not found: %s", m.matches.Pattern.Term)
		return nil
	}
	m.matchIndex = idx
	m.setCursor(pos)
	m.recompute()
	m.statusMsg = fmt.Sprintf("Search: %s [%d/%d]", m.matches.Pattern.Term, idx+1, len(m.matches.Matches))
	return nil
}

// startSave snapshots the document and writes the temp file on a worker;
// the rename is committed back on the main loop. Edits are rejected while a
// save is in flight.
func (m *Model) startSave() tea.Cmd {
	if m.saving {
		m.statusMsg = "Save in progress"
		return nil
	}
	if !m.doc.Modified() {
		m.statusMsg = "No changes to save"
		return nil
	}
	m.saving = true
	m.saveID++

	id := m.saveID
	snap := m.doc.Snapshot()
	return func() tea.Msg {
		tmp, err := snap.WriteTemp()
		return saveDoneMsg{id: id, tmp: tmp, err: err}
	}
}

func (m *Model) applySaveResult(msg saveDoneMsg) tea.Cmd {
	if msg.id != m.saveID {
		if msg.tmp != "" {
			os.Remove(msg.tmp)
		}
		return nil
	}
	m.saving = false
	if msg.err != nil {
		m.statusMsg = fmt.Sprintf("Save failed: %v", msg.err)
		return nil
	}
	// The rename resets the loader onto the rewritten file; a scan still
	// running against a pre-save snapshot would read the new file at old
	// offsets. Drop it and rescan on the next navigation.
	m.invalidateScan()
	m.searchStale = m.matches != nil
	if err := m.doc.CommitSave(msg.tmp); err != nil {
		m.statusMsg = fmt.Sprintf("Save failed: %v", err)
		return nil
	}
	m.statusMsg = "Saved!"
	return nil
}

func (m *Model) handleFindKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEscape:
		m.view = ViewMain
	case tea.KeyEnter:
		m.view = ViewMain
		return m, m.apply(Command{Kind: CmdSearch, Pattern: m.findInput})
	case tea.KeyBackspace:
		if len(m.findInput) > 0 {
			m.findInput = m.findInput[:len(m.findInput)-1]
		}
	default:
		if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
			m.findInput += msg.String()
		}
	}
	return m, nil
}

func (m *Model) handleGotoKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEscape:
		m.view = ViewMain
	case tea.KeyEnter:
		m.view = ViewMain
		off, err := parseOffset(m.gotoInput)
		if err != nil {
			m.statusMsg = fmt.Sprintf("Invalid offset: %q", m.gotoInput)
			return m, nil
		}
		return m, m.apply(Command{Kind: CmdJumpToOffset, Offset: off})
	case tea.KeyBackspace:
		if len(m.gotoInput) > 0 {
			m.gotoInput = m.gotoInput[:len(m.gotoInput)-1]
		}
	default:
		s := msg.String()
		if len(s) == 1 && (decode.IsHexDigit(s[0]) || s == "x" || s == "X") {
			m.gotoInput += s
		}
	}
	return m, nil
}

func (m *Model) handleConfirmQuitKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		return m, tea.Quit
	case "n", "N", "esc":
		m.view = ViewMain
	}
	return m, nil
}

// parseOffset accepts a decimal offset or a 0x-prefixed hexadecimal one.
func parseOffset(input string) (int64, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	if s == "" {
		return 0, fmt.Errorf("empty offset")
	}
	if strings.HasPrefix(s, "0x") {
		return strconv.ParseInt(s[2:], 16, 64)
	}
	return strconv.ParseInt(s, 10, 64)
}
