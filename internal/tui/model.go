package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/earwighaven/masterflatmaker/fits"
	"github.com/earwighaven/masterflatmaker/internal/app"
)

type sessionState uint

const (
	editView sessionState = iota
	runView
	doneView
)

// mainModel is the interactive session editor. It cycles between editing
// settings, watching a combination run, and reviewing the finished
// transcript before returning to the editor.
type mainModel struct {
	ctx         context.Context
	application *app.Application

	state   sessionState
	form    *form
	editing bool
	input   textinput.Model

	editorKeys editorKeyMap
	entryKeys  entryKeyMap
	runKeys    runKeyMap
	doneKeys   doneKeyMap
	help       help.Model

	fileNames []string
	scanError string
	status    string

	runner     *runner
	transcript []string
	vp         viewport.Model
	cancelling bool
	runErr     error

	width  int
	height int
}

func newModel(ctx context.Context, application *app.Application) *mainModel {
	input := textinput.New()
	input.Prompt = ""
	input.Width = 40

	m := &mainModel{
		ctx:         ctx,
		application: application,
		state:       editView,
		form:        newForm(application.Config.Settings()),
		input:       input,
		editorKeys:  newEditorKeyMap(),
		entryKeys:   newEntryKeyMap(),
		runKeys:     newRunKeyMap(),
		doneKeys:    newDoneKeyMap(),
		help:        help.New(),
		vp:          viewport.New(0, 0),
	}
	m.scanInputDir()
	return m
}

func (m *mainModel) Init() tea.Cmd {
	return nil
}

func (m *mainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.vp.Width = max(msg.Width-2, 20)
		m.vp.Height = max(msg.Height-4, 3)
		return m, nil
	case transcriptMsg:
		m.transcript = append(m.transcript, string(msg))
		m.vp.SetContent(strings.Join(m.transcript, "\n"))
		m.vp.GotoBottom()
		return m, m.runner.wait()
	case sessionDoneMsg:
		m.state = doneView
		m.runErr = msg.err
		m.cancelling = false
		return m, nil
	case tea.KeyMsg:
		switch m.state {
		case editView:
			return m.updateEditor(msg)
		case runView:
			if key.Matches(msg, m.runKeys.cancel) && !m.cancelling {
				m.cancelling = true
				m.transcript = append(m.transcript, "Cancelling....")
				m.vp.SetContent(strings.Join(m.transcript, "\n"))
				m.vp.GotoBottom()
				m.runner.stop()
			}
			return m, nil
		case doneView:
			switch {
			case key.Matches(msg, m.doneKeys.close):
				m.state = editView
			case key.Matches(msg, m.doneKeys.quit):
				return m, tea.Quit
			}
			return m, nil
		}
	}
	return m, nil
}

func (m *mainModel) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editing {
		switch {
		case key.Matches(msg, m.entryKeys.confirm):
			m.editing = false
			fl := m.form.current()
			if fl.commit(m.input.Value()) && fl.id == fieldInputDir {
				m.scanInputDir()
			}
			return m, nil
		case key.Matches(msg, m.entryKeys.abort):
			m.editing = false
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	m.status = ""
	switch {
	case key.Matches(msg, m.editorKeys.up):
		m.form.moveUp()
	case key.Matches(msg, m.editorKeys.down):
		m.form.moveDown()
	case key.Matches(msg, m.editorKeys.action):
		return m.activateField()
	case key.Matches(msg, m.editorKeys.prev):
		switch fl := m.form.current(); fl.kind {
		case toggleField:
			fl.toggle()
		case choiceField:
			fl.cycle(-1)
		}
	case key.Matches(msg, m.editorKeys.next):
		switch fl := m.form.current(); fl.kind {
		case toggleField:
			fl.toggle()
		case choiceField:
			fl.cycle(1)
		}
	case key.Matches(msg, m.editorKeys.run):
		return m.startRun()
	case key.Matches(msg, m.editorKeys.quit):
		return m, tea.Quit
	}
	return m, nil
}

func (m *mainModel) activateField() (tea.Model, tea.Cmd) {
	fl := m.form.current()
	switch fl.kind {
	case toggleField:
		fl.toggle()
	case choiceField:
		fl.cycle(1)
	case textField:
		m.editing = true
		m.input.SetValue(fl.value)
		m.input.CursorEnd()
		m.input.Focus()
		return m, textinput.Blink
	}
	return m, nil
}

func (m *mainModel) startRun() (tea.Model, tea.Cmd) {
	settings, ok := m.form.settings()
	if !ok {
		if i := m.form.firstInvalid(); i >= 0 {
			m.form.cursor = i
		}
		m.status = "fix the highlighted value first"
		return m, nil
	}
	if m.scanError != "" || len(m.fileNames) == 0 {
		m.status = "no FITS files in the input directory"
		return m, nil
	}

	plan := runPlan{
		settings:        settings,
		fileNames:       m.fileNames,
		outputPath:      strings.TrimSpace(m.form.get(fieldOutputFile).value),
		outputDirectory: strings.TrimSpace(m.form.get(fieldOutputDir).value),
	}
	m.runner = newRunner(m.application, plan)
	m.runner.start(m.ctx)
	m.state = runView
	m.transcript = nil
	m.cancelling = false
	m.runErr = nil
	m.vp.SetContent("")
	return m, m.runner.wait()
}

// scanInputDir refreshes the input file list from the directory field.
func (m *mainModel) scanInputDir() {
	dir := strings.TrimSpace(m.form.get(fieldInputDir).value)
	names, err := fits.FindFiles(dir, false)
	if err != nil {
		m.fileNames = nil
		m.scanError = "cannot read directory"
		return
	}
	m.fileNames = names
	m.scanError = ""
}

func (m *mainModel) View() string {
	switch m.state {
	case runView:
		return strings.Join([]string{
			titleStyle.Render("MasterFlatMaker"),
			m.vp.View(),
			statusStyle.Render(m.runStatus()),
			m.help.View(m.runKeys),
		}, "\n")
	case doneView:
		return strings.Join([]string{
			titleStyle.Render("MasterFlatMaker"),
			m.vp.View(),
			m.doneStatus(),
			m.help.View(m.doneKeys),
		}, "\n")
	default:
		return m.editorView()
	}
}

func (m *mainModel) editorView() string {
	lines := []string{titleStyle.Render("MasterFlatMaker"), ""}

	section := ""
	for i, fl := range m.form.fields {
		if !m.form.visible(fl) {
			continue
		}
		if fl.section != section {
			section = fl.section
			lines = append(lines, sectionStyle.Render(section))
		}
		lines = append(lines, m.renderField(fl, i == m.form.cursor))
	}

	if list := m.fileList(); len(list) > 0 {
		lines = append(lines, "")
		lines = append(lines, list...)
	}

	lines = append(lines, "", m.editorStatus())
	if m.editing {
		lines = append(lines, m.help.View(m.entryKeys))
	} else {
		lines = append(lines, m.help.View(m.editorKeys))
	}
	return strings.Join(lines, "\n")
}

// fileList renders the scanned input files, truncated so a large directory
// does not push the form off screen.
func (m *mainModel) fileList() []string {
	if len(m.fileNames) == 0 {
		return nil
	}
	const maxListed = 6
	lines := []string{sectionStyle.Render("Input files")}
	for i, name := range m.fileNames {
		if i == maxListed {
			lines = append(lines, mutedStyle.Render(fmt.Sprintf("  ... and %d more", len(m.fileNames)-maxListed)))
			break
		}
		lines = append(lines, mutedStyle.Render("  "+filepath.Base(name)))
	}
	return lines
}

func (m *mainModel) renderField(fl *field, selected bool) string {
	marker := "  "
	if selected {
		marker = cursorStyle.Render("> ")
	}
	value := valueStyle.Render(fl.displayValue())
	if m.editing && selected {
		value = m.input.View()
	}
	line := fmt.Sprintf("%s%-22s %s", marker, fl.label, value)
	if fl.invalid != "" && !(m.editing && selected) {
		line += "  " + invalidStyle.Render(fl.invalid)
	}
	return line
}

func (m *mainModel) editorStatus() string {
	if m.status != "" {
		return statusStyle.Render(m.status)
	}
	if m.scanError != "" {
		return invalidStyle.Render(m.scanError)
	}
	dir := m.form.get(fieldInputDir).value
	return mutedStyle.Render(fmt.Sprintf("%d FITS files in %s", len(m.fileNames), dir))
}

func (m *mainModel) runStatus() string {
	if m.cancelling {
		return "Cancelling"
	}
	return "Combining"
}

func (m *mainModel) doneStatus() string {
	switch {
	case m.runErr == nil:
		return valueStyle.Render("Session complete")
	case errors.Is(m.runErr, context.Canceled):
		return statusStyle.Render("Session cancelled")
	default:
		return invalidStyle.Render("Session failed")
	}
}
