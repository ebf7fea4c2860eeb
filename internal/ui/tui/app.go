// Package tui is the interactive browser started by a bare `smol`: it lists
// configs, runs one with live per-trial progress, and shows run history.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/stanford-futuredata/smol/internal/domain"
	"github.com/stanford-futuredata/smol/internal/ui/term"
)

type screen int

const (
	screenHome screen = iota
	screenConfigs
	screenPreview
	screenRun
	screenHistory
)

const (
	menuConfigs = "Configs"
	menuHistory = "History"
	menuInit    = "Init workspace"
	menuQuit    = "Quit"
)

type menuItem struct {
	title string
	desc  string
}

func (m menuItem) Title() string       { return m.title }
func (m menuItem) Description() string { return m.desc }
func (m menuItem) FilterValue() string { return m.title }

type configItem struct{ ref domain.ConfigRef }

func (c configItem) Title() string       { return c.ref.Rel }
func (c configItem) Description() string { return c.ref.Path }
func (c configItem) FilterValue() string { return c.ref.Rel }

type historyItem struct {
	title string
	desc  string
}

func (h historyItem) Title() string       { return h.title }
func (h historyItem) Description() string { return h.desc }
func (h historyItem) FilterValue() string { return h.title }

// runState tracks the experiment started from the browser.
type runState struct {
	running bool
	ref     domain.ConfigRef
	mode    domain.ExperimentMode
	total   int
	trials  []domain.TrialResult

	res *domain.ExperimentResult
	err error

	ch     <-chan tea.Msg
	cancel context.CancelFunc
}

type model struct {
	ctx   context.Context
	theme term.Theme
	deps  Deps
	log   *zap.Logger

	scr     screen
	menu    list.Model
	configs list.Model
	history list.Model
	spin    spinner.Model
	bar     progress.Model

	workspaceFound bool
	workspaceRoot  string
	cfg            domain.Config
	mode           domain.ExperimentMode

	previewPath string
	preview     string

	run   runState
	toast string
}

// Run starts the full-screen browser and blocks until it exits.
func Run(ctx context.Context, deps Deps) error {
	m := newModel(ctx, deps)
	p := tea.NewProgram(wrapSafe(m, m.log), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func newModel(ctx context.Context, deps Deps) model {
	if ctx == nil {
		ctx = context.Background()
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	items := []list.Item{
		menuItem{menuConfigs, "Browse configs, preview and run one"},
		menuItem{menuHistory, "Past runs from index.jsonl"},
		menuItem{menuInit, "Create smol.yaml, templates and sweeps here"},
		menuItem{menuQuit, "Exit smol"},
	}
	menu := list.New(items, list.NewDefaultDelegate(), 0, 0)
	menu.Title = "smol"
	menu.SetShowStatusBar(false)
	menu.SetFilteringEnabled(false)
	menu.SetShowHelp(false)

	configs := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	configs.Title = "Configs"
	configs.SetShowHelp(false)

	history := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	history.Title = "History"
	history.SetShowHelp(false)

	return model{
		ctx:     ctx,
		theme:   term.DefaultTheme(),
		deps:    deps,
		log:     log,
		scr:     screenHome,
		menu:    menu,
		configs: configs,
		history: history,
		spin:    spinner.New(spinner.WithSpinner(spinner.Dot)),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		cfg:     domain.DefaultConfig(),
		mode:    domain.ModeImage,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(cmdRefreshWorkspace(m.deps), m.spin.Tick)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		w, h := msg.Width-4, msg.Height-10
		m.menu.SetSize(w, h)
		m.configs.SetSize(w, h)
		m.history.SetSize(w, h)
		if w > 10 {
			m.bar.Width = min(w-10, 60)
		}
		return m, nil

	case workspaceRefreshedMsg:
		m.workspaceFound = msg.found
		m.workspaceRoot = msg.root
		m.cfg = msg.cfg
		if msg.err != nil {
			m.toast = term.UserMessage(msg.err)
		}
		return m, nil

	case initWorkspaceDoneMsg:
		if msg.err != nil {
			m.toast = term.UserMessage(msg.err)
		} else {
			m.toast = "Workspace initialized at " + msg.root
		}
		return m, cmdRefreshWorkspace(m.deps)

	case configsLoadedMsg:
		items := make([]list.Item, 0, len(msg.refs))
		for _, r := range msg.refs {
			items = append(items, configItem{ref: r})
		}
		cmd := m.configs.SetItems(items)
		if msg.err != nil {
			m.toast = term.UserMessage(msg.err)
		}
		return m, cmd

	case configPreviewMsg:
		if msg.err != nil {
			m.toast = term.UserMessage(msg.err)
			return m, nil
		}
		m.previewPath = msg.path
		m.preview = msg.preview
		m.scr = screenPreview
		return m, nil

	case historyLoadedMsg:
		items := make([]list.Item, 0, len(msg.entries))
		for _, e := range msg.entries {
			items = append(items, historyItem{title: historyTitle(msg.dir, e), desc: historyDesc(e)})
		}
		cmd := m.history.SetItems(items)
		if msg.err != nil {
			m.toast = term.UserMessage(msg.err)
		}
		return m, cmd

	case trialMsg:
		m.run.total = msg.Total
		m.run.trials = append(m.run.trials, msg.Trial)
		return m, listenRunner(m.run.ch)

	case runnerDoneMsg:
		m.run.running = false
		m.run.res = &msg.res
		m.run.err = msg.err
		if m.run.cancel != nil {
			m.run.cancel()
			m.run.cancel = nil
		}
		m.run.ch = nil
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if next, cmd, handled := m.handleKey(msg); handled {
			return next, cmd
		}
	}

	var cmd tea.Cmd
	switch m.scr {
	case screenHome:
		m.menu, cmd = m.menu.Update(msg)
	case screenConfigs:
		m.configs, cmd = m.configs.Update(msg)
	case screenHistory:
		m.history, cmd = m.history.Update(msg)
	}
	return m, cmd
}

// handleKey returns handled=false for keys the active list should see.
func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd, bool) {
	key := msg.String()
	if key == "ctrl+c" {
		if m.run.cancel != nil {
			m.run.cancel()
		}
		return m, tea.Quit, true
	}
	if m.filtering() {
		return m, nil, false
	}
	m.toast = ""

	switch m.scr {
	case screenHome:
		switch key {
		case "q":
			return m, tea.Quit, true
		case "enter":
			it, ok := m.menu.SelectedItem().(menuItem)
			if !ok {
				return m, nil, true
			}
			return m.openMenu(it.title)
		}

	case screenConfigs:
		switch key {
		case "esc", "b", "q":
			m.scr = screenHome
			return m, nil, true
		case "m":
			m.mode = toggleMode(m.mode)
			return m, nil, true
		case "enter":
			it, ok := m.configs.SelectedItem().(configItem)
			if !ok {
				return m, nil, true
			}
			return m, cmdPreviewConfig(m.deps, it.ref.Path), true
		case "r":
			it, ok := m.configs.SelectedItem().(configItem)
			if !ok {
				return m, nil, true
			}
			next, cmd := m.startRun(it.ref)
			return next, cmd, true
		}

	case screenPreview:
		switch key {
		case "esc", "b", "q":
			m.scr = screenConfigs
			return m, nil, true
		case "m":
			m.mode = toggleMode(m.mode)
			return m, nil, true
		case "r":
			it, ok := m.configs.SelectedItem().(configItem)
			if !ok {
				return m, nil, true
			}
			next, cmd := m.startRun(it.ref)
			return next, cmd, true
		}

	case screenRun:
		switch key {
		case "esc", "b", "q":
			if m.run.running {
				if m.run.cancel != nil {
					m.run.cancel()
				}
				m.toast = "Cancelling after the current run…"
				return m, nil, true
			}
			m.scr = screenConfigs
			return m, nil, true
		}
		return m, nil, true

	case screenHistory:
		switch key {
		case "esc", "b", "q":
			m.scr = screenHome
			return m, nil, true
		case "r":
			return m, cmdLoadHistory(m.workspaceRoot, m.cfg), true
		}
	}
	return m, nil, false
}

func (m model) openMenu(title string) (model, tea.Cmd, bool) {
	switch title {
	case menuQuit:
		return m, tea.Quit, true
	case menuConfigs:
		m.scr = screenConfigs
		return m, cmdLoadConfigs(m.deps, m.workspaceRoot, m.cfg), true
	case menuHistory:
		m.scr = screenHistory
		return m, cmdLoadHistory(m.workspaceRoot, m.cfg), true
	case menuInit:
		if m.workspaceFound {
			m.toast = "Workspace already initialized at " + m.workspaceRoot
			return m, nil, true
		}
		return m, cmdInitWorkspaceHere(m.deps, m.workspaceRoot), true
	}
	return m, nil, true
}

func (m model) startRun(ref domain.ConfigRef) (model, tea.Cmd) {
	if m.run.running {
		m.toast = "A run is already in progress"
		return m, nil
	}
	ctx, cancel := context.WithCancel(m.ctx)
	req := runRequest{root: m.workspaceRoot, cfg: m.cfg, ref: ref, mode: m.mode}
	ch, listen := startRunAsync(ctx, m.deps, req, m.log)

	m.run = runState{
		running: true,
		ref:     ref,
		mode:    m.mode,
		total:   m.cfg.Runner.Trials,
		ch:      ch,
		cancel:  cancel,
	}
	m.scr = screenRun
	return m, tea.Batch(listen, m.spin.Tick)
}

func (m model) filtering() bool {
	switch m.scr {
	case screenConfigs:
		return m.configs.FilterState() == list.Filtering
	case screenHistory:
		return m.history.FilterState() == list.Filtering
	}
	return false
}

func toggleMode(mode domain.ExperimentMode) domain.ExperimentMode {
	if mode == domain.ModeVideo {
		return domain.ModeImage
	}
	return domain.ModeVideo
}

func (m model) View() string {
	wrap := lipgloss.NewStyle().Padding(1, 2)
	header := m.theme.Title.Render("smol") + "\n" +
		m.theme.Subtitle.Render("config sweeps and trial runs for the inference runner") + "\n"

	var banner string
	if m.workspaceFound {
		banner = m.theme.Help.Render(fmt.Sprintf("Workspace: %s", m.workspaceRoot))
	} else {
		banner = m.theme.Card.Render("No workspace found; using defaults in " + m.workspaceRoot +
			"\nChoose Init workspace to create smol.yaml.")
	}

	var body, help string
	switch m.scr {
	case screenHome:
		body = m.theme.Card.Render(m.menu.View())
		help = "↑/↓ navigate • enter open • q quit"

	case screenConfigs:
		body = m.theme.Card.Render(m.configs.View())
		help = fmt.Sprintf("enter preview • r run (%s) • m toggle mode • / filter • esc back", m.mode)

	case screenPreview:
		body = m.theme.Card.Render(m.theme.Title.Render(m.previewPath) + "\n\n" + m.preview)
		help = fmt.Sprintf("r run (%s) • m toggle mode • esc back", m.mode)

	case screenRun:
		body = m.theme.Card.Render(m.runView())
		if m.run.running {
			help = "esc cancel • ctrl+c quit"
		} else {
			help = "esc back • ctrl+c quit"
		}

	case screenHistory:
		body = m.theme.Card.Render(m.history.View())
		help = "r reload • / filter • esc back"

	default:
		body = "unknown state"
	}

	out := header + "\n" + banner + "\n\n" + body + "\n" + m.theme.Help.Render(help)
	if m.toast != "" {
		out += "\n" + m.theme.Fail.Render(m.toast)
	}
	return wrap.Render(out)
}

func (m model) runView() string {
	var b strings.Builder
	b.WriteString(m.theme.Title.Render(fmt.Sprintf("%s (%s)", m.run.ref.Rel, m.run.mode)))
	b.WriteString("\n\n")

	finished := len(m.run.trials) - 1
	if finished < 0 {
		finished = 0
	}
	if m.run.running {
		b.WriteString(fmt.Sprintf("%s trial %d/%d  ", m.spin.View(), finished, m.run.total))
	}
	b.WriteString(m.bar.ViewAs(progressFraction(len(m.run.trials), m.run.total)))
	b.WriteString("\n\n")

	for _, tr := range m.run.trials {
		line := renderTrial(tr)
		if tr.Measured || (tr.Index < 0 && tr.ExitCode == 0 && tr.Error == "") {
			line = m.theme.OK.Render(line)
		} else {
			line = m.theme.Fail.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if !m.run.running && m.run.res != nil {
		b.WriteString("\n")
		if m.run.err != nil {
			b.WriteString(m.theme.Fail.Render(term.UserMessage(m.run.err)))
		} else {
			b.WriteString(renderSummary(*m.run.res))
			b.WriteString("\n")
			b.WriteString(m.theme.Help.Render("out: " + m.run.res.OutDir))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
