// Package ui provides the interactive soundboard for naudio.
package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/gitcha"
	"github.com/muesli/reflow/truncate"

	"github.com/nothke/naudio/sound"
)

const (
	statusMessageTimeout = time.Second * 3
	ellipsis             = "…"
)

var audioExtensions = []string{"*.wav", "*.wave", "*.mp3", "*.ogg", "*.oga"}

// ClipLoader decodes an audio file into a playable clip. The oto engine
// satisfies this; tests substitute their own.
type ClipLoader interface {
	LoadClip(path string) (*sound.Clip, error)
}

// NewProgram returns a new Tea program running the soundboard.
func NewProgram(cfg Config, d *sound.Dispatcher, loader ClipLoader) *tea.Program {
	log.Debug("starting soundboard", "path", cfg.Path, "watch", cfg.Watch)

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	return tea.NewProgram(newModel(cfg, d, loader), opts...)
}

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

type (
	initFileSearchMsg struct {
		cwd string
		ch  chan gitcha.SearchResult
	}
	foundFileMsg       gitcha.SearchResult
	fileSearchFinished struct{}

	clipLoadedMsg struct {
		path string
		clip *sound.Clip
		err  error
	}

	dirChangedMsg     struct{}
	statusTimeoutMsg  struct{}
	watcherStartedMsg struct{ w *fsnotify.Watcher }
)

// state is the top-level application state.
type state int

const (
	stateScanning state = iota
	stateReady
)

func (s state) String() string {
	return map[state]string{
		stateScanning: "scanning for audio files",
		stateReady:    "showing soundboard",
	}[s]
}

// soundFile is one discovered audio file. The clip is decoded lazily on
// first play and cached on the entry.
type soundFile struct {
	path    string
	note    string
	size    int64
	modTime time.Time

	clip    *sound.Clip
	loading bool
	loadErr error
}

type model struct {
	cfg      Config
	d        *sound.Dispatcher
	loader   ClipLoader
	state    state
	fatalErr error

	files  []soundFile
	cursor int

	width  int
	height int

	spinner spinner.Model
	keys    keyMap
	status  string

	cwd        string
	fileFinder chan gitcha.SearchResult
	watcher    *fsnotify.Watcher
}

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Play    key.Binding
	PlayAny key.Binding
	Stop    key.Binding
	Rescan  key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:      key.NewBinding(key.WithKeys("up", "k")),
		Down:    key.NewBinding(key.WithKeys("down", "j")),
		Play:    key.NewBinding(key.WithKeys("enter")),
		PlayAny: key.NewBinding(key.WithKeys(" ")),
		Stop:    key.NewBinding(key.WithKeys("s")),
		Rescan:  key.NewBinding(key.WithKeys("r")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c", "esc")),
	}
}

func newModel(cfg Config, d *sound.Dispatcher, loader ClipLoader) model {
	sp := spinner.New()
	sp.Spinner = spinner.Line
	if hasDarkBackground() {
		sp.Style = lipgloss.NewStyle().Foreground(fuchsia)
	}

	return model{
		cfg:     cfg,
		d:       d,
		loader:  loader,
		state:   stateScanning,
		spinner: sp,
		keys:    defaultKeyMap(),
	}
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, findAudioFiles(m.cfg)}
	if m.cfg.Watch {
		cmds = append(cmds, startWatcher(m.cfg))
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// If there's been an error, any key exits.
	if m.fatalErr != nil {
		if _, ok := msg.(tea.KeyMsg); ok {
			return m, tea.Quit
		}
	}

	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			if m.watcher != nil {
				m.watcher.Close()
			}
			return m, tea.Quit

		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}

		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.files)-1 {
				m.cursor++
			}

		case key.Matches(msg, m.keys.Play):
			return m, m.playCursor(false)

		case key.Matches(msg, m.keys.PlayAny):
			return m, m.playCursor(true)

		case key.Matches(msg, m.keys.Stop):
			if pool := m.d.Pool(); pool != nil {
				if err := pool.Reset(pool.Size()); err != nil {
					m.status = err.Error()
					return m, clearStatus()
				}
			}
			m.status = "stopped"
			return m, clearStatus()

		case key.Matches(msg, m.keys.Rescan):
			m.files = nil
			m.cursor = 0
			m.state = stateScanning
			return m, tea.Batch(m.spinner.Tick, findAudioFiles(m.cfg))
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case initFileSearchMsg:
		m.fileFinder = msg.ch
		m.cwd = msg.cwd
		cmds = append(cmds, findNextAudioFile(m))

	case foundFileMsg:
		m.files = append(m.files, soundFile{
			path:    msg.Path,
			note:    stripAbsolutePath(msg.Path, m.cwd),
			size:    msg.Info.Size(),
			modTime: msg.Info.ModTime(),
		})
		sort.Slice(m.files, func(i, j int) bool { return m.files[i].note < m.files[j].note })
		cmds = append(cmds, findNextAudioFile(m))

	case fileSearchFinished:
		m.state = stateReady
		if m.cursor >= len(m.files) {
			m.cursor = 0
		}
		log.Debug("audio file search finished", "count", len(m.files))

	case clipLoadedMsg:
		for i := range m.files {
			if m.files[i].path != msg.path {
				continue
			}
			m.files[i].loading = false
			if msg.err != nil {
				m.files[i].loadErr = msg.err
				m.status = msg.err.Error()
				cmds = append(cmds, clearStatus())
				break
			}
			m.files[i].clip = msg.clip
			cmds = append(cmds, m.play(msg.clip, false))
			break
		}

	case watcherStartedMsg:
		m.watcher = msg.w
		cmds = append(cmds, waitForDirChange(msg.w))

	case dirChangedMsg:
		m.files = nil
		m.cursor = 0
		m.state = stateScanning
		cmds = append(cmds, m.spinner.Tick, findAudioFiles(m.cfg))
		if m.watcher != nil {
			cmds = append(cmds, waitForDirChange(m.watcher))
		}

	case statusTimeoutMsg:
		m.status = ""

	case spinner.TickMsg:
		if m.state == stateScanning {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case errMsg:
		m.fatalErr = msg.err
	}

	return m, tea.Batch(cmds...)
}

// playCursor plays the file under the cursor, loading its clip first if
// it has not been decoded yet. randomStart seeks to a random position.
func (m *model) playCursor(randomStart bool) tea.Cmd {
	if m.cursor >= len(m.files) {
		return nil
	}
	f := &m.files[m.cursor]
	if f.clip == nil {
		if f.loading {
			return nil
		}
		f.loading = true
		return loadClip(m.loader, f.path)
	}
	return m.play(f.clip, randomStart)
}

// play dispatches the clip on the update goroutine. The dispatcher and
// its pool expect calls from a single goroutine, so this must never run
// inside a command.
func (m *model) play(clip *sound.Clip, randomStart bool) tea.Cmd {
	e, err := m.d.Play(clip, sound.Vec3{}, sound.DefaultPlayParams())
	if err != nil && !sound.IsRecoverableError(err) {
		m.fatalErr = err
		return nil
	}
	if randomStart && e != nil {
		m.d.PlayRandomTime(e)
	}
	return nil
}

func (m model) View() string {
	if m.fatalErr != nil {
		return errorView(m.fatalErr, true)
	}

	var b strings.Builder
	b.WriteString("\n  " + titleStyle.Render("naudio") + "\n\n")

	if m.state == stateScanning {
		fmt.Fprintf(&b, "  %s scanning %s\n", m.spinner.View(), m.cfg.Path)
		return b.String()
	}

	if len(m.files) == 0 {
		b.WriteString(subtleStyle.Render("  no audio files found") + "\n")
	}

	for i, f := range m.files {
		line := m.fileLine(f, i == m.cursor)
		b.WriteString(line + "\n")
	}

	b.WriteString("\n" + m.statusBar())
	return b.String()
}

func (m model) fileLine(f soundFile, selected bool) string {
	cursor := "  "
	style := itemStyle
	if selected {
		cursor = "> "
		style = selectedItemStyle
	}

	name := f.note
	maxName := m.width - 20
	if maxName > 0 {
		name = truncate.StringWithTail(name, uint(maxName), ellipsis)
	}

	meta := humanize.Bytes(uint64(f.size))
	if f.clip != nil {
		meta = fmt.Sprintf("%s  %s", f.clip.Duration.Round(10*time.Millisecond), meta)
	}
	if f.loading {
		meta = "loading" + ellipsis
	}
	if f.loadErr != nil {
		meta = "unplayable"
	}

	pad := m.width - runewidth.StringWidth(cursor+name+meta) - 4
	if pad < 1 {
		pad = 1
	}
	return cursor + style.Render(name) + strings.Repeat(" ", pad) + subtleStyle.Render(meta)
}

func (m model) statusBar() string {
	if m.status != "" {
		return "  " + playingStyle.Render(m.status) + "\n"
	}
	help := "enter: play • space: play from random point • s: stop • r: rescan • q: quit"
	return "  " + subtleStyle.Render(help) + "\n"
}

func errorView(err error, fatal bool) string {
	exitMsg := "press any key to "
	if fatal {
		exitMsg += "exit"
	} else {
		exitMsg += "return"
	}
	s := fmt.Sprintf("%s\n\n%v\n\n%s",
		errorTitleStyle.Render("ERROR"),
		err,
		subtleStyle.Render(exitMsg),
	)
	return "\n" + indent(s, 3)
}

// COMMANDS

func findAudioFiles(cfg Config) tea.Cmd {
	return func() tea.Msg {
		var (
			cwd = cfg.Path
			err error
		)

		if cwd == "" {
			cwd, err = os.Getwd()
		} else {
			var info os.FileInfo
			info, err = os.Stat(cwd)
			if err == nil && info.IsDir() {
				cwd, err = filepath.Abs(cwd)
			}
		}

		// Note that this is one error check for both cases above.
		if err != nil {
			log.Error("error finding audio files", "error", err)
			return errMsg{err}
		}

		var ch chan gitcha.SearchResult
		if cfg.ShowAllFiles {
			ch, err = gitcha.FindAllFilesExcept(cwd, audioExtensions, nil)
		} else {
			ch, err = gitcha.FindFilesExcept(cwd, audioExtensions, nil)
		}
		if err != nil {
			log.Error("error finding audio files", "error", err)
			return errMsg{err}
		}

		return initFileSearchMsg{ch: ch, cwd: cwd}
	}
}

func findNextAudioFile(m model) tea.Cmd {
	return func() tea.Msg {
		res, ok := <-m.fileFinder
		if ok {
			return foundFileMsg(res)
		}
		return fileSearchFinished{}
	}
}

func loadClip(loader ClipLoader, path string) tea.Cmd {
	return func() tea.Msg {
		clip, err := loader.LoadClip(path)
		return clipLoadedMsg{path: path, clip: clip, err: err}
	}
}

func startWatcher(cfg Config) tea.Cmd {
	return func() tea.Msg {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			log.Warn("file watching unavailable", "error", err)
			return nil
		}
		dir := cfg.Path
		if dir == "" {
			dir, _ = os.Getwd()
		}
		if err := w.Add(dir); err != nil {
			log.Warn("cannot watch directory", "dir", dir, "error", err)
			w.Close()
			return nil
		}
		return watcherStartedMsg{w: w}
	}
}

func waitForDirChange(w *fsnotify.Watcher) tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return nil
				}
				if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					return dirChangedMsg{}
				}
			case _, ok := <-w.Errors:
				if !ok {
					return nil
				}
			}
		}
	}
}

func clearStatus() tea.Cmd {
	return tea.Tick(statusMessageTimeout, func(time.Time) tea.Msg {
		return statusTimeoutMsg{}
	})
}

// ETC

func stripAbsolutePath(fullPath, cwd string) string {
	fp, _ := filepath.EvalSymlinks(fullPath)
	cp, _ := filepath.EvalSymlinks(cwd)
	return strings.ReplaceAll(fp, cp+string(os.PathSeparator), "")
}

// Lightweight version of reflow's indent function.
func indent(s string, n int) string {
	if n <= 0 || s == "" {
		return s
	}
	l := strings.Split(s, "\n")
	b := strings.Builder{}
	i := strings.Repeat(" ", n)
	for _, v := range l {
		fmt.Fprintf(&b, "%s%s\n", i, v)
	}
	return b.String()
}
