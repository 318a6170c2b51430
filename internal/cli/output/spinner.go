package output

import (
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type (
	messageMsg string
	doneMsg    string
)

type spinnerModel struct {
	spinner spinner.Model
	message string
	final   string
	done    bool
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case messageMsg:
		m.message = string(msg)
		return m, nil
	case doneMsg:
		m.done = true
		m.final = string(msg)
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

func (m spinnerModel) View() string {
	if m.done {
		return m.final + "\n"
	}
	return m.spinner.View() + " " + m.message
}

// Spinner shows an animated status line on the error output while work runs.
// All methods are safe for concurrent use.
type Spinner struct {
	program *tea.Program
	styles  *Styles
	done    chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewSpinner creates a spinner showing message. Call Start to display it.
func (r *Renderer) NewSpinner(message string) *Spinner {
	model := spinnerModel{
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(r.styles.Spinner)),
		message: message,
	}
	return &Spinner{
		program: tea.NewProgram(model,
			tea.WithOutput(r.errOut),
			tea.WithInput(nil),
			tea.WithoutSignalHandler(),
		),
		styles: r.styles,
		done:   make(chan struct{}),
	}
}

// Start begins the animation.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	go func() {
		_, _ = s.program.Run()
		close(s.done)
	}()
}

func (s *Spinner) running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.stopped
}

// Update replaces the spinner message.
func (s *Spinner) Update(message string) {
	if s.running() {
		s.program.Send(messageMsg(message))
	}
}

// Println prints a line above the spinner.
func (s *Spinner) Println(line string) {
	if s.running() {
		s.program.Println(line)
	}
}

// Success stops the spinner with a success line.
func (s *Spinner) Success(message string) {
	s.stop(s.styles.Success.Render(StatusIcon("success")) + " " + message)
}

// Fail stops the spinner with a failure line.
func (s *Spinner) Fail(message string) {
	s.stop(s.styles.Error.Render(StatusIcon("failed")) + " " + message)
}

func (s *Spinner) stop(final string) {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.program.Send(doneMsg(final))
	<-s.done
}
