package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/manipulator/pkg/control"
	"github.com/gwillem/manipulator/pkg/robot"
	"github.com/gwillem/manipulator/pkg/telemetry"
)

type DriveCommand struct {
	Port    string `long:"port" description:"Serial port (overrides config)"`
	Baud    int    `long:"baud" description:"Baud rate (overrides config)"`
	Driver  string `long:"driver" choice:"serial" choice:"feetech" description:"Device driver (overrides config)"`
	Hz      int    `long:"hz" description:"Control loop frequency (overrides config)"`
	Step    int    `long:"step" description:"Position change per key press (overrides config)"`
	Presets string `long:"presets" description:"Preset file (overrides config)"`
	Sim     bool   `long:"sim" description:"Do not open the device"`
	LogFile string `long:"log-file" description:"Append controller log lines to this file"`
}

const (
	headerHeight = 2 // title + blank line
	cardsHeight  = 18
	footerHeight = 9 // status, help and log box
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
	cardsPerRow  = 3
	cardWidth    = 26
)

// Motor colors - distinct colors for each motor
var motorColors = map[robot.MotorName]string{
	robot.Base:     "196", // red
	robot.Shoulder: "208", // orange
	robot.UpperArm: "226", // yellow
	robot.Elbow:    "46",  // green
	robot.Wrist:    "51",  // cyan
	robot.Hand:     "201", // magenta
}

var stateColors = map[robot.State]string{
	robot.Idle:    "10",
	robot.Moving:  "11",
	robot.AtLimit: "9",
	robot.Error:   "9",
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	cardStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1).Width(cardWidth)
)

type driveModel struct {
	ctrl      *control.Controller
	chart     *streamlinechart.Model
	limiter   *repeatLimiter
	prompt    textinput.Model
	prompting bool
	step      int
	state     control.State
	width     int      // terminal width
	height    int      // terminal height
	logs      []string // last N log messages
	quitting  bool
	lastPos   [robot.NumAxes]float64
	havePos   bool
}

func (m *driveModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// Messages from the controller
type stateMsg control.State
type logMsg string

// commandDoneMsg reports that a dispatched command has left the controller.
type commandDoneMsg struct{}

// runCommand runs a controller call outside the update loop so a stalled
// device cannot freeze the screen.
func runCommand(fn func()) tea.Cmd {
	return func() tea.Msg {
		fn()
		return commandDoneMsg{}
	}
}

func waitForState(ctrl *control.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(ctrl *control.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *driveModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 10
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - cardsHeight - footerHeight - borderSize
	if height < 6 {
		height = 6
	}
	return width, height
}

func (m *driveModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func initialDriveModel(ctrl *control.Controller, step int) driveModel {
	chart := streamlinechart.New(80, 10,
		streamlinechart.WithYRange(0, 1023),
	)
	for _, name := range robot.AllMotors() {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(motorColors[name]))
		chart.SetDataSetStyles(string(name), runes.ThinLineStyle, style)
	}

	prompt := textinput.New()
	prompt.Placeholder = "preset name"
	prompt.CharLimit = 32
	prompt.Prompt = "Save preset as: "

	return driveModel{
		ctrl:    ctrl,
		chart:   &chart,
		limiter: newRepeatLimiter(),
		prompt:  prompt,
		step:    step,
		state:   ctrl.Snapshot(),
	}
}

func (m driveModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.ctrl),
		waitForLog(m.ctrl),
	)
}

func (m driveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		if m.prompting {
			return m.updatePrompt(msg)
		}
		return m.handleKey(msg.String(), time.Now())

	case stateMsg:
		m.state = control.State(msg)
		pos := currents(m.state)
		// Freeze the chart while nothing moves
		if !m.havePos || pos != m.lastPos {
			for i, name := range robot.AllMotors() {
				m.chart.PushDataSet(string(name), pos[i])
			}
			m.chart.DrawAll()
			m.lastPos = pos
			m.havePos = true
		}
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)

	case commandDoneMsg:
		m.state = m.ctrl.Snapshot()
		return m, nil
	}

	return m, nil
}

func (m driveModel) handleKey(key string, now time.Time) (tea.Model, tea.Cmd) {
	a := actionFor(key)
	ctrl := m.ctrl
	var cmd tea.Cmd
	switch a.kind {
	case actionQuit:
		m.quitting = true
		return m, tea.Quit

	case actionMove:
		if m.limiter.allow(key, moveRepeat, now) {
			step := m.step
			cmd = runCommand(func() { ctrl.UpdateTarget(a.axis, a.dir, step) })
		}

	case actionTorque:
		if m.limiter.allow(key, toggleRepeat, now) {
			cmd = runCommand(func() { ctrl.ToggleTorque(a.axis) })
		}

	case actionPreset:
		if !m.limiter.allow(key, toggleRepeat, now) {
			break
		}
		presets := m.ctrl.Presets()
		if a.preset >= len(presets) {
			m.addLog(fmt.Sprintf("No preset on key %d", a.preset+1))
			break
		}
		name := presets[a.preset].Name
		cmd = runCommand(func() { ctrl.LoadPreset(name) })

	case actionTelemetry:
		if !m.limiter.allow(key, toggleRepeat, now) {
			break
		}
		if !m.ctrl.SetTelemetry(!m.ctrl.TelemetryEnabled()) {
			m.addLog("No telemetry sink configured")
		}

	case actionPrompt:
		m.prompting = true
		m.prompt.Reset()
		cmd = m.prompt.Focus()
		return m, cmd
	}
	m.state = m.ctrl.Snapshot()
	return m, cmd
}

func (m driveModel) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "esc":
		m.prompting = false
		m.prompt.Blur()
		return m, nil
	case "enter":
		name := strings.TrimSpace(m.prompt.Value())
		m.prompting = false
		m.prompt.Blur()
		if name != "" {
			// failures reach the log box through the controller
			_ = m.ctrl.SavePreset(name)
			m.state = m.ctrl.Snapshot()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func currents(s control.State) [robot.NumAxes]float64 {
	var out [robot.NumAxes]float64
	for i, info := range s.Motors {
		out[i] = info.Current
	}
	return out
}

func (m driveModel) View() string {
	if m.quitting {
		return "Manipulator stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("Manipulator"))
	sb.WriteString(fmt.Sprintf(" - %d Hz  ", m.ctrl.Hz()))
	sb.WriteString(renderLink(m.state))
	if m.state.ActivePreset != "" {
		sb.WriteString(statusStyle.Render("  preset " + m.state.ActivePreset))
	}
	if m.state.Logging {
		sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render("  ● REC"))
	}
	sb.WriteString("\n\n")

	sb.WriteString(renderCards(m.state))
	sb.WriteString("\n")

	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")
	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	if m.prompting {
		sb.WriteString(m.prompt.View())
	} else {
		sb.WriteString(m.state.Status)
	}
	sb.WriteString("\n")
	sb.WriteString(statusStyle.Render("q/a w/s e/d r/f t/g y/h move  1-9 presets  z-n torque  p save  l record  esc quit"))
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Foreground(lipgloss.Color("250"))
	if m.width > 4 {
		logStyle = logStyle.Width(m.width - 4)
	}

	logLines := statusStyle.Render("No log messages yet")
	if len(m.logs) > 0 {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderLink(s control.State) string {
	if s.Connected {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render("● connected")
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Render("○ simulation")
}

func renderCards(s control.State) string {
	var rows []string
	var row []string
	for i, info := range s.Motors {
		row = append(row, renderCard(info, robot.AxisAt(i)))
		if len(row) == cardsPerRow {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderCard(info robot.MotorInfo, a robot.Axis) string {
	color := lipgloss.Color(motorColors[a.Name])
	title := lipgloss.NewStyle().Bold(true).Foreground(color).
		Render(fmt.Sprintf("M%d %s", info.Index+1, info.Name))

	barWidth := cardWidth - 4
	filled := int(a.Progress(info.Current)*float64(barWidth) + 0.5)
	bar := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled)) +
		statusStyle.Render(strings.Repeat("░", barWidth-filled))

	torque := "torque on"
	if !info.TorqueEnabled {
		torque = "torque off"
	}
	state := lipgloss.NewStyle().Foreground(lipgloss.Color(stateColors[info.State])).Render(info.State.String())

	lines := []string{
		title,
		bar,
		fmt.Sprintf("%6.1f → %d", info.Current, info.Target),
		statusStyle.Render(fmt.Sprintf("%d-%d  %.1f°", info.Min, info.Max, info.Angle)),
		state + "  " + statusStyle.Render(torque),
	}
	return cardStyle.Render(strings.Join(lines, "\n"))
}

func renderLegend() string {
	var items []string
	for _, name := range robot.AllMotors() {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(motorColors[name])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+string(name))
	}
	return strings.Join(items, "  ")
}

// applyFlags overrides config values with the flags that were set.
func (c *DriveCommand) applyFlags(cfg *robot.Config) (*robot.Config, error) {
	if c.Port != "" {
		cfg.Port = c.Port
	}
	if c.Driver != "" && c.Driver != cfg.Driver {
		cfg.Driver = c.Driver
		cfg.BaudRate = 0 // driver default unless --baud is set
	}
	if c.Baud > 0 {
		cfg.BaudRate = c.Baud
	}
	if c.Hz > 0 {
		cfg.Hz = c.Hz
	}
	if c.Step > 0 {
		cfg.Step = c.Step
	}
	if c.Presets != "" {
		cfg.PresetFile = c.Presets
	}
	return cfg.Normalize()
}

// openTelemetry builds the configured sinks behind a gate. It returns nil
// when no sink is configured.
func openTelemetry(cfg robot.TelemetryConfig, interval time.Duration) (*telemetry.Gate, error) {
	var sinks telemetry.Multi
	if cfg.CSV != "" {
		c, err := telemetry.OpenCSV(cfg.CSV)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, c)
	}
	if cfg.MQTTBroker != "" {
		m, err := telemetry.DialMQTT(cfg.MQTTBroker, cfg.MQTTTopic)
		if err != nil {
			sinks.Close()
			return nil, err
		}
		sinks = append(sinks, m)
	}
	if len(sinks) == 0 {
		return nil, nil
	}
	return telemetry.NewGate(sinks, interval), nil
}

func (c *DriveCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg, err = c.applyFlags(cfg)
	if err != nil {
		return err
	}

	var logger *log.Logger
	if c.LogFile != "" {
		f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logger = log.New(f, "", log.LstdFlags)
	}

	ctrlCfg := control.Config{
		Link:       linkOptions(cfg),
		PresetFile: cfg.PresetFile,
		Hz:         cfg.Hz,
		Logger:     logger,
	}
	ctrlCfg.Link.Simulate = c.Sim

	gate, err := openTelemetry(cfg.Telemetry, cfg.TelemetryInterval())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Telemetry disabled: %v\n", err)
	}
	if gate != nil {
		ctrlCfg.Telemetry = gate
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !c.Sim {
		fmt.Printf("Connecting to %s...\n", cfg.Port)
	}
	ctrl, err := control.New(ctx, ctrlCfg)
	if err != nil {
		return fmt.Errorf("create controller: %w", err)
	}
	defer ctrl.Close()

	go func() {
		if err := ctrl.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("Controller error: %v", err)
		}
	}()

	p := tea.NewProgram(initialDriveModel(ctrl, cfg.Step), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run TUI: %w", err)
	}
	return nil
}
