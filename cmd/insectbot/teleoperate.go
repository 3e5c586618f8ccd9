package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/insectbot/pkg/gait"
	"github.com/gwillem/insectbot/pkg/robot"
	"github.com/gwillem/insectbot/pkg/sensing"
	"github.com/gwillem/insectbot/pkg/teleop"
)

type TeleoperateCommand struct {
	Hz       int    `long:"hz" default:"5" description:"Control loop frequency"`
	Behavior string `long:"behavior" default:"manual" choice:"manual" choice:"avoid" choice:"seek-light" description:"Behavior to start with"`
	Run      bool   `long:"run" description:"Start in run mode instead of the configured mode"`
	Sim      bool   `long:"sim" description:"Drive in-memory servos and sensors instead of the hardware"`
}

const (
	headerHeight = 2 // title + blank line
	legendHeight = 2 // legend row + blank
	statusHeight = 2 // sensor row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

// Joint colors
var jointColors = map[robot.Channel]string{
	robot.Front:  "196", // red
	robot.Middle: "226", // yellow
	robot.Rear:   "51",  // cyan
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	dangerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

var keyCommands = map[string]teleop.Command{
	"up":    teleop.Forward,
	"w":     teleop.Forward,
	"down":  teleop.Backward,
	"s":     teleop.Backward,
	"left":  teleop.Left,
	"a":     teleop.Left,
	"right": teleop.Right,
	"d":     teleop.Right,
	" ":     teleop.Stop,
	"space": teleop.Stop,
}

var keyBehaviors = map[string]teleop.Behavior{
	"1": teleop.Manual,
	"2": teleop.Avoid,
	"3": teleop.SeekLight,
}

type teleopModel struct {
	ctrl     *teleop.Controller
	chart    *streamlinechart.Model
	width    int      // terminal width
	height   int      // terminal height
	logs     []string // last N log messages
	quitting bool
	sim      bool
	state    teleop.State
	lastPose *gait.Pose // previous pose to detect movement
}

func (m *teleopModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// Messages from the controller
type stateMsg teleop.State
type logMsg string

func waitForState(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *teleopModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - legendHeight - statusHeight - footerHeight - borderSize
	if height < 10 {
		height = 10
	}
	return width, height
}

func (m *teleopModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func initialTeleopModel(ctrl *teleop.Controller, cfg gait.Config, sim bool) teleopModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(float64(cfg.MovingMin-10), float64(cfg.MovingMax+10)),
	)

	for _, ch := range robot.AllChannels() {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(jointColors[ch]))
		chart.SetDataSetStyles(string(ch), runes.ThinLineStyle, style)
	}

	return teleopModel{
		ctrl:  ctrl,
		chart: &chart,
		sim:   sim,
	}
}

func (m teleopModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.ctrl),
		waitForLog(m.ctrl),
	)
}

func (m teleopModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "m":
			if m.state.Mode == robot.ModeRun {
				m.ctrl.Send(teleop.Walk)
			} else {
				m.ctrl.Send(teleop.Run)
			}
			return m, nil
		}
		if cmd, ok := keyCommands[key]; ok {
			m.ctrl.Send(cmd)
		} else if b, ok := keyBehaviors[key]; ok {
			m.ctrl.SetBehavior(b)
		}
		return m, nil

	case stateMsg:
		state := teleop.State(msg)
		m.state = state
		// Only update chart if there's movement (freeze when idle)
		if m.lastPose == nil || *m.lastPose != state.Pose {
			for _, ch := range robot.AllChannels() {
				m.chart.PushDataSet(string(ch), float64(state.Pose.Angle(ch)))
			}
			m.chart.DrawAll()
			pose := state.Pose
			m.lastPose = &pose
		}
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)
	}

	return m, nil
}

func (m teleopModel) View() string {
	if m.quitting {
		return "Teleoperation stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("InsectBot Teleoperate"))
	sb.WriteString(fmt.Sprintf(" - %d Hz - %s - %s", m.ctrl.Hz(), m.ctrl.Behavior(), m.state.Mode))
	if m.sim {
		sb.WriteString(statusStyle.Render("  [sim]"))
	}
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	sb.WriteString(renderLegend())
	sb.WriteString("\n")
	sb.WriteString(m.renderSensors())
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.width - 4).
		Foreground(lipgloss.Color("9")) // bright red

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("arrows/wasd move, space stops, 1/2/3 manual/avoid/seek-light, m walk/run, q quits")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func (m teleopModel) renderSensors() string {
	s := m.state
	distance := fmt.Sprintf("distance %d cm", s.Distance)
	if s.Distance < sensing.DangerDistance {
		distance = dangerStyle.Render(distance)
	}
	return fmt.Sprintf("%s  light L %d R %d  action %s  %s",
		distance, s.Left, s.Right, s.Action, statusStyle.Render(s.Pose.String()))
}

func renderLegend() string {
	var items []string
	for _, ch := range robot.AllChannels() {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(jointColors[ch])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+string(ch))
	}
	return strings.Join(items, "  ")
}

func (c *TeleoperateCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load %s: %w", opts.Config, err)
	}

	behavior, err := teleop.ParseBehavior(c.Behavior)
	if err != nil {
		return err
	}

	bot, closeBot, err := openBot(cfg, c.Sim)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer closeBot()

	fmt.Println("Centering joints...")
	if c.Run || cfg.Mode == robot.ModeRun {
		err = bot.RunMode()
	} else {
		err = bot.WalkMode()
	}
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}

	ctrl := teleop.NewController(bot, teleop.Config{
		Hz:       c.Hz,
		Behavior: behavior,
	})

	// The TUI owns the terminal; route log lines into its log box.
	logrus.SetOutput(io.Discard)
	logrus.AddHook(ctrl.LogHook())
	defer logrus.SetOutput(os.Stderr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- ctrl.Start(ctx)
	}()

	p := tea.NewProgram(initialTeleopModel(ctrl, gait.DefaultConfig(), c.Sim), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run program: %w", err)
	}

	cancel()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("controller: %w", err)
	}
	return nil
}
