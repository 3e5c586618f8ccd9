package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/gwillem/insectbot/pkg/robot"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Servo IDs of the three joints.
const (
	minServoID = 1
	maxServoID = 3
)

type SetupCommand struct{}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("InsectBot Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━"))
	fmt.Println()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Println("Scanning serial ports...")
	fmt.Println()
	legs, sensorPort := scanPorts(cfg.Sensors.BaudRate)

	if legs == nil {
		fmt.Println("No servo bus with three servos (IDs 1-3) found.")
		fmt.Println("Make sure the robot is connected and powered on.")
		os.Exit(1)
	}
	if sensorPort == "" {
		fmt.Println("No sensor board found.")
		fmt.Println("Make sure the board is flashed and connected.")
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Identifying Joints ━━━"))
	fmt.Println()
	cal := identifyJoints(legs)

	cfg.Servos = robot.ServoConfig{Port: legs.port, Calibration: cal}
	cfg.Sensors.Port = sensorPort
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.SaveTo(opts.Config); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("  Servos:  %s\n", legs.port)
	fmt.Printf("  Sensors: %s\n", sensorPort)
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Start driving with: " + headerStyle.Render("insectbot teleoperate"))

	return nil
}

type busInfo struct {
	port   string
	servos []feetech.FoundServo
	bus    *feetech.Bus
}

// scanPorts returns the first port carrying the joint servos and the first
// port answering the sensor board ping.
func scanPorts(baudRate int) (*busInfo, string) {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		return nil, ""
	}

	var (
		legs       *busInfo
		sensorPort string
	)
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}

		if legs == nil {
			if info := scanServos(port); info != nil {
				fmt.Printf("  Found servo bus on %s\n", port)
				legs = info
				continue
			}
		}
		if sensorPort == "" && detectSensorBoard(port, baudRate) {
			fmt.Printf("  Found sensor board on %s\n", port)
			sensorPort = port
		}
	}
	return legs, sensorPort
}

func scanServos(port string) *busInfo {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: robot.BusBaudRate,
		Protocol: feetech.ProtocolSTS,
		Timeout:  robot.BusTimeout,
	})
	if err != nil {
		return nil
	}

	servos, err := bus.Scan(ctx, minServoID, maxServoID)
	if err != nil || !isInsect(servos) {
		bus.Close()
		return nil
	}
	return &busInfo{port: port, servos: servos, bus: bus}
}

func isInsect(servos []feetech.FoundServo) bool {
	if len(servos) != maxServoID-minServoID+1 {
		return false
	}

	ids := make(map[int]bool)
	for _, s := range servos {
		ids[s.ID] = true
	}
	for i := minServoID; i <= maxServoID; i++ {
		if !ids[i] {
			return false
		}
	}
	return true
}

func detectSensorBoard(port string, baudRate int) bool {
	board, err := robot.OpenSensorBoard(port, baudRate)
	if err != nil {
		return false
	}
	defer board.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return board.Ping(ctx) == nil
}

// identifyJoints wiggles every servo and asks which joint moved. Unanswered
// joints keep their default IDs.
func identifyJoints(info *busInfo) robot.Calibration {
	defer info.bus.Close()

	cal := robot.DefaultCalibration()
	remaining := robot.AllChannels()

	for _, s := range info.servos {
		if len(remaining) == 0 {
			break
		}
		servo := feetech.NewServo(info.bus, s.ID, s.Model)
		wiggle(servo, s.ID)

		ch, reversed := askJoint(s.ID, remaining)
		if ch == "" {
			continue
		}
		cc := cal[ch]
		cc.ID = s.ID
		cc.DriveMode = 0
		if reversed {
			cc.DriveMode = 1
		}
		cal[ch] = cc
		remaining = without(remaining, ch)
	}

	// Give unassigned joints whatever IDs are left.
	used := make(map[int]bool)
	for _, ch := range robot.AllChannels() {
		if !slices.Contains(remaining, ch) {
			used[cal[ch].ID] = true
		}
	}
	for _, ch := range remaining {
		for id := minServoID; id <= maxServoID; id++ {
			if !used[id] {
				cc := cal[ch]
				cc.ID = id
				cal[ch] = cc
				used[id] = true
				break
			}
		}
	}
	return cal
}

func wiggle(servo *feetech.Servo, id int) {
	ctx := context.Background()

	originalPos, err := servo.Position(ctx)
	if err != nil {
		fmt.Printf("  Error reading servo %d: %v\n", id, err)
		return
	}
	if err := servo.Enable(ctx); err != nil {
		fmt.Printf("  Error enabling servo %d: %v\n", id, err)
		return
	}

	fmt.Printf("\n  Wiggling servo %d...\n", id)

	// Single gentle, slow movement
	wiggleAmount := 100
	moveTimeMs := 500
	servo.SetPositionWithTime(ctx, originalPos+wiggleAmount, moveTimeMs)
	time.Sleep(time.Duration(moveTimeMs+100) * time.Millisecond)
	servo.SetPositionWithTime(ctx, originalPos-wiggleAmount, moveTimeMs)
	time.Sleep(time.Duration(moveTimeMs+100) * time.Millisecond)
	servo.SetPositionWithTime(ctx, originalPos, moveTimeMs)
	time.Sleep(time.Duration(moveTimeMs+100) * time.Millisecond)

	servo.Disable(ctx)
}

func askJoint(id int, remaining []robot.Channel) (robot.Channel, bool) {
	descriptions := map[robot.Channel]string{
		robot.Front:  "Front legs (swing forward and back)",
		robot.Middle: "Middle joint (bends the body, lifts a side)",
		robot.Rear:   "Rear legs (swing forward and back)",
	}

	var options []huh.Option[string]
	for _, ch := range remaining {
		options = append(options, huh.NewOption(descriptions[ch], string(ch)))
	}
	options = append(options, huh.NewOption("Skip this servo", "skip"))

	var (
		joint    string
		reversed bool
	)
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(fmt.Sprintf("Which joint is servo %d?", id)).
				Description("The joint that just wiggled").
				Options(options...).
				Value(&joint),
			huh.NewConfirm().
				Title("Is it mounted reversed?").
				Description("Reversed servos have their angles mirrored").
				Affirmative("Yes").
				Negative("No").
				Value(&reversed),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}

	if joint == "skip" {
		return "", false
	}
	ch, err := robot.ParseChannel(joint)
	if err != nil {
		return "", false
	}
	return ch, reversed
}

func without(chs []robot.Channel, drop robot.Channel) []robot.Channel {
	var out []robot.Channel
	for _, ch := range chs {
		if ch != drop {
			out = append(out, ch)
		}
	}
	return out
}
