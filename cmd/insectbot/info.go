package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/insectbot/pkg/robot"
	"github.com/gwillem/insectbot/pkg/sensing"
)

type InfoCommand struct {
	Samples int `long:"samples" default:"5" description:"Raw samples to read per sensor"`
}

var (
	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableNameStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Padding(0, 1)
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if col == 0 {
				return tableNameStyle
			}
			return tableCellStyle
		})
}

func (c *InfoCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Println(headerStyle.Render("InsectBot Info"))
	fmt.Println(dimStyle.Render(opts.Config))
	fmt.Println()

	fmt.Printf("Mode: %s\n", cfg.Mode)
	fmt.Printf("Servo bus: %s\n", portOrNone(cfg.Servos.Port))
	fmt.Printf("Sensor board: %s @ %d baud\n\n", portOrNone(cfg.Sensors.Port), cfg.Sensors.BaudRate)

	angles := map[robot.Channel]int{}
	angleErr := fmt.Errorf("not connected")
	if cfg.Servos.Port != "" && cfg.Servos.IsCalibrated() {
		angles, angleErr = readAngles(cfg)
	}

	servos := newTable("Joint", "ID", "Drive", "Min", "Max", "Angle")
	for _, ch := range robot.AllChannels() {
		cc := cfg.Servos.Calibration[ch]
		angle := "-"
		if a, ok := angles[ch]; ok {
			angle = fmt.Sprintf("%d°", a)
		}
		servos.Row(string(ch), strconv.Itoa(cc.ID), strconv.Itoa(cc.DriveMode),
			strconv.Itoa(cc.RangeMin), strconv.Itoa(cc.RangeMax), angle)
	}
	fmt.Println(servos.Render())
	if angleErr != nil {
		fmt.Println(errorStyle.Render("angles: " + angleErr.Error()))
	}
	fmt.Println()

	var board *robot.SensorBoard
	if cfg.Sensors.Port != "" {
		board, err = robot.OpenSensorBoard(cfg.Sensors.Port, cfg.Sensors.BaudRate)
		if err != nil {
			fmt.Println(errorStyle.Render("sensors: " + err.Error()))
		} else {
			defer board.Close()
		}
	}

	sensors := newTable("Sensor", "Input", "Raw", "Average")
	for _, s := range []struct {
		name string
		ch   robot.SensorChannel
	}{
		{"distance", cfg.Sensors.Channels.Distance},
		{"light left", cfg.Sensors.Channels.LightLeft},
		{"light right", cfg.Sensors.Channels.LightRight},
	} {
		raw, avg := "-", "-"
		if board != nil {
			samples, sum, err := sample(board, s.ch, c.Samples)
			switch {
			case err != nil:
				raw = errorStyle.Render(err.Error())
			case len(samples) > 0:
				raw = fmt.Sprint(samples)
				avg = strconv.Itoa(sum / len(samples))
				if s.ch == cfg.Sensors.Channels.Distance {
					avg += fmt.Sprintf(" (%d cm)", sensing.Centimeters(sum/len(samples)))
				}
			}
		}
		sensors.Row(s.name, s.ch.String(), raw, avg)
	}
	fmt.Println(sensors.Render())

	return nil
}

func readAngles(cfg *robot.Config) (map[robot.Channel]int, error) {
	legs, err := robot.NewLegs(cfg.Servos.Port, cfg.Servos.Calibration)
	if err != nil {
		return nil, err
	}
	defer legs.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return legs.ReadAngles(ctx)
}

func sample(board *robot.SensorBoard, ch robot.SensorChannel, n int) ([]int, int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var (
		samples []int
		sum     int
	)
	for range n {
		v, err := board.ReadRaw(ctx, ch)
		if err != nil {
			return samples, sum, err
		}
		samples = append(samples, v)
		sum += v
	}
	return samples, sum, nil
}

func portOrNone(port string) string {
	if port == "" {
		return "(not configured)"
	}
	return port
}
