package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/gwillem/manipulator/pkg/link"
	"github.com/gwillem/manipulator/pkg/robot"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// configPath returns the file named by --config.
func configPath() string {
	if opts.Config == "" {
		return robot.DefaultConfigFile
	}
	return opts.Config
}

// loadConfig reads the file named by --config, falling back to defaults.
func loadConfig() (*robot.Config, error) {
	cfg, err := robot.LoadConfigFrom(configPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func linkOptions(cfg *robot.Config) link.Options {
	return link.Options{
		Port:        cfg.Port,
		BaudRate:    cfg.BaudRate,
		Driver:      cfg.Driver,
		Timeout:     cfg.SendTimeout(),
		SettleDelay: cfg.SettleDelay(),
		Servos:      cfg.Servos,
	}
}

type SetupCommand struct{}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("Manipulator Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━"))
	fmt.Println()

	path := configPath()
	if robot.ConfigExists(path) {
		fmt.Println(dimStyle.Render("Updating existing configuration " + path))
		fmt.Println()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ports, err := link.ListPorts()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing ports: %v\n", err)
	}

	port := cfg.Port
	var portField huh.Field
	if len(ports) > 0 {
		options := make([]huh.Option[string], 0, len(ports))
		for _, p := range ports {
			options = append(options, huh.NewOption(p, p))
		}
		portField = huh.NewSelect[string]().
			Title("Serial port").
			Description("The port the motor board is connected to").
			Options(options...).
			Value(&port)
	} else {
		fmt.Println("No serial ports found, enter the path by hand.")
		portField = huh.NewInput().
			Title("Serial port").
			Value(&port)
	}

	driver := cfg.Driver
	baud := strconv.Itoa(cfg.BaudRate)
	step := strconv.Itoa(cfg.Step)

	form := huh.NewForm(
		huh.NewGroup(
			portField,
			huh.NewSelect[string]().
				Title("Driver").
				Options(
					huh.NewOption("Text protocol (Control:/Torque:)", robot.DriverSerial),
					huh.NewOption("Feetech STS servo bus", robot.DriverFeetech),
				).
				Value(&driver),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Baud rate").
				Value(&baud).
				Validate(positiveInt),
			huh.NewInput().
				Title("Step per key press").
				Value(&step).
				Validate(positiveInt),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		return err
	}

	cfg.Port = port
	cfg.Driver = driver
	cfg.BaudRate, _ = strconv.Atoi(baud)
	cfg.Step, _ = strconv.Atoi(step)

	cfg, err = cfg.Normalize()
	if err != nil {
		return err
	}
	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Println()
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", path)
	fmt.Println("Start driving with: " + headerStyle.Render("manipulator drive"))
	return nil
}

func positiveInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return errors.New("must be a positive number")
	}
	return nil
}

type PortsCommand struct{}

func (c *PortsCommand) Execute(args []string) error {
	ports, err := link.ListPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found.")
		return nil
	}
	for _, p := range ports {
		fmt.Println(p)
	}
	return nil
}
