package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/manipulator/pkg/robot"
)

type PresetsCommand struct {
	File string `long:"file" description:"Preset file (defaults to the configured one)"`

	Add PresetsAddCommand `command:"add" description:"Add or overwrite a preset"`
	Rm  PresetsRmCommand  `command:"rm" description:"Remove a preset"`
}

func (c *PresetsCommand) load() (*robot.Presets, error) {
	path := c.File
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		path = cfg.PresetFile
	}
	return robot.LoadPresets(path)
}

// Execute lists the presets when no subcommand is given.
func (c *PresetsCommand) Execute(args []string) error {
	presets, err := c.load()
	if err != nil {
		return err
	}
	fmt.Println(renderPresetTable(presets.All()))
	fmt.Println(dimStyle.Render(presets.Path()))
	return nil
}

func renderPresetTable(all []robot.Preset) string {
	headerCell := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	keyCell := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	nameCell := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	headers := []string{"Key", "Name"}
	for _, name := range robot.AllMotors() {
		headers = append(headers, string(name))
	}

	rows := make([][]string, 0, len(all))
	for i, p := range all {
		key := ""
		if i < 9 {
			key = strconv.Itoa(i + 1)
		}
		row := []string{key, p.Name}
		for _, v := range p.Vector {
			row = append(row, strconv.Itoa(v))
		}
		rows = append(rows, row)
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerCell
			}
			switch col {
			case 0:
				return keyCell
			case 1:
				return nameCell
			default:
				return cell
			}
		}).
		Render()
}

type PresetsAddCommand struct {
	Args struct {
		Name string `positional-arg-name:"NAME"`
	} `positional-args:"yes"`
}

func (c *PresetsAddCommand) Execute(args []string) error {
	presets, err := opts.Presets.load()
	if err != nil {
		return err
	}

	name := c.Args.Name
	values := make([]string, robot.NumAxes)
	start := robot.Defaults()
	if v, ok := presets.Get(name); ok {
		start = v
	}
	for i := range values {
		values[i] = strconv.Itoa(start[i])
	}

	fields := []huh.Field{
		huh.NewInput().
			Title("Name").
			Value(&name).
			Validate(func(s string) error {
				if s == "" {
					return errors.New("name is required")
				}
				return nil
			}),
	}
	for i, a := range robot.AllAxes() {
		fields = append(fields, huh.NewInput().
			Title(fmt.Sprintf("M%d %s", i+1, a.Name)).
			Description(fmt.Sprintf("%d to %d", a.Min, a.Max)).
			Value(&values[i]).
			Validate(axisValidator(a)))
	}

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		return err
	}

	var v robot.Vector
	for i, s := range values {
		v[i], _ = strconv.Atoi(s)
	}
	if err := presets.Save(name, v); err != nil {
		return err
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("Preset %s saved to %s", name, presets.Path())))
	return nil
}

func axisValidator(a robot.Axis) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(s)
		if err != nil {
			return errors.New("must be a whole number")
		}
		if !a.InRange(n) {
			return fmt.Errorf("must be between %d and %d", a.Min, a.Max)
		}
		return nil
	}
}

type PresetsRmCommand struct {
	Args struct {
		Name string `positional-arg-name:"NAME" required:"yes"`
	} `positional-args:"yes" required:"yes"`
}

func (c *PresetsRmCommand) Execute(args []string) error {
	presets, err := opts.Presets.load()
	if err != nil {
		return err
	}
	if err := presets.Delete(c.Args.Name); err != nil {
		return err
	}
	fmt.Printf("Preset %s removed\n", c.Args.Name)
	return nil
}
