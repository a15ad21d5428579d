package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Config string `short:"c" long:"config" default:"manipulator.json" description:"Configuration file"`

	Drive   DriveCommand   `command:"drive" alias:"run" description:"Drive the arm from the keyboard"`
	Setup   SetupCommand   `command:"setup" description:"Choose port and driver and save the configuration"`
	Ports   PortsCommand   `command:"ports" description:"List serial ports"`
	Presets PresetsCommand `command:"presets" subcommands-optional:"true" description:"List, add or remove presets"`
	Send    SendCommand    `command:"send" description:"Send a single position or torque command"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "Manipulator - keyboard control for a six axis arm"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
