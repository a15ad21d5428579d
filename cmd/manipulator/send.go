package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/gwillem/manipulator/pkg/link"
	"github.com/gwillem/manipulator/pkg/robot"
)

type SendCommand struct {
	Position string `long:"position" value-name:"V1,...,V6" description:"Six target positions"`
	Torque   string `long:"torque" value-name:"B1,...,B6" description:"Six torque flags (0 or 1)"`
	Port     string `long:"port" description:"Serial port (overrides config)"`
}

// message builds the command from the flags, validating positions against
// the axis ranges.
func (c *SendCommand) message() (link.Message, error) {
	switch {
	case c.Position != "" && c.Torque != "":
		return link.Message{}, errors.New("use either --position or --torque, not both")
	case c.Position != "":
		msg, err := link.Parse("Control:" + strings.ReplaceAll(c.Position, " ", "") + "*")
		if err != nil {
			return link.Message{}, err
		}
		if err := robot.ValidateVector(msg.Positions); err != nil {
			return link.Message{}, err
		}
		return msg, nil
	case c.Torque != "":
		return link.Parse("Torque:" + strings.ReplaceAll(c.Torque, " ", "") + "*")
	default:
		return link.Message{}, errors.New("one of --position or --torque is required")
	}
}

func (c *SendCommand) Execute(args []string) error {
	msg, err := c.message()
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if c.Port != "" {
		cfg.Port = c.Port
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	lo := linkOptions(cfg)
	lo.Logf = log.Printf
	ch := link.Connect(ctx, lo)
	defer ch.Close()

	if !ch.Connected() {
		return fmt.Errorf("not sent, %s unavailable: %w", cfg.Port, ch.OpenErr())
	}

	reply, err := ch.Send(ctx, msg)
	if err != nil {
		return err
	}
	fmt.Printf("Sent %s\n", msg)
	if reply != "" {
		fmt.Printf("Board response: %s\n", reply)
	}
	return nil
}
