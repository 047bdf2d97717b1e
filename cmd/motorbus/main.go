package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Ports       PortsCommand       `command:"ports" description:"List serial ports on this machine"`
	Scan        ScanCommand        `command:"scan" description:"Scan a port for motors at every baud rate"`
	Calibrate   CalibrateCommand   `command:"calibrate" description:"Home an arm and record its ranges of motion"`
	Monitor     MonitorCommand     `command:"monitor" description:"Live chart of joint positions"`
	Teleoperate TeleoperateCommand `command:"teleoperate" alias:"teleop" description:"Mirror a leader arm onto a follower arm"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "motorbus - serial servo bus toolkit for daisy-chained motors"

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
