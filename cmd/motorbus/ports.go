package main

import (
	"fmt"

	"github.com/gwillem/motorbus/pkg/serialport"
)

type PortsCommand struct{}

func (c *PortsCommand) Execute(args []string) error {
	ports, err := serialport.List()
	if err != nil {
		return err
	}

	if len(ports) == 0 {
		fmt.Println("No serial ports found.")
		fmt.Printf("The built-in simulated chain is always available as %q.\n", SimPort)
		return nil
	}

	fmt.Println(headerStyle.Render("Serial ports"))
	for _, port := range ports {
		fmt.Println("  " + port)
	}
	fmt.Println()
	fmt.Println(dimStyle.Render(fmt.Sprintf("Plus the built-in simulated chain: %s", SimPort)))
	return nil
}
