package main

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/motorbus/pkg/bus"
	"github.com/gwillem/motorbus/pkg/feetech"
)

type ScanCommand struct {
	Port string `long:"port" default:"sim" description:"Serial port to scan"`
}

func (c *ScanCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("Scanning " + c.Port))
	fmt.Println()

	transport, err := openTransport(c.Port, false)
	if err != nil {
		return err
	}

	found, err := bus.ScanPort(transport, feetech.Family)
	if err != nil {
		return fmt.Errorf("scan %s: %w", c.Port, err)
	}

	if len(found) == 0 {
		fmt.Println("No motors found at any baud rate.")
		return nil
	}

	bauds := make([]int, 0, len(found))
	for baud := range found {
		bauds = append(bauds, baud)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(bauds)))

	rows := [][]string{}
	for _, baud := range bauds {
		ids := make([]int, 0, len(found[baud]))
		for id := range found[baud] {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		for _, id := range ids {
			rows = append(rows, []string{
				fmt.Sprintf("%d", baud),
				fmt.Sprintf("%d", id),
				fmt.Sprintf("%d", found[baud][id]),
			})
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Baud rate", "ID", "Model number").
		Rows(rows...)
	fmt.Println(t.Render())
	return nil
}
