package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "List devices whose advertised name contains query",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := ""
	if len(args) == 1 {
		query = args[0]
	}

	client := newClient()
	hits := client.SearchByName(query)
	if len(hits) == 0 {
		fmt.Println("no devices found")
		return nil
	}

	for _, dev := range hits {
		fmt.Printf("%s  %s\n", dev.Address, dev.Name)
	}
	return nil
}
