package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var nameCmd = &cobra.Command{
	Use:   "name <address>",
	Short: "Read a light's advertised name",
	Args:  cobra.ExactArgs(1),
	RunE:  runName,
}

func runName(cmd *cobra.Command, args []string) error {
	addr, err := parseAddressArg(args[0])
	if err != nil {
		return err
	}

	client := newClient()
	name, err := client.GetName(addr)
	if err != nil {
		return err
	}
	fmt.Println(name)

	store := newStorage()
	dev, _ := store.Get(addr)
	dev.Name = name
	store.Set(addr, dev)
	_ = store.Flush()

	return nil
}
