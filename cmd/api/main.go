package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCommand = &cobra.Command{
	Use:          "ticketing",
	Short:        "Run the ticketing web application",
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCommand.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Connect to the database and serve HTTP (the default)",
		RunE:  runServe,
	})
	rootCommand.AddCommand(migrateCommand)
	rootCommand.AddCommand(createUserCommand)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
