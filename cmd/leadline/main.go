package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/felixgeelhaar/leadline/internal/infrastructure/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var cliErr *cli.CLIError
		if errors.As(err, &cliErr) && cliErr.Hint != "" {
			fmt.Fprintln(os.Stderr, "Hint:", cliErr.Hint)
		}
		os.Exit(1)
	}
}
