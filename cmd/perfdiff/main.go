package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/dil-najha/Performance-Insights-sub001/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, cli.ErrRegression) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
