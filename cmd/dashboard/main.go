package main

import (
	"os"

	"github.com/STTM-NSU/portfolio-dashboard/cmd/dashboard/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
