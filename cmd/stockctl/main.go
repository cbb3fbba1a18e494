// Package main is the entry point for the stockwatcher CLI tool.
package main

import (
	"os"

	"github.com/JoethonDev/stockwatcher/cmd/stockctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
