package main

import (
	"os"

	"github.com/JorritSalverda/jarvis-homewizard-exporter/exporter/cmd/exporter/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
