package main

import (
	"os"

	"github.com/bianoble/composer-patches/cmd/composer-patches/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
