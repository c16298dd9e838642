package main

import (
	"os"

	"github.com/nafiskhan/profilechat/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
