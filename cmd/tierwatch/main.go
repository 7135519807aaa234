package main

import (
	"freetier-alerts/internal/cli"
)

func main() {
	cli.Execute()
}
