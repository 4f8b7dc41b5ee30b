package main

import "vizninja/internal/cli"

func main() {
	cli.Execute()
}
