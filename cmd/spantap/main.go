package main

import "github.com/spantap/spantap/internal/cli"

func main() {
	cli.Execute()
}
