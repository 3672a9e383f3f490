package main

import "github.com/canchaya/canchaya/internal/cli"

func main() {
	cli.Execute()
}
