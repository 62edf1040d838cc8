package main

import "viralcut/internal/cli"

func main() {
	cli.Main()
}
