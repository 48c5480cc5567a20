package main

import "github.com/forPelevin/speechcut/internal/cli"

func main() {
	cli.Main()
}
