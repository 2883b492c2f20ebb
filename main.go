package main

import "github.com/agentic-research/tap-neon/cmd"

func main() {
	cmd.Execute()
}
