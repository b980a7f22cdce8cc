package main

import "mcpbox/cmd/mcpbox/cmd"

func main() {
	cmd.Execute()
}
