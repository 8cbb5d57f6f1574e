package main

import "safe-core/cmd/safe-cli/cmd"

func main() {
	cmd.Execute()
}
