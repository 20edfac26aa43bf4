package main

import "freeturn/cmd/cli/cmd"

func main() {
	cmd.Execute()
}
