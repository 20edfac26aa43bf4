package main

import "freeturn/cmd/crm-sync/cmd"

func main() {
	cmd.Execute()
}
