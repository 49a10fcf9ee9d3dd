package main

import (
	"smart-audio/cmd/sas/cmd"
)

func main() {
	cmd.Execute()
}
