package main

import (
	"github.com/modpack-run/modsync/cmd"
	"github.com/modpack-run/modsync/cmd/util"
)

func main() {
	defer util.HandlePanic()
	cmd.Execute()
}
