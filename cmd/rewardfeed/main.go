package main

import (
	"rewardfeed/cmd/rewardfeed/commands"
	"rewardfeed/pkg/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
