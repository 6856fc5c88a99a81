package main

import (
	"os"
	"runtime/debug"

	"github.com/mezonai/mmn-recovery/cmd"
	"github.com/mezonai/mmn-recovery/logx"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			_ = logx.Errorf("RECOVERY CRASHED: %v\n%s", r, debug.Stack())
			os.Exit(1)
		}
	}()

	cmd.Execute()
}
