// Command glide runs the smooth-scroll engine against a scripted in-memory
// page or a live Chromium tab.
package main

import (
	"fmt"
	"os"

	"github.com/phanxgames/glide/internal/observability"
	"go.uber.org/zap"
)

func main() {
	defer observability.Sync()
	if err := newRootCmd().Execute(); err != nil {
		observability.GetLogger().Error("Command failed.", zap.Error(err))
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
