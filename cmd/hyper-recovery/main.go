// Command hyper-recovery is the entry point for the first-boot and
// recovery WiFi configuration daemon and its companion CLI tools.
package main

import (
	"os"

	"github.com/balaclava-guy/hyper-recovery/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
