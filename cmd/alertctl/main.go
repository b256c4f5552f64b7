// alertctl is the AlertDesk administration CLI.
package main

import (
	"os"

	"github.com/good-yellow-bee/alertdesk/cmd/alertctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
