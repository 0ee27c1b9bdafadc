// Command server runs the Conduit API and its maintenance commands.
package main

import (
	"os"

	"github.com/sakif/conduit/cmd/server/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
