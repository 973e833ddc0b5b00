// Command kbsync synchronizes a knowledge base across a content store
// and a vector store.
package main

import (
	"os"

	"github.com/kilupskalvis/kbsync/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
