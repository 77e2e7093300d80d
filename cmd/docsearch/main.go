// Command docsearch is the operator CLI: it runs normalization, answers
// Boolean and vector queries against the frequency store, and clears the
// results directory.
package main

import (
	"os"

	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/cmd/docsearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
