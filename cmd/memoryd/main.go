// Command memoryd is the CLI front-end for the semantic memory daemon:
// it can run the daemon itself or act as a thin client over the daemon's
// socket.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/yantra-mind/memoryd/core/apperr"
)

// Exit codes.
const (
	exitOK      = 0
	exitMisuse  = 1
	exitStore   = 2
	exitNetwork = 3
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		switch ae.Kind {
		case apperr.KindTransport:
			return exitNetwork
		case apperr.KindValidation, apperr.KindNotFound:
			return exitMisuse
		default:
			return exitStore
		}
	}
	return exitMisuse
}
