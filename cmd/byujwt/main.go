// Command byujwt inspects and verifies BYU API gateway JWTs and can run a
// small authenticated echo server.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
