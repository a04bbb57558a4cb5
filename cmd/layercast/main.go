// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// layercast builds, signs, and publishes Lambda layers across regions.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/layercast/cmd/layercast/commands"
	"github.com/bureau-foundation/layercast/lib/process"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return commands.Root().Execute(ctx, os.Args[1:])
}
