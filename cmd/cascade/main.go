// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command cascade resolves resources and config groups across layered
// directories.
//
//	cascade --layer app --layer modules/auth --layer system config get database.primary.host
package main

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/z5labs/cascade"

	"github.com/spf13/afero"
)

func main() {
	app := cascade.AppFunc(func(ctx context.Context) error {
		return execute(ctx, afero.NewOsFs(), os.Stdout, os.Stderr, os.Args[1:]...)
	})

	err := cascade.Recover(cascade.WithSignalNotifications(app, os.Interrupt, syscall.SIGTERM)).Run(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
