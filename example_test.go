// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package cascade_test

import (
	"context"
	"fmt"
	"os"

	"github.com/z5labs/cascade"
	"github.com/z5labs/cascade/config"
	"github.com/z5labs/cascade/filesystem"

	"github.com/spf13/afero"
)

type greeterConfig struct {
	Greeting string   `config:"greeting"`
	Names    []string `config:"names"`
}

func Example() {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/system/config/greeter.yaml", []byte("greeting: Hello\nnames: [Alice]\n"), 0o644)
	afero.WriteFile(fs, "/app/config/greeter.yaml", []byte("greeting: Hi\nnames: [Bob]\n"), 0o644)

	layers := filesystem.New(filesystem.FS(fs), filesystem.Layers("/app", "/system"))

	repo := config.NewRepository()
	repo.Attach(config.NewFileReader(layers))

	builder := cascade.AppBuilderFunc[greeterConfig](func(ctx context.Context, cfg greeterConfig) (cascade.App, error) {
		app := cascade.AppFunc(func(ctx context.Context) error {
			for _, name := range cfg.Names {
				fmt.Printf("%s, %s\n", cfg.Greeting, name)
			}
			return nil
		})
		return cascade.Recover(cascade.WithSignalNotifications(app, os.Interrupt)), nil
	})

	err := cascade.Run(context.Background(), builder, repo, "greeter")
	if err != nil {
		fmt.Println(err)
		return
	}

	// Output:
	// Hi, Alice
	// Hi, Bob
}
