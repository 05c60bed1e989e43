// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"github.com/z5labs/cascade/config"
	"github.com/z5labs/cascade/filesystem"

	"github.com/spf13/cobra"
)

type findFlags struct {
	all   bool
	noExt bool
}

func (f *findFlags) register(cmd *cobra.Command, withExt bool) {
	cmd.Flags().BoolVar(&f.all, "all", false, "return the match of every layer, lowest precedence first")
	if !withExt {
		return
	}
	cmd.Flags().BoolVar(&f.noExt, "no-ext", false, "search for files without an extension")
}

func (f *findFlags) options() []filesystem.FindOption {
	var opts []filesystem.FindOption
	if f.all {
		opts = append(opts, filesystem.All())
	}
	if f.noExt {
		opts = append(opts, filesystem.NoExtension())
	}
	return opts
}

func newFindCommand(e *env) *cobra.Command {
	var ff findFlags
	cmd := &cobra.Command{
		Use:   "find <kind> <name>",
		Short: "Print the paths a resource resolves to",
		Long: "Print the paths a resource resolves to. Only the highest precedence\n" +
			"match is printed unless --all is given or kind is config, i18n or messages.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := e.fs.FindFile(args[0], args[1], ff.options()...)
			return printYaml(cmd, res.Paths())
		},
	}
	ff.register(cmd, true)
	return cmd
}

func newDirCommand(e *env) *cobra.Command {
	var ff findFlags
	cmd := &cobra.Command{
		Use:   "dir <kind>",
		Short: "Print the directories a resource kind resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := e.fs.FindDir(args[0], ff.options()...)
			return printYaml(cmd, res.Paths())
		},
	}
	ff.register(cmd, false)
	return cmd
}

func newLsCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [dir]",
		Short: "List every file below dir across all layers",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			l, err := e.fs.ListFiles(dir)
			if err != nil {
				return err
			}
			return printYaml(cmd, l.Flatten())
		},
	}
}

func newConfigCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and write config groups",
	}

	get := &cobra.Command{
		Use:   "get <group[.path]>",
		Short: "Print a merged config group or a value inside of it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := e.repo.Lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if g, ok := v.(*config.Group); ok {
				v = g.AsMap()
			}
			return printYaml(cmd, v)
		},
	}

	cp := &cobra.Command{
		Use:   "copy <group>",
		Short: "Write the merged config group to its highest precedence file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.repo.Copy(cmd.Context(), args[0])
		},
	}

	cmd.AddCommand(get, cp)
	return cmd
}

func newI18nCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "i18n",
		Short: "Read translation tables",
	}

	get := &cobra.Command{
		Use:   "get <lang> <text>",
		Short: "Print the translation of text",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := e.i18n.Get(cmd.Context(), args[1], args[0])
			if err != nil {
				return err
			}
			return printYaml(cmd, v)
		},
	}

	cmd.AddCommand(get)
	return cmd
}
