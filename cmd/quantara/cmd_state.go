package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/QEbellavita/QuantaraEI-sub001/internal/snapshot"
	"github.com/QEbellavita/QuantaraEI-sub001/internal/state"
)

var errNoSnapshot = errors.New("no snapshot file: set snapshot.path or pass --file")

func (c *cli) getCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Print the value at a dot path of the snapshot",
		Example: `  quantara get user.name
  quantara get session --file state.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := c.openStore(cmd, file)
			if err != nil {
				return err
			}
			v, ok := store.Get(args[0])
			if !ok {
				return fmt.Errorf("%s: %w", args[0], state.ErrPathNotFound)
			}
			out, err := yaml.Marshal(v)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	addFileFlag(cmd, &file)
	return cmd
}

func (c *cli) setCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "set <path> <value>",
		Short: "Write a YAML value at a dot path of the snapshot",
		Long: `Parses value as YAML, so 42 is a number, true a boolean and
"{a: 1}" a mapping, and writes it at path, creating intermediate
mappings as needed.`,
		Example: `  quantara set user.name Ada
  quantara set sensors.enabled true
  quantara set ui.layout '{columns: 2, dense: false}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, store, err := c.openStore(cmd, file)
			if err != nil {
				return err
			}

			var value any
			if err := yaml.Unmarshal([]byte(args[1]), &value); err != nil {
				return fmt.Errorf("parse value: %w", err)
			}
			store.SetContext(contextOf(cmd), args[0], value)
			return f.Write(store.Snapshot())
		},
	}
	addFileFlag(cmd, &file)
	return cmd
}

func (c *cli) queryCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "query <expr>",
		Short: "Evaluate a gjson expression over the snapshot",
		Example: `  quantara query user.name
  quantara query 'notifications.#(kind=="error")#.message'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := c.openStore(cmd, file)
			if err != nil {
				return err
			}
			res, err := store.Query(args[0])
			if err != nil {
				return err
			}
			if !res.Exists() {
				return fmt.Errorf("%s: %w", args[0], state.ErrPathNotFound)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), res.Raw)
			return err
		},
	}
	addFileFlag(cmd, &file)
	return cmd
}

func addFileFlag(cmd *cobra.Command, file *string) {
	cmd.Flags().StringVarP(file, "file", "f", "", "snapshot file (defaults to snapshot.path)")
}

// openStore loads the snapshot file into a private store. A missing file
// yields an empty store.
func (c *cli) openStore(cmd *cobra.Command, path string) (*snapshot.File, *state.Store, error) {
	if path == "" {
		path = c.cfg.Snapshot.Path
	}
	if path == "" {
		return nil, nil, errNoSnapshot
	}

	f, err := snapshot.NewFile(path)
	if err != nil {
		return nil, nil, err
	}
	store := state.NewStore(nil, state.WithLogger(c.logger))

	tree, err := f.Read()
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, nil, err
	default:
		store.Load(contextOf(cmd), tree)
	}
	return f, store, nil
}
