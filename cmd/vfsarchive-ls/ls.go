package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func buildLsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <archive> [path]",
		Short: "List the children of a path inside a mounted archive",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runLs,
	}
}

func runLs(_ *cobra.Command, args []string) error {
	engine, err := newEngine()
	if err != nil {
		return err
	}

	var subpath string
	if len(args) == 2 {
		subpath = args[1]
	}

	h, err := navigate(engine, args[0], subpath)
	if err != nil {
		return err
	}

	isLeaf, err := h.IsLeaf()
	if err != nil {
		return fmt.Errorf("stat %q: %w", h.LocalPathName(), err)
	}
	if isLeaf {
		return printEntry(h)
	}

	children, err := h.GetChildren(false)
	if err != nil {
		return fmt.Errorf("list children of %q: %w", h.LocalPathName(), err)
	}
	for _, c := range children {
		if err := printEntry(c); err != nil {
			return err
		}
	}
	return nil
}

func printEntry(h interface {
	Name() string
	IsLeaf() (bool, error)
	Size() (int64, error)
}) error {
	isLeaf, err := h.IsLeaf()
	if err != nil {
		return err
	}
	if !isLeaf {
		fmt.Printf("%-40s %s\n", h.Name()+"/", "-")
		return nil
	}
	size, err := h.Size()
	if err != nil {
		return err
	}
	fmt.Printf("%-40s %s\n", h.Name(), humanize.Bytes(uint64(size)))
	return nil
}
