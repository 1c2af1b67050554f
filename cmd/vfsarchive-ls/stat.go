package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func buildStatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stat <path>",
		Short: "Print size, modification time, and leaf/directory status for a path",
		Args:  cobra.ExactArgs(1),
		RunE:  runStat,
	}
}

func runStat(_ *cobra.Command, args []string) error {
	engine, err := newEngine()
	if err != nil {
		return err
	}

	h, err := engine.Resolve(args[0])
	if err != nil {
		return fmt.Errorf("resolve %q: %w", args[0], err)
	}

	isLeaf, err := h.IsLeaf()
	if err != nil {
		return fmt.Errorf("stat %q: %w", args[0], err)
	}
	size, err := h.Size()
	if err != nil {
		return fmt.Errorf("stat %q: %w", args[0], err)
	}
	modTime, err := h.LastModified()
	if err != nil {
		return fmt.Errorf("stat %q: %w", args[0], err)
	}
	exists, err := h.Exists()
	if err != nil {
		return fmt.Errorf("stat %q: %w", args[0], err)
	}

	kind := "file"
	if !isLeaf {
		kind = "directory"
	}

	fmt.Printf("Name:     %s\n", h.Name())
	fmt.Printf("Kind:     %s\n", kind)
	fmt.Printf("Exists:   %t\n", exists)
	fmt.Printf("Size:     %s\n", humanize.Bytes(uint64(size)))
	fmt.Printf("Modified: %s\n", modTime.Format("2006-01-02 15:04:05 MST"))
	return nil
}
