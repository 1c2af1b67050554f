package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func buildCatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cat <path>",
		Short: "Stream the content of a file inside a (possibly nested) archive",
		Long: `cat resolves a full on-disk path that may address content inside one or
more not-yet-mounted nested archives (e.g. app.war/WEB-INF/lib/util.jar/...)
and streams its content to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: runCat,
	}
}

func runCat(_ *cobra.Command, args []string) error {
	engine, err := newEngine()
	if err != nil {
		return err
	}

	h, err := engine.Resolve(args[0])
	if err != nil {
		return fmt.Errorf("resolve %q: %w", args[0], err)
	}

	rc, err := h.OpenStream()
	if err != nil {
		return fmt.Errorf("open %q: %w", args[0], err)
	}
	defer rc.Close()

	if _, err := io.Copy(os.Stdout, rc); err != nil {
		return fmt.Errorf("stream %q: %w", args[0], err)
	}
	return nil
}
