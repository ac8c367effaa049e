package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/pageflow/internal/render"
)

func newPDFCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "pdf FILE",
		Short: "Render a document to PDF with one page per computed page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.load(args[0])
			if err != nil {
				return err
			}
			res, _ := a.paginate(doc, nil)

			if output == "" {
				output = defaultOutput(args[0])
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := render.NewRenderer().Render(f, doc, res.Breaks, res.Config); err != nil {
				f.Close()
				return fmt.Errorf("render %s: %w", output, err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			a.log.Info("wrote pdf", "file", output, "pages", res.Pages)
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d pages)\n", output, res.Pages)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (default FILE with a .pdf extension)")
	return cmd
}

// defaultOutput swaps the input extension for .pdf, without clobbering a
// PDF input.
func defaultOutput(in string) string {
	ext := filepath.Ext(in)
	base := strings.TrimSuffix(in, ext)
	if strings.EqualFold(ext, ".pdf") {
		return base + ".paginated.pdf"
	}
	return base + ".pdf"
}
