package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dgallion1/pageflow/internal/decoration"
	"github.com/dgallion1/pageflow/internal/measure"
	"github.com/dgallion1/pageflow/internal/pagination"
)

type breaksOutput struct {
	File      string                  `json:"file"`
	Title     string                  `json:"title"`
	Estimated bool                    `json:"estimated"`
	Pages     int                     `json:"pages"`
	Breaks    []pagination.BreakPoint `json:"breaks"`
	Markers   []decoration.Marker     `json:"markers"`
	Config    pagination.PageConfig   `json:"config"`
}

func newBreaksCmd(a *app) *cobra.Command {
	var format, heightsFile string

	cmd := &cobra.Command{
		Use:   "breaks FILE",
		Short: "Print the page breaks of a document",
		Long: `Parse FILE (markdown, HTML, DOCX, PDF, CSV, text or editor JSON) and
print where page breaks fall. Block heights are estimated from font metrics
unless --heights names a JSON object mapping node positions to heights.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "text" {
				return fmt.Errorf("unknown format %q (want json or text)", format)
			}
			doc, err := a.load(args[0])
			if err != nil {
				return err
			}
			heights, err := readHeights(heightsFile)
			if err != nil {
				return err
			}

			res, estimated := a.paginate(doc, heights)
			set := decoration.NewSet(res)
			out := breaksOutput{
				File:      args[0],
				Title:     doc.Title,
				Estimated: estimated,
				Pages:     res.Pages,
				Breaks:    set.Breaks(),
				Markers:   set.Markers,
				Config:    res.Config,
			}
			if format == "text" {
				return writeBreaksText(cmd.OutOrStdout(), out)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json or text")
	cmd.Flags().StringVar(&heightsFile, "heights", "", "JSON file of measured heights keyed by position")
	return cmd
}

func readHeights(path string) (measure.Table, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var t measure.Table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("heights %s: %w", path, err)
	}
	return t, nil
}

func writeBreaksText(w io.Writer, out breaksOutput) error {
	source := "measured"
	if out.Estimated {
		source = "estimated"
	}
	fmt.Fprintf(w, "%s: %d page(s), %s heights\n", out.File, out.Pages, source)
	if len(out.Markers) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "POS\tPAGE\tMARKER")
	for _, m := range out.Markers {
		fmt.Fprintf(tw, "%d\t%d\t%s\n", m.Pos, m.Page, m.Text)
	}
	return tw.Flush()
}
