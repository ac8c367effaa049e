package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgallion1/pageflow/internal/doctree"
	"github.com/dgallion1/pageflow/internal/logging"
	"github.com/dgallion1/pageflow/internal/measure"
	"github.com/dgallion1/pageflow/internal/pagination"
	"github.com/dgallion1/pageflow/internal/parser"
)

// app is the state shared by subcommands after flags and config are read.
type app struct {
	v    *viper.Viper
	log  *slog.Logger
	page pagination.PageConfig
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	var cfgFile string

	root := &cobra.Command{
		Use:           "pagebreak",
		Short:         "Compute page breaks for documents",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd, cfgFile)
		},
	}
	root.SetVersionTemplate("pagebreak {{.Version}}\n")

	def := pagination.DefaultConfig()
	pf := root.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "config file (default ./pagebreak.yaml)")
	pf.String("page-size", "", "named paper size: letter, legal, a4, a5")
	pf.Float64("page-height", def.PageHeight, "page height in CSS pixels")
	pf.Float64("page-width", def.PageWidth, "page width in CSS pixels")
	pf.Float64("page-margin", def.PageMargin, "margin on every side in CSS pixels")
	pf.String("label", def.Label, "page label shown before the page number")
	pf.Bool("show-page-number", def.ShowPageNumber, "print page numbers in PDF footers")
	pf.String("log-level", "warn", "log level: debug, info, warn, error")
	pf.Bool("no-pdftotext", false, "do not fall back to pdftotext for PDF input")
	// Flag names are fixed above, so binding cannot fail.
	_ = a.v.BindPFlags(pf)

	root.AddCommand(newBreaksCmd(a), newPDFCmd(a), newVersionCmd())
	return root
}

// init reads the config file and environment, then resolves the page
// configuration. Precedence: flags, PAGEFLOW_* variables, config file,
// defaults.
func (a *app) init(cmd *cobra.Command, cfgFile string) error {
	if cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
	} else {
		a.v.AddConfigPath(".")
		a.v.SetConfigName("pagebreak")
	}
	a.v.SetEnvPrefix("PAGEFLOW")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	a.log = logging.NewTo(cmd.ErrOrStderr(), a.v.GetString("log-level"), "")

	page, err := a.pageConfig()
	if err != nil {
		return err
	}
	a.page = page
	a.log.Debug("page configuration", "config", page, "config_file", a.v.ConfigFileUsed())
	return nil
}

func (a *app) pageConfig() (pagination.PageConfig, error) {
	cfg := pagination.DefaultConfig()
	if name := a.v.GetString("page-size"); name != "" {
		size, ok := pagination.LookupPageSize(name)
		if !ok {
			return cfg, fmt.Errorf("unknown page size %q", name)
		}
		cfg = pagination.Merge(cfg, size.Patch())
	}

	var p pagination.Patch
	for key, dst := range map[string]**float64{
		"page-height": &p.PageHeight,
		"page-width":  &p.PageWidth,
		"page-margin": &p.PageMargin,
	} {
		if a.v.IsSet(key) {
			f := a.v.GetFloat64(key)
			*dst = &f
		}
	}
	if a.v.IsSet("label") {
		label := a.v.GetString("label")
		p.Label = &label
	}
	if a.v.IsSet("show-page-number") {
		show := a.v.GetBool("show-page-number")
		p.ShowPageNumber = &show
	}
	cfg = pagination.Merge(cfg, p)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// load parses the document at path.
func (a *app) load(path string) (*doctree.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	doc, err := parser.ParseFile(f, path, parser.Options{
		FallbackPdftotext: !a.v.GetBool("no-pdftotext"),
	})
	if err != nil {
		return nil, err
	}
	a.log.Info("parsed document", "file", path, "blocks", len(doc.Children()))
	return doc, nil
}

// paginate runs one pass, estimating heights unless heights is non-empty.
func (a *app) paginate(doc *doctree.Document, heights measure.Table) (pagination.Result, bool) {
	if len(heights) > 0 {
		return pagination.Paginate(doc, heights, a.page), false
	}
	est := measure.NewEstimator(measure.DefaultStyle()).Estimate(doc, a.page.ContentWidth())
	return pagination.Paginate(doc, est, a.page), true
}
