package commands

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"labelforge/internal/catalog/filter"
	"labelforge/internal/catalog/ingest"
	"labelforge/internal/catalog/models"
	"labelforge/internal/label/document"
	labelmetrics "labelforge/internal/label/metrics"
	"labelforge/internal/label/service"
	dErrors "labelforge/pkg/domain-errors"
)

type generateFlags struct {
	input            string
	out              string
	title            string
	types            []string
	lineages         []string
	brands           []string
	vendors          []string
	query            string
	sort             string
	excludeZeroPrice bool
	strict           bool
}

func generateCmd(a *app) *cobra.Command {
	var f generateFlags
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Render labels for a catalog export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.generate(cmd, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.input, "input", "", "catalog export (.csv or .tsv)")
	fl.StringVar(&f.out, "out", "", "HTML output path, - for stdout")
	fl.StringVar(&f.title, "title", "", "document title")
	fl.StringVar(&a.cfg.Render.Template, "template", a.cfg.Render.Template, "builtin template ("+strings.Join(document.BuiltinNames(), ", ")+") or a YAML file")
	fl.IntVar(&a.cfg.Render.Workers, "workers", a.cfg.Render.Workers, "concurrent chunk renderers")
	fl.DurationVar(&a.cfg.Render.ChunkTimeout, "chunk-timeout", a.cfg.Render.ChunkTimeout, "per-chunk render deadline, 0 disables")
	fl.StringVar(&a.cfg.Render.FontSchemePath, "font-scheme", a.cfg.Render.FontSchemePath, "YAML font scheme merged over the defaults")
	fl.StringSliceVar(&f.types, "type", nil, "keep only these product types")
	fl.StringSliceVar(&f.lineages, "lineage", nil, "keep only these lineages")
	fl.StringSliceVar(&f.brands, "brand", nil, "keep only these brands")
	fl.StringSliceVar(&f.vendors, "vendor", nil, "keep only these vendors")
	fl.StringVar(&f.query, "query", "", "keep records whose description or strain contains the text")
	fl.StringVar(&f.sort, "sort", "", "order: none, type, lineage, brand or price")
	fl.BoolVar(&f.excludeZeroPrice, "exclude-zero-price", false, "drop records without a price")
	fl.BoolVar(&f.strict, "strict", false, "exit non-zero when any chunk is dropped")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func (a *app) generate(cmd *cobra.Command, f generateFlags) error {
	ctx := cmd.Context()

	// Configuration is checked before the catalog is read.
	tpl, err := a.template()
	if err != nil {
		return err
	}
	scheme, err := a.fontScheme()
	if err != nil {
		return err
	}
	cfg, err := f.filterConfig()
	if err != nil {
		return err
	}
	order, err := filter.ParseOrder(f.sort)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid --sort")
	}

	raws, err := ingest.ReadFile(f.input)
	if err != nil {
		return err
	}

	lin, closeLineage, err := a.openLineage(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeLineage(); err != nil {
			a.logger.WarnContext(ctx, "lineage shutdown incomplete", "error", err)
		}
	}()

	svc := service.New(a.newNormalizer(lin),
		service.WithLogger(a.logger),
		service.WithMetrics(labelmetrics.New(a.registry)),
		service.WithFontScheme(scheme),
		service.WithWorkers(a.cfg.Render.Workers),
		service.WithChunkTimeout(a.cfg.Render.ChunkTimeout),
	)
	report, err := svc.Generate(ctx, raws, service.Request{
		Template: tpl,
		Filter:   cfg,
		Order:    order,
		Title:    f.title,
	})
	if err != nil {
		return err
	}

	if err := writeOutput(f.out, a.stdout, func(w io.Writer) error {
		return document.WriteHTML(w, report.Document)
	}); err != nil {
		return err
	}

	a.printReport(report)
	if report.Partial && f.strict {
		return fmt.Errorf("%d of %d chunks dropped", len(report.DroppedChunks), report.Chunks)
	}
	return nil
}

func (a *app) template() (document.Template, error) {
	if a.cfg.Render.TemplatePath != "" {
		return document.LoadTemplateFile(a.cfg.Render.TemplatePath)
	}
	return document.Resolve(a.cfg.Render.Template)
}

func (f generateFlags) filterConfig() (models.FilterConfig, error) {
	lineages := make([]models.Lineage, 0, len(f.lineages))
	for _, raw := range f.lineages {
		l, ok := models.ParseLineage(raw)
		if !ok {
			return models.FilterConfig{}, dErrors.Newf(dErrors.CodeInvalidInput, "unknown lineage %q", raw)
		}
		lineages = append(lineages, l)
	}
	return models.NewFilterConfig(models.FilterSpec{
		ProductTypes:     f.types,
		Lineages:         lineages,
		Brands:           f.brands,
		Vendors:          f.vendors,
		Query:            f.query,
		ExcludeZeroPrice: f.excludeZeroPrice,
	}), nil
}

func (a *app) printReport(r *service.Report) {
	w := a.stderr
	if r.Partial {
		fmt.Fprintf(w, "run %s: %d of %d chunks rendered; dropped chunks %v (rows %v)\n",
			r.RunID, r.Rendered, r.Chunks, r.DroppedChunks, r.DroppedRows)
		for _, f := range r.Failures {
			fmt.Fprintf(w, "  chunk %d: %s: %v\n", f.Index, f.Reason, f.Err)
		}
		return
	}
	fmt.Fprintf(w, "run %s: %d records, %d labelled in %d chunks (%s)\n",
		r.RunID, r.Records, r.Selected, r.Chunks, r.Duration.Round(time.Millisecond))
}

// writeOutput writes to path, or to stdout when path is "-".
func writeOutput(path string, stdout io.Writer, write func(io.Writer) error) error {
	if path == "-" {
		return write(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
