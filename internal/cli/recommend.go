package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/scentbox/internal/model"
	"github.com/roach88/scentbox/internal/recommend"
	"github.com/roach88/scentbox/internal/remote"
)

// RecommendOptions holds flags for the recommend command.
type RecommendOptions struct {
	*RootOptions
	MinPrice   float64
	MaxPrice   float64
	Categories []string
}

func (o *RecommendOptions) filters() model.Filters {
	return model.Filters{MinPrice: o.MinPrice, MaxPrice: o.MaxPrice, Categories: o.Categories}
}

// addFilterFlags registers the recommendation filter flags on cmd.
func addFilterFlags(cmd *cobra.Command, opts *RecommendOptions) {
	cmd.Flags().Float64Var(&opts.MinPrice, "min-price", 0, "minimum price per ml sent to the feed")
	cmd.Flags().Float64Var(&opts.MaxPrice, "max-price", 0, "maximum price per ml sent to the feed (0 = unbounded)")
	cmd.Flags().StringSliceVar(&opts.Categories, "category", nil, "restrict to categories (repeatable)")
}

// NewRecommendCommand creates the recommend command.
func NewRecommendCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecommendOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Load ranked recommendations",
		Long: `Fetch scored candidates, resolve them against the catalog and print the
ranked items with their match percentages.

Exit codes:
  0 - Items loaded
  1 - Load failed or nothing could be resolved
  2 - Command error (bad config, etc.)

Examples:
  scentbox recommend
  scentbox recommend --max-price 3 --category woody --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecommend(opts, cmd)
		},
	}
	addFilterFlags(cmd, opts)
	return cmd
}

func runRecommend(opts *RecommendOptions, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	a, err := openApp(opts.RootOptions, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := a.newLoader().Load(ctx, opts.filters())
	if err != nil {
		return reportLoadError(out, err)
	}

	return out.Success(res, func(w io.Writer) {
		printItems(w, res.Items)
		if len(res.Report.Dropped) > 0 {
			fmt.Fprintf(w, "Dropped %d entries:\n", len(res.Report.Dropped))
			for _, d := range res.Report.Dropped {
				fmt.Fprintf(w, "  %s\n", d.Error())
			}
		}
	})
}

// reportLoadError maps a load failure to an error code and exit status.
func reportLoadError(out *OutputFormatter, err error) error {
	code := "load_failed"
	switch {
	case recommend.IsNoCandidates(err):
		code = "no_candidates"
	case recommend.IsStale(err):
		code = "stale_load"
	case remote.IsAuthFailure(err):
		code = "unauthorized"
	case remote.IsShapeError(err):
		code = "bad_shape"
	}
	return out.Fail(ExitFailure, code, err.Error(), nil)
}

func printItems(w io.Writer, items []model.CatalogItem) {
	for i, item := range items {
		fmt.Fprintf(w, "%2d. %-8s %3d%%  %-24s %-16s %6.2f/ml\n",
			i+1, item.ID, item.MatchPercentage, item.Name, item.Brand, item.PricePerUnit)
	}
}
