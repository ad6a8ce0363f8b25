package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/scentbox/internal/model"
	"github.com/roach88/scentbox/internal/selection"
)

// SelectOptions holds flags for the select command.
type SelectOptions struct {
	RecommendOptions
	Count    int
	Unit     string
	BoxMin   float64
	BoxMax   float64
	Removes  []string
	Swaps    []string // "old:new"
	setPrice bool
}

// boxView is what select prints: the persisted state plus derived values.
type boxView struct {
	selection.State
	TotalPrice int                 `json:"total_price"`
	Items      []model.CatalogItem `json:"items"`
}

// NewSelectCommand creates the select command.
func NewSelectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SelectOptions{RecommendOptions: RecommendOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Build the sample box",
		Long: `Load recommendations, seed the sample box and apply edits.

Box settings and removals are persisted and carried into the next run.
Edits are applied in order: count, unit, price range, removals, swaps.

Examples:
  scentbox select
  scentbox select --count 8 --unit 10ml
  scentbox select --box-max-price 3 --remove p03 --swap p01:p09`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.setPrice = cmd.Flags().Changed("box-min-price") || cmd.Flags().Changed("box-max-price")
			return runSelect(opts, cmd)
		},
	}

	addFilterFlags(cmd, &opts.RecommendOptions)
	cmd.Flags().IntVar(&opts.Count, "count", 0, "box size (4 or 8)")
	cmd.Flags().StringVar(&opts.Unit, "unit", "", "sample size (2ml, 5ml or 10ml)")
	cmd.Flags().Float64Var(&opts.BoxMin, "box-min-price", 0, "minimum price per ml for the box")
	cmd.Flags().Float64Var(&opts.BoxMax, "box-max-price", 0, "maximum price per ml for the box (0 = unbounded)")
	cmd.Flags().StringArrayVar(&opts.Removes, "remove", nil, "remove an item by id (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Swaps, "swap", nil, "replace an item, as old:new (repeatable)")
	return cmd
}

func runSelect(opts *SelectOptions, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	// Reject malformed edits before touching the store.
	swaps := make([][2]string, 0, len(opts.Swaps))
	for _, s := range opts.Swaps {
		oldID, newID, ok := strings.Cut(s, ":")
		if !ok || oldID == "" || newID == "" {
			return NewExitError(ExitCommandError, fmt.Sprintf("invalid --swap %q: want old:new", s))
		}
		swaps = append(swaps, [2]string{oldID, newID})
	}
	var unit model.UnitSize
	if opts.Unit != "" {
		u, err := model.ParseUnitSize(opts.Unit)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --unit", err)
		}
		unit = u
	}

	a, err := openApp(opts.RootOptions, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	sel, err := a.newSelection(ctx)
	if err != nil {
		return err
	}
	res, err := a.newLoader().Load(ctx, opts.filters())
	if err != nil {
		return reportLoadError(out, err)
	}
	sel.ApplyLoad(ctx, res.Generation, res.Items)

	if opts.Count != 0 && !sel.SetTargetCount(ctx, opts.Count) {
		return out.Fail(ExitFailure, "invalid_count", fmt.Sprintf("box size must be %d or %d", selection.SmallBox, selection.LargeBox), nil)
	}
	if unit != 0 && !sel.SetUnitSize(ctx, unit) {
		return out.Fail(ExitFailure, "invalid_unit", "unsupported unit size", nil)
	}
	if opts.setPrice && !sel.SetPriceRange(ctx, model.PriceRange{Min: opts.BoxMin, Max: opts.BoxMax}) {
		return out.Fail(ExitFailure, "invalid_price_range", "price range must be non-negative with max >= min", nil)
	}
	for _, id := range opts.Removes {
		if !sel.Remove(ctx, id) {
			return out.Fail(ExitFailure, "not_selected", fmt.Sprintf("%s is not in the box", id), nil)
		}
		out.VerboseLog("removed %s", id)
	}
	for _, s := range swaps {
		if !sel.Swap(ctx, s[0], s[1]) {
			return out.Fail(ExitFailure, "swap_rejected", fmt.Sprintf("cannot swap %s for %s", s[0], s[1]), nil)
		}
		out.VerboseLog("swapped %s for %s", s[0], s[1])
	}

	view := boxView{State: sel.State(), TotalPrice: sel.TotalPrice(), Items: sel.SelectedItems()}
	return out.Success(view, func(w io.Writer) {
		printBox(w, view)
	})
}

func printBox(w io.Writer, view boxView) {
	fmt.Fprintf(w, "Box: %d of %d x %s, price %s\n",
		len(view.SelectedIDs), view.TargetCount, view.UnitSize, view.PriceRange)
	printItems(w, view.Items)
	if len(view.ExcludedIDs) > 0 {
		fmt.Fprintf(w, "Excluded: %s\n", strings.Join(view.ExcludedIDs, ", "))
	}
	fmt.Fprintf(w, "Total: %d\n", view.TotalPrice)
}
