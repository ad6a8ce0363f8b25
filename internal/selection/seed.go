package selection

import (
	"cmp"
	"slices"

	"github.com/roach88/scentbox/internal/model"
)

// dedupe drops items without an id and repeats of an id, keeping the first.
func dedupe(items []model.CatalogItem) []model.CatalogItem {
	seen := make(map[string]bool, len(items))
	out := make([]model.CatalogItem, 0, len(items))
	for _, item := range items {
		if item.ID == "" || seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		out = append(out, item)
	}
	return out
}

// rank orders items by descending match percentage, keeping input order
// for ties.
func rank(items []model.CatalogItem) []model.CatalogItem {
	ranked := slices.Clone(items)
	slices.SortStableFunc(ranked, func(a, b model.CatalogItem) int {
		return cmp.Compare(b.MatchPercentage, a.MatchPercentage)
	})
	return ranked
}

// seed computes a fresh selection from a ranked pool.
//
// Excluded ids are never eligible. Among the rest, items inside price are
// preferred; if fewer than target of them exist the price constraint is
// dropped and the top of the whole eligible pool is taken instead. The
// result is capped at the number of eligible items.
func seed(ranked []model.CatalogItem, target int, price model.PriceRange, excluded map[string]bool) []string {
	eligible := make([]model.CatalogItem, 0, len(ranked))
	inPrice := make([]model.CatalogItem, 0, len(ranked))
	for _, item := range ranked {
		if excluded[item.ID] {
			continue
		}
		eligible = append(eligible, item)
		if price.Contains(item.PricePerUnit) {
			inPrice = append(inPrice, item)
		}
	}

	src := inPrice
	if len(inPrice) < target {
		src = eligible
	}
	n := min(target, len(src))
	out := make([]string, 0, n)
	for _, item := range src[:n] {
		out = append(out, item.ID)
	}
	return out
}

// backfill returns the first ranked id that is neither selected nor
// excluded.
func backfill(ranked []model.CatalogItem, selected []string, excluded map[string]bool) (string, bool) {
	for _, item := range ranked {
		if excluded[item.ID] || slices.Contains(selected, item.ID) {
			continue
		}
		return item.ID, true
	}
	return "", false
}
