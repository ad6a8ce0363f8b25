package recommend

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/scentbox/internal/model"
)

// DropReason says why an item or candidate did not make the ranked list.
type DropReason string

const (
	// ReasonUnresolvedScore: no candidate matched the item by either id.
	ReasonUnresolvedScore DropReason = "unresolved_score"

	// ReasonDuplicate: an item with the same internal id was already joined.
	ReasonDuplicate DropReason = "duplicate"

	// ReasonMissingExternalID: the candidate had no external id to look up.
	ReasonMissingExternalID DropReason = "missing_external_id"

	// ReasonMissingInternalID: the catalog returned an item without an id.
	ReasonMissingInternalID DropReason = "missing_internal_id"
)

// JoinError describes one dropped entry.
type JoinError struct {
	Reason     DropReason `json:"reason"`
	InternalID string     `json:"internal_id,omitempty"`
	ExternalID string     `json:"external_id,omitempty"`
}

func (e JoinError) Error() string {
	return fmt.Sprintf("%s (internal=%q external=%q)", e.Reason, e.InternalID, e.ExternalID)
}

// Report is the outcome of a join: the ranked items and what was dropped.
type Report struct {
	Resolved []model.CatalogItem `json:"resolved"`
	Dropped  []JoinError         `json:"dropped,omitempty"`
}

// normalizeID trims and NFC-normalizes an identifier so that ids from the
// two feeds compare equal when they spell the same thing.
func normalizeID(id string) string {
	return norm.NFC.String(strings.TrimSpace(id))
}

// rankCandidates sorts candidates by descending score, keeping feed order
// for ties, and returns at most topK of them.
func rankCandidates(candidates []model.Candidate, topK int) []model.Candidate {
	ranked := slices.Clone(candidates)
	slices.SortStableFunc(ranked, func(a, b model.Candidate) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}

// externalIDs collects the normalized, non-empty external ids of the
// candidates in order, without repeats. Candidates without one are reported.
func externalIDs(candidates []model.Candidate) ([]string, []JoinError) {
	var ids []string
	var dropped []JoinError
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		ext := normalizeID(c.ExternalID)
		if ext == "" {
			dropped = append(dropped, JoinError{
				Reason:     ReasonMissingExternalID,
				InternalID: normalizeID(c.InternalID),
			})
			continue
		}
		if seen[ext] {
			continue
		}
		seen[ext] = true
		ids = append(ids, ext)
	}
	return ids, dropped
}

// Join merges catalog items with their scoring candidates.
//
// Each item is matched by external id first, then by internal id. The first
// (highest ranked) candidate wins when several share an id. Unmatched and
// duplicate items are dropped and reported. Resolved items carry their match
// percentage and are sorted descending by it, stable for ties.
func Join(candidates []model.Candidate, items []model.CatalogItem) Report {
	byExternal := make(map[string]model.Candidate, len(candidates))
	byInternal := make(map[string]model.Candidate, len(candidates))
	for _, c := range candidates {
		if ext := normalizeID(c.ExternalID); ext != "" {
			if _, ok := byExternal[ext]; !ok {
				byExternal[ext] = c
			}
		}
		if id := normalizeID(c.InternalID); id != "" {
			if _, ok := byInternal[id]; !ok {
				byInternal[id] = c
			}
		}
	}

	var report Report
	report.Resolved = make([]model.CatalogItem, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		id := normalizeID(item.ID)
		ext := normalizeID(item.ExternalID)

		if id == "" {
			report.Dropped = append(report.Dropped, JoinError{
				Reason:     ReasonMissingInternalID,
				ExternalID: ext,
			})
			continue
		}

		cand, ok := byExternal[ext]
		if !ok {
			cand, ok = byInternal[id]
		}
		if !ok {
			report.Dropped = append(report.Dropped, JoinError{
				Reason:     ReasonUnresolvedScore,
				InternalID: id,
				ExternalID: ext,
			})
			continue
		}
		if seen[id] {
			report.Dropped = append(report.Dropped, JoinError{
				Reason:     ReasonDuplicate,
				InternalID: id,
				ExternalID: ext,
			})
			continue
		}
		seen[id] = true

		item.ID = id
		item.ExternalID = ext
		item.MatchPercentage = model.MatchPercentageFor(cand.Score)
		report.Resolved = append(report.Resolved, item)
	}

	slices.SortStableFunc(report.Resolved, func(a, b model.CatalogItem) int {
		return cmp.Compare(b.MatchPercentage, a.MatchPercentage)
	})
	return report
}
