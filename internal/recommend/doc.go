// Package recommend turns a scored candidate feed into a ranked,
// fully-detailed, duplicate-free list of catalog items.
//
// The feed and the catalog use different identifier spaces. Join bridges
// them by external id first and internal id second; items that cannot be
// scored are dropped and reported, never returned as errors.
//
// Overlapping loads are ordered by a generation counter: a completion
// older than the last committed load is discarded with ErrStaleLoad, so
// a slow earlier request cannot overwrite a newer pool.
package recommend
