// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

// Package seqdiff compares a consensus against a reference sequence.
package seqdiff

import (
	"fmt"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Variant is one difference between a reference and a query. Position
// is 1-based in the reference.
type Variant struct {
	Position int
	Ref      string
	New      string
}

func (v Variant) String() string {
	switch {
	case len(v.Ref) == 0:
		return fmt.Sprintf("%d_%dins%s", v.Position-1, v.Position, v.New)
	case len(v.New) == 0:
		return fmt.Sprintf("%d_%ddel", v.Position, v.Position+len(v.Ref)-1)
	default:
		return fmt.Sprintf("%d_%d%s>%s", v.Position, v.Position+len(v.Ref)-1, v.Ref, v.New)
	}
}

func diffs(a, b string, timeout time.Duration) []diffmatchpatch.Diff {
	dmp := diffmatchpatch.New()
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	return dmp.DiffBisect(a, b, deadline)
}

// Ratio returns 2*M/T, where M is the number of bases a and b have in
// common along an optimal diff and T is len(a)+len(b). Identical
// sequences (including two empty ones) give 1.0.
func Ratio(a, b string) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 1
	}
	matched := 0
	for _, d := range diffs(a, b, 0) {
		if d.Type == diffmatchpatch.DiffEqual {
			matched += len(d.Text)
		}
	}
	return 2 * float64(matched) / float64(total)
}

// Variants lists the differences turning ref into query. Adjacent
// deletions and insertions are merged into one variant. If timeout is
// positive and the diff does not finish in time, the result is still
// correct but may not be minimal.
func Variants(ref, query string, timeout time.Duration) []Variant {
	ds := diffs(ref, query, timeout)
	pos := 1
	var variants []Variant
	for i := 0; i < len(ds); {
		for ; i < len(ds) && ds[i].Type == diffmatchpatch.DiffEqual; i++ {
			pos += len(ds[i].Text)
		}
		if i >= len(ds) {
			break
		}
		v := Variant{Position: pos}
		for ; i < len(ds) && ds[i].Type != diffmatchpatch.DiffEqual; i++ {
			if ds[i].Type == diffmatchpatch.DiffDelete {
				v.Ref += ds[i].Text
			} else {
				v.New += ds[i].Text
			}
		}
		pos += len(v.Ref)
		variants = append(variants, v)
	}
	return variants
}
