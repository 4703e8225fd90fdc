// Package integrity detects files whose block extents overlap.
package integrity

import (
	"fmt"
	"strings"

	"github.com/marmos91/blockfs/pkg/metadata"
)

// Conflict is a pair of used files claiming at least one common block.
type Conflict struct {
	A       string
	B       string
	ExtentA metadata.Extent
	ExtentB metadata.Extent
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s %s and %s %s overlap", c.A, c.ExtentA, c.B, c.ExtentB)
}

// Report is the outcome of a check.
type Report struct {
	// Checked is the number of used files examined
	Checked int

	// Conflicts lists every overlapping pair, in slot order
	Conflicts []Conflict
}

// Clean reports whether no overlaps were found.
func (r Report) Clean() bool {
	return len(r.Conflicts) == 0
}

func (r Report) String() string {
	if r.Clean() {
		return fmt.Sprintf("clean (%d files)", r.Checked)
	}
	lines := make([]string, 0, len(r.Conflicts))
	for _, c := range r.Conflicts {
		lines = append(lines, c.String())
	}
	return strings.Join(lines, "\n")
}

// Check compares every pair of used entries and collects the overlapping
// ones. It never modifies md.
func Check(md *metadata.Metadata) Report {
	report := Report{}

	for i := range md.Entries {
		a := &md.Entries[i]
		if !a.Used {
			continue
		}
		report.Checked++

		for j := i + 1; j < len(md.Entries); j++ {
			b := &md.Entries[j]
			if !b.Used {
				continue
			}

			extA, extB := a.Extent(), b.Extent()
			if extA.Overlaps(extB) {
				report.Conflicts = append(report.Conflicts, Conflict{
					A:       a.Name,
					B:       b.Name,
					ExtentA: extA,
					ExtentB: extB,
				})
			}
		}
	}

	return report
}
