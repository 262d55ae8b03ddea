// Package verify checks a read-back storage buffer against the host reference
// of the push constant kernel.
package verify

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/vkngwrapper/compute/pushconst"
)

// minShard keeps tiny buffers on a single goroutine.
const minShard = 4096

// Mismatch is one element where the device disagreed with the reference.
type Mismatch struct {
	Index int
	Got   uint32
	Want  uint32
}

// Report summarizes a comparison.
type Report struct {
	GotLength  int
	WantLength int
	Mismatches int
	// First holds the lowest-indexed mismatches, up to the requested limit.
	First []Mismatch
}

func (r *Report) OK() bool {
	return r.GotLength == r.WantLength && r.Mismatches == 0
}

// Err returns a *MismatchError describing the report, or nil if it is clean.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	return errors.WithStack(&MismatchError{Report: r})
}

type MismatchError struct {
	Report *Report
}

func (e *MismatchError) Error() string {
	r := e.Report
	if r.GotLength != r.WantLength {
		return fmt.Sprintf("read back %d elements, expected %d", r.GotLength, r.WantLength)
	}
	if len(r.First) == 0 {
		return fmt.Sprintf("%d of %d elements differ", r.Mismatches, r.WantLength)
	}
	m := r.First[0]
	return fmt.Sprintf("%d of %d elements differ; first at index %d: got %d, want %d",
		r.Mismatches, r.WantLength, m.Index, m.Got, m.Want)
}

// Sequence returns 0..n-1, the buffer contents before the dispatch.
func Sequence(n int) []uint32 {
	s := make([]uint32, n)
	for i := range s {
		s[i] = uint32(i)
	}
	return s
}

// Expected computes the kernel's output for input on the host.
func Expected(ctx context.Context, input []uint32, data pushconst.Data, workers int) ([]uint32, error) {
	out := make([]uint32, len(input))

	group, _ := errgroup.WithContext(ctx)
	for _, s := range shards(len(input), workers) {
		lo, hi := s[0], s[1]
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data.Transform(out[lo:hi], input[lo:hi])
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, errors.Wrap(err, "computing reference output")
	}
	return out, nil
}

// Compare checks got against want element by element. The returned report
// keeps at most maxReported mismatches, lowest index first.
func Compare(ctx context.Context, got, want []uint32, workers, maxReported int) (*Report, error) {
	report := &Report{
		GotLength:  len(got),
		WantLength: len(want),
	}
	if len(got) != len(want) {
		return report, nil
	}

	parts := shards(len(want), workers)
	counts := make([]int, len(parts))
	firsts := make([][]Mismatch, len(parts))

	group, _ := errgroup.WithContext(ctx)
	for idx, s := range parts {
		idx, lo, hi := idx, s[0], s[1]
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := lo; i < hi; i++ {
				if got[i] == want[i] {
					continue
				}
				counts[idx]++
				if len(firsts[idx]) < maxReported {
					firsts[idx] = append(firsts[idx], Mismatch{Index: i, Got: got[i], Want: want[i]})
				}
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, errors.Wrap(err, "comparing read-back buffer")
	}

	for idx := range parts {
		report.Mismatches += counts[idx]
		report.First = append(report.First, firsts[idx]...)
	}
	sort.Slice(report.First, func(a, b int) bool {
		return report.First[a].Index < report.First[b].Index
	})
	if len(report.First) > maxReported {
		report.First = report.First[:maxReported]
	}

	return report, nil
}

// shards splits [0, n) into contiguous half-open ranges, one per worker.
func shards(n, workers int) [][2]int {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if limit := (n + minShard - 1) / minShard; workers > limit {
		workers = limit
	}
	if workers < 1 {
		workers = 1
	}

	size := (n + workers - 1) / workers
	var out [][2]int
	for lo := 0; lo < n; lo += size {
		hi := lo + size
		if hi > n {
			hi = n
		}
		out = append(out, [2]int{lo, hi})
	}
	if len(out) == 0 {
		out = append(out, [2]int{0, 0})
	}
	return out
}
