// Package wavefront implements the per-frame scheduler: the stable
// LSD radix sort of ray indices by packed group id, and the
// count/prefix-scan/scatter sequence that turns sorted ray indices
// into each group's next-frame cursor.
package wavefront

import (
	"github.com/MrSmile/RayTracer/internal/device"
)

const (
	RadixShift = 5
	RadixMax   = 1 << RadixShift
	RadixMask  = RadixMax - 1

	// UnitWidth is capped at 256, the portable compute workgroup size
	// limit, rather than the 512 a bare accelerator queue would allow.
	WarpWidth = 32
	UnitWidth = 256
	SortBlock = 16
)

// Align rounds val up to the next multiple of unit.
func Align(val, unit uint32) uint32 {
	if r := val % unit; r != 0 {
		return val + (unit - r)
	}
	return val
}

// Entry is one row of the ray-index table: the packed group id a ray
// is currently targeting, and the ray's position in the ray list.
type Entry struct {
	GroupID  uint32
	RayIndex uint32
}

// PassCount reports how many RADIX_SHIFT-bit digit passes a full sort
// of keys up to maxKey requires: ceil(bits_needed/RADIX_SHIFT), zero
// when maxKey is zero (nothing to reorder).
func PassCount(maxKey uint32) int {
	passes := 0
	for mask := maxKey; mask != 0; mask >>= RadixShift {
		passes++
	}
	return passes
}

// maxGroupID returns the largest group id present, the value the host
// driver right-shifts each pass to decide whether another is needed.
func maxGroupID(entries []Entry) uint32 {
	var max uint32
	for _, e := range entries {
		if e.GroupID > max {
			max = e.GroupID
		}
	}
	return max
}

// SortByGroupID performs the full multi-pass stable LSD radix sort of
// entries by GroupID, mirroring the host driver's make_step loop: one
// digit pass per RADIX_SHIFT bits of the largest id present, each pass
// realized by the three kernels below and a buffer swap between passes.
func SortByGroupID(entries []Entry) []Entry {
	if len(entries) == 0 {
		return entries
	}
	src := append([]Entry(nil), entries...)
	dst := make([]Entry, len(entries))

	max := maxGroupID(entries)
	for shift := uint32(0); max>>shift != 0; shift += RadixShift {
		sortPass(src, dst, shift)
		src, dst = dst, src
	}
	return src
}

// sortPass realizes one radix digit pass as the three device kernels:
// per-block local counting/ranking, a global
// exclusive prefix scan across blocks and digits, and the scatter that
// combines them into a destination index.
func sortPass(src, dst []Entry, shift uint32) {
	blockSize := UnitWidth * SortBlock
	blockCount := (len(src) + blockSize - 1) / blockSize

	localIndex := make([]uint32, len(src))
	blockDigitCount := make([][RadixMax]uint32, blockCount)

	localCount(src, shift, blockSize, localIndex, blockDigitCount)
	globalIndex := globalCount(blockDigitCount)
	shuffleData(src, dst, shift, blockSize, localIndex, globalIndex)
}

func digitOf(id uint32, shift uint32) uint32 {
	return (id >> shift) & RadixMask
}

// localCount computes, for each element, its rank among same-digit
// elements within its own block (localIndex), and for each (block,
// digit) pair the number of elements of that digit in that block.
func localCount(src []Entry, shift uint32, blockSize int, localIndex []uint32, blockDigitCount [][RadixMax]uint32) {
	for block := range blockDigitCount {
		start := block * blockSize
		end := start + blockSize
		if end > len(src) {
			end = len(src)
		}
		var hist [RadixMax]uint32
		for i := start; i < end; i++ {
			d := digitOf(src[i].GroupID, shift)
			localIndex[i] = hist[d]
			hist[d]++
		}
		blockDigitCount[block] = hist
	}
}

// globalCount turns the per-block digit histograms into, for each
// (block, digit) pair, the first output index that pair's elements
// should scatter to: digit-major (so the pass groups by digit) then
// block-minor (so relative order within a digit is preserved, which is
// what makes the sort stable).
func globalCount(blockDigitCount [][RadixMax]uint32) [][RadixMax]uint32 {
	blockCount := len(blockDigitCount)
	globalIndex := make([][RadixMax]uint32, blockCount)

	var digitTotal [RadixMax]uint32
	for _, hist := range blockDigitCount {
		for d := 0; d < RadixMax; d++ {
			digitTotal[d] += hist[d]
		}
	}
	var digitBase [RadixMax]uint32
	var running uint32
	for d := 0; d < RadixMax; d++ {
		digitBase[d] = running
		running += digitTotal[d]
	}

	cursor := digitBase
	for block := 0; block < blockCount; block++ {
		for d := 0; d < RadixMax; d++ {
			globalIndex[block][d] = cursor[d]
			cursor[d] += blockDigitCount[block][d]
		}
	}
	return globalIndex
}

// shuffleData scatters every element to global_index[block,digit] +
// local_index[element], its final position for this pass.
func shuffleData(src, dst []Entry, shift uint32, blockSize int, localIndex []uint32, globalIndex [][RadixMax]uint32) {
	for block := range globalIndex {
		start := block * blockSize
		end := start + blockSize
		if end > len(src) {
			end = len(src)
		}
		for i := start; i < end; i++ {
			d := digitOf(src[i].GroupID, shift)
			dest := globalIndex[block][d] + localIndex[i]
			dst[dest] = src[i]
		}
	}
}

// IsSortedByGroupID checks the postcondition of SortByGroupID: the
// sequence is non-decreasing on group id.
func IsSortedByGroupID(entries []Entry) bool {
	for i := 1; i < len(entries); i++ {
		if entries[i-1].GroupID > entries[i].GroupID {
			return false
		}
	}
	return true
}

// CountByGroup tallies how many entries target each group, the input
// to count_groups / the conservation property Σcount == ray_count.
func CountByGroup(entries []Entry) map[uint32]uint32 {
	counts := make(map[uint32]uint32)
	for _, e := range entries {
		counts[e.GroupID]++
	}
	return counts
}

// UpdateGroups performs the single-work-group exclusive prefix scan
// that turns per-group arrival counts into base offsets, and
// initializes each group's scatter cursor to that base. groupOrder
// fixes iteration order (by ascending packed id, the scheduler's
// natural order) so the scan is deterministic.
func UpdateGroups(rows map[uint32]*device.GroupData, groupOrder []uint32) {
	var base uint32
	for _, id := range groupOrder {
		row := rows[id]
		row.Base[0] = base
		row.Offset[0] = base
		base += row.Count[0]
	}
}

// SetRayIndex places every sorted entry into its group's next free
// slot, advancing that group's cursor by one (the atomic
// post-increment the device kernel performs per lane).
func SetRayIndex(sorted []Entry, rows map[uint32]*device.GroupData) []Entry {
	out := make([]Entry, len(sorted))
	for _, e := range sorted {
		row := rows[e.GroupID]
		slot := row.Offset[0]
		row.Offset[0]++
		out[slot] = e
	}
	return out
}
