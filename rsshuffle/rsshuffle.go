// Package rsshuffle implements the RS-shuffle witness generator of
// spec.md §4.4: a radix-sort-style oblivious shuffle whose witness is a
// per-level bit matrix plus bookkeeping tables that let a verifier check,
// row by row, that the claimed permutation really was produced by stable
// bucket-splitting on those bits.
//
// Grounded on domain/deck/shuffle.go's per-peer permute-and-reencrypt
// loop, generalized from a single Fisher-Yates permutation into the
// multi-level radix-sort witness spec.md §4.4 requires.
package rsshuffle

import (
	"fmt"

	"github.com/luca-patrignani/onchain-holdem/curve"
	"github.com/luca-patrignani/onchain-holdem/transcript"
)

// maxBitDrawRetries bounds the rejection-sampling loop that looks for a
// bit assignment matching a bucket's target zero count (see
// deriveRunBits). Chosen generously so it is never the limiting factor
// for the deck sizes this module deals with (N<=52); see DESIGN.md's
// open-question resolution for the target-zero-count rule.
const maxBitDrawRetries = 10000

// UnsortedRow is the per-row bookkeeping table spec.md §4.4 requires for
// level ℓ.
type UnsortedRow struct {
	Bit               int
	NumZerosPrefix    int
	NumOnesPrefix     int
	NumZerosInBucket  int
	BucketLength      int
	Idx               int
	NextPos           int
	BucketID          int
}

// SortedRow is the per-row table for level ℓ+1.
type SortedRow struct {
	Idx    int
	Length int
	Bucket int
}

// Witness is the full RS-shuffle witness: the bit matrix, the per-level
// bookkeeping tables, and the resulting permutation.
type Witness struct {
	N          int
	Levels     int
	Seed       curve.Scalar
	NumSamples int
	BitMatrix  [][]int // [level][position in that level's array]
	Unsorted   [][]UnsortedRow
	Sorted     [][]SortedRow // Sorted[0] is the initial identity level, Sorted[Levels] is final
	Permutation []int
}

type cell struct {
	idx    int
	bucket int
	length int
}

// deriveRunBits draws Poseidon-sampled candidate bits for one run
// (bucket) until exactly floor(runLen/2) of them are zero, per spec.md
// §4.4: "If sampled bits over-count a bucket's allowed zeros, draw more
// samples." Each full redraw of the run consumes runLen samples and is
// counted towards the witness's NumSamples.
func deriveRunBits(ops *curve.Ops, seed curve.Scalar, level, start, runLen int) (bits []int, samplesUsed int, err error) {
	target := runLen / 2
	seedBytes := ops.EncodeScalar(seed)

	for attempt := 0; attempt < maxBitDrawRetries; attempt++ {
		bits = make([]int, runLen)
		zeros := 0
		for k := 0; k < runLen; k++ {
			tb := transcript.New("RS-bit-v1")
			tb.AppendBytes(seedBytes)
			tb.AppendU16(uint16(level))
			tb.AppendU32(uint32(start + k))
			tb.AppendU32(uint32(attempt))
			digest := tb.Hash()
			bit := int(digest[31] & 1)
			bits[k] = bit
			if bit == 0 {
				zeros++
			}
		}
		samplesUsed += runLen
		if zeros == target {
			return bits, samplesUsed, nil
		}
	}
	return nil, samplesUsed, fmt.Errorf("rsshuffle: exceeded %d retries deriving bits for run at level %d start %d", maxBitDrawRetries, level, start)
}

// Generate runs the full RS-shuffle witness generation of spec.md §4.4
// for n elements, starting from the identity order 0..n-1, over the
// given number of levels, deterministically from
// seed: same seed yields the same bit matrix, same NumSamples, and the
// same resulting permutation (spec.md §8 invariant / scenario S1).
func Generate(ops *curve.Ops, n, levels int, seed curve.Scalar) (*Witness, error) {
	w := &Witness{
		N:      n,
		Levels: levels,
		Seed:   seed,
	}

	prev := make([]cell, n)
	for i := 0; i < n; i++ {
		prev[i] = cell{idx: i, bucket: 0, length: n}
	}
	sorted0 := make([]SortedRow, n)
	for i := range prev {
		sorted0[i] = SortedRow{Idx: prev[i].idx, Length: prev[i].length, Bucket: prev[i].bucket}
	}
	w.Sorted = append(w.Sorted, sorted0)

	for level := 0; level < levels; level++ {
		rowBits := make([]int, n)
		unsorted := make([]UnsortedRow, n)
		next := make([]cell, n)

		i := 0
		for i < n {
			start := i
			bucket := prev[i].bucket
			j := i
			for j < n && prev[j].bucket == bucket {
				j++
			}
			runLen := j - start

			bits, used, err := deriveRunBits(ops, seed, level, start, runLen)
			if err != nil {
				return nil, err
			}
			w.NumSamples += used

			numZerosInBucket := 0
			for _, b := range bits {
				if b == 0 {
					numZerosInBucket++
				}
			}

			zerosSoFar, onesSoFar := 0, 0
			for k := 0; k < runLen; k++ {
				pos := start + k
				bit := bits[k]
				rowBits[pos] = bit

				var nextPos int
				if bit == 0 {
					nextPos = start + zerosSoFar
				} else {
					nextPos = start + numZerosInBucket + onesSoFar
				}

				childBucket := 2*bucket + bit
				var childLength int
				if bit == 0 {
					childLength = numZerosInBucket
				} else {
					childLength = runLen - numZerosInBucket
				}

				unsorted[pos] = UnsortedRow{
					Bit:              bit,
					NumZerosPrefix:   zerosSoFar,
					NumOnesPrefix:    onesSoFar,
					NumZerosInBucket: numZerosInBucket,
					BucketLength:     runLen,
					Idx:              prev[pos].idx,
					NextPos:          nextPos,
					BucketID:         bucket,
				}
				next[nextPos] = cell{idx: prev[pos].idx, bucket: childBucket, length: childLength}

				if bit == 0 {
					zerosSoFar++
				} else {
					onesSoFar++
				}
			}
			i = j
		}

		w.BitMatrix = append(w.BitMatrix, rowBits)
		w.Unsorted = append(w.Unsorted, unsorted)
		sortedLevel := make([]SortedRow, n)
		for idx, c := range next {
			sortedLevel[idx] = SortedRow{Idx: c.idx, Length: c.length, Bucket: c.bucket}
		}
		w.Sorted = append(w.Sorted, sortedLevel)
		prev = next
	}

	perm := make([]int, n)
	finalLevel := w.Sorted[levels]
	for i, row := range finalLevel {
		perm[i] = row.Idx
	}
	w.Permutation = perm

	return w, nil
}

// VerifyInvariants checks the per-row invariants spec.md §4.4 and §8
// list: prefix-count consistency, bucket constancy, next_pos bijection,
// stability, and cross-level bucket linkage. This is the verifier-side
// structural check; the cryptographic binding of this witness to a
// committed permutation is the Pedersen scalar-folding link in the
// shuffle package.
func (w *Witness) VerifyInvariants() error {
	for level := 0; level < w.Levels; level++ {
		rows := w.Unsorted[level]
		seen := make([]bool, w.N)
		bucketLen := map[int]int{}
		bucketZeros := map[int]int{}

		// group by contiguous bucket to check stability and prefix counts
		i := 0
		for i < w.N {
			start := i
			bucket := rows[i].BucketID
			j := i
			for j < w.N && rows[j].BucketID == bucket {
				j++
			}
			zeroRank, oneRank := 0, 0
			for k := start; k < j; k++ {
				r := rows[k]
				if r.BucketLength != j-start || r.NumZerosInBucket != rows[start].NumZerosInBucket {
					return fmt.Errorf("rsshuffle: level %d row %d: bucket length/zero count not constant across bucket", level, k)
				}
				if r.NumZerosPrefix+r.NumOnesPrefix != k-start {
					return fmt.Errorf("rsshuffle: level %d row %d: prefix counts %d+%d != position %d",
						level, k, r.NumZerosPrefix, r.NumOnesPrefix, k-start)
				}
				if r.Bit == 0 {
					if r.NumZerosPrefix != zeroRank {
						return fmt.Errorf("rsshuffle: level %d row %d: zero stability violated", level, k)
					}
					zeroRank++
				} else {
					if r.NumOnesPrefix != oneRank {
						return fmt.Errorf("rsshuffle: level %d row %d: one stability violated", level, k)
					}
					oneRank++
				}
				expectedNext := start
				if r.Bit == 0 {
					expectedNext += r.NumZerosPrefix
				} else {
					expectedNext += r.NumZerosInBucket + r.NumOnesPrefix
				}
				if expectedNext != r.NextPos {
					return fmt.Errorf("rsshuffle: level %d row %d: next_pos mismatch", level, k)
				}
				if seen[r.NextPos] {
					return fmt.Errorf("rsshuffle: level %d: next_pos %d is not a bijection", level, r.NextPos)
				}
				seen[r.NextPos] = true
				bucketLen[bucket] = r.BucketLength
				bucketZeros[bucket] = r.NumZerosInBucket
				childBucket := 2*bucket + r.Bit
				if w.Sorted[level+1][r.NextPos].Bucket != childBucket {
					return fmt.Errorf("rsshuffle: level %d row %d: sorted child bucket mismatch", level, k)
				}
			}
			if bucketLen[bucket] != j-start {
				return fmt.Errorf("rsshuffle: level %d bucket %d: length mismatch", level, bucket)
			}
			i = j
		}
		for _, ok := range seen {
			if !ok {
				return fmt.Errorf("rsshuffle: level %d: next_pos bijection incomplete", level)
			}
		}
	}
	return nil
}
