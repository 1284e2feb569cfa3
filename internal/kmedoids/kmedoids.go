package kmedoids

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"

	"github.com/hupe1980/vismatch/distance"
)

// ErrInvalidArgument is returned for a non-positive k or descriptor length.
var ErrInvalidArgument = errors.New("kmedoids: invalid argument")

// candidateSample bounds the members tried as a new medoid per cluster update.
const candidateSample = 64

// Result is the outcome of Train.
type Result struct {
	// Medoids holds the point index of each cluster centre.
	Medoids []int
	// Assign holds, for each entry of members, the position in Medoids of its cluster.
	Assign []int
}

// Train partitions members (point indices into descriptors) into at most k
// clusters. When len(members) <= k every member is its own cluster.
//
// The final assignment is computed against the final medoids with Closest, so
// a descriptor that equals one in members descends to that member's cluster.
func Train(ctx context.Context, descriptors []byte, bytesPerFeature int, members []int, k, iterations int, rng *rand.Rand) (Result, error) {
	if k <= 0 || bytesPerFeature <= 0 {
		return Result{}, ErrInvalidArgument
	}
	n := len(members)
	if n <= k {
		res := Result{Medoids: append([]int(nil), members...), Assign: make([]int, n)}
		for i := range res.Assign {
			res.Assign[i] = i
		}
		return res, nil
	}

	desc := func(p int) []byte { return descriptors[p*bytesPerFeature : (p+1)*bytesPerFeature] }

	medoids := seed(members, k, desc, rng)

	assign := make([]int, n)
	assignAll := func() bool {
		changed := false
		for i, p := range members {
			c := Closest(desc(p), descriptors, bytesPerFeature, medoids)
			if assign[i] != c {
				assign[i] = c
				changed = true
			}
		}
		return changed
	}
	assignAll()

	clusters := make([][]int, k)
	for iter := 0; iter < iterations; iter++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		for j := range clusters {
			clusters[j] = clusters[j][:0]
		}
		for i, p := range members {
			clusters[assign[i]] = append(clusters[assign[i]], p)
		}

		moved := false
		for j, cl := range clusters {
			if len(cl) == 0 {
				continue
			}
			best := updateMedoid(cl, medoids[j], desc, rng)
			if best != medoids[j] {
				medoids[j] = best
				moved = true
			}
		}
		if !moved {
			break
		}
		if !assignAll() {
			break
		}
	}

	// Medoids may have moved after the last assignment.
	assignAll()

	return Result{Medoids: medoids, Assign: assign}, nil
}

// seed picks a random first medoid and then, k-1 times, the member farthest
// from all medoids chosen so far (ties to the earliest member).
func seed(members []int, k int, desc func(int) []byte, rng *rand.Rand) []int {
	medoids := make([]int, 0, k)
	medoids = append(medoids, members[rng.IntN(len(members))])

	nearest := make([]int, len(members))
	for i, p := range members {
		nearest[i] = distance.Hamming(desc(p), desc(medoids[0]))
	}
	for len(medoids) < k {
		far := 0
		for i := range members {
			if nearest[i] > nearest[far] {
				far = i
			}
		}
		m := members[far]
		medoids = append(medoids, m)
		for i, p := range members {
			nearest[i] = min(nearest[i], distance.Hamming(desc(p), desc(m)))
		}
	}
	return medoids
}

// updateMedoid returns the member of cl with the smallest total distance to the
// other members. Large clusters only try a random sample plus the current medoid.
func updateMedoid(cl []int, current int, desc func(int) []byte, rng *rand.Rand) int {
	candidates := cl
	if len(cl) > candidateSample {
		candidates = make([]int, 0, candidateSample+1)
		candidates = append(candidates, current)
		for _, pos := range rng.Perm(len(cl))[:candidateSample] {
			if cl[pos] != current {
				candidates = append(candidates, cl[pos])
			}
		}
	}

	best, bestCost := current, math.MaxInt
	for _, c := range candidates {
		cost := 0
		dc := desc(c)
		for _, p := range cl {
			cost += distance.Hamming(dc, desc(p))
			if cost > bestCost {
				break
			}
		}
		if cost < bestCost || (cost == bestCost && c < best) {
			best, bestCost = c, cost
		}
	}
	return best
}

// Closest returns the position in medoids of the centre nearest to query.
// Ties resolve to the lowest position.
func Closest(query, descriptors []byte, bytesPerFeature int, medoids []int) int {
	best, bestDist := 0, math.MaxInt
	for j, m := range medoids {
		d := distance.Hamming(query, descriptors[m*bytesPerFeature:(m+1)*bytesPerFeature])
		if d < bestDist {
			best, bestDist = j, d
		}
	}
	return best
}
