package cluster

import (
	"math"
	"math/rand"
)

const kmeansIterations = 50

// kMeans runs Lloyd's algorithm with seeded random initialization and returns
// the assignment of each point to a cluster in [0, k).
func kMeans(points [][]float64, k int, seed int64) []int {
	rng := rand.New(rand.NewSource(seed))
	centroids := initCentroids(points, k, rng)
	assignments := make([]int, len(points))

	for iter := 0; iter < kmeansIterations; iter++ {
		changed := false
		for i, p := range points {
			best := nearestCentroid(p, centroids)
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}

		// Recompute centroids as member means; empty clusters keep position.
		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, len(points[0]))
		}
		for i, p := range points {
			c := assignments[i]
			counts[c]++
			for d, v := range p {
				sums[c][d] += v
			}
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				continue
			}
			for d := range sums[c] {
				centroids[c][d] = sums[c][d] / float64(counts[c])
			}
		}

		if !changed {
			break
		}
	}
	return assignments
}

// initCentroids uses k-means++ style seeding: the first centroid uniformly at
// random, each next one weighted by squared distance to the nearest chosen.
func initCentroids(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	first := points[rng.Intn(len(points))]
	centroids = append(centroids, clone(first))

	for len(centroids) < k {
		weights := make([]float64, len(points))
		total := 0.0
		for i, p := range points {
			d := distanceSq(p, centroids[nearestCentroid(p, centroids)])
			weights[i] = d
			total += d
		}
		if total == 0 {
			// All remaining points coincide with chosen centroids.
			centroids = append(centroids, clone(points[rng.Intn(len(points))]))
			continue
		}
		target := rng.Float64() * total
		acc := 0.0
		chosen := len(points) - 1
		for i, w := range weights {
			acc += w
			if acc >= target {
				chosen = i
				break
			}
		}
		centroids = append(centroids, clone(points[chosen]))
	}
	return centroids
}

func nearestCentroid(p []float64, centroids [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := distanceSq(p, centroid); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// silhouette returns the mean silhouette coefficient over all points: for
// each point, (b-a)/max(a,b) with a = mean intra-cluster distance and b =
// mean distance to the nearest other cluster. Higher is better-separated.
func silhouette(points [][]float64, assignments []int, k int) float64 {
	if k < 2 {
		return -1
	}
	members := make([][]int, k)
	for i, c := range assignments {
		members[c] = append(members[c], i)
	}

	total, counted := 0.0, 0
	for i, p := range points {
		own := assignments[i]
		if len(members[own]) < 2 {
			continue
		}

		a := meanDistance(p, points, members[own], i)
		b := math.Inf(1)
		for c := 0; c < k; c++ {
			if c == own || len(members[c]) == 0 {
				continue
			}
			if d := meanDistance(p, points, members[c], -1); d < b {
				b = d
			}
		}
		if math.IsInf(b, 1) {
			continue
		}
		if m := math.Max(a, b); m > 0 {
			total += (b - a) / m
		}
		counted++
	}
	if counted == 0 {
		return -1
	}
	return total / float64(counted)
}

func meanDistance(p []float64, points [][]float64, indexes []int, exclude int) float64 {
	sum, n := 0.0, 0
	for _, idx := range indexes {
		if idx == exclude {
			continue
		}
		sum += math.Sqrt(distanceSq(p, points[idx]))
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func distanceSq(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func clone(p []float64) []float64 {
	out := make([]float64, len(p))
	copy(out, p)
	return out
}
