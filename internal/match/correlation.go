// Package match pairs feature points between two images using normalized
// windowed correlation with mutual-best selection.
package match

import (
	"fmt"
	"image"
	"math"
	"runtime"
	"sync"

	"pano-align/pkg/geometry"
)

// Unscored marks a score-matrix cell whose pair was never evaluated,
// because the candidate was pruned by border exclusion or distance.
var Unscored = float32(math.Inf(-1))

// ScoreMatrix holds the normalized correlation scores of every evaluated
// point pair. Rows index the first image's points, columns the second's.
// The matrix is transient, rebuilt on every Match call.
type ScoreMatrix struct {
	rows, cols int
	scores     []float32
}

// NewScoreMatrix allocates a rows x cols matrix with every cell Unscored.
func NewScoreMatrix(rows, cols int) *ScoreMatrix {
	m := &ScoreMatrix{rows: rows, cols: cols, scores: make([]float32, rows*cols)}
	for i := range m.scores {
		m.scores[i] = Unscored
	}
	return m
}

// Rows returns the number of rows (points of the first image).
func (m *ScoreMatrix) Rows() int { return m.rows }

// Cols returns the number of columns (points of the second image).
func (m *ScoreMatrix) Cols() int { return m.cols }

// At returns the score at (row, col).
func (m *ScoreMatrix) At(row, col int) float32 {
	return m.scores[row*m.cols+col]
}

func (m *ScoreMatrix) set(row, col int, v float32) {
	m.scores[row*m.cols+col] = v
}

// RowArgMax returns the column holding the maximum finite score of a row,
// or -1 if the row has none. Ties resolve to the first column in scan order.
func (m *ScoreMatrix) RowArgMax(row int) int {
	best := -1
	bestScore := Unscored
	for j := 0; j < m.cols; j++ {
		if s := m.At(row, j); finite(s) && s > bestScore {
			best = j
			bestScore = s
		}
	}
	return best
}

// ColArgMax returns the row holding the maximum finite score of a column,
// or -1 if the column has none. Ties resolve to the first row in scan order.
func (m *ScoreMatrix) ColArgMax(col int) int {
	best := -1
	bestScore := Unscored
	for i := 0; i < m.rows; i++ {
		if s := m.At(i, col); finite(s) && s > bestScore {
			best = i
			bestScore = s
		}
	}
	return best
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

// Matcher pairs points between two single-channel images by correlating the
// pixel windows around them.
type Matcher struct {
	radius  int
	maxDist int
}

// NewMatcher creates a matcher with the given correlation window size
// (must be odd) and maximum candidate pixel distance (0 = unrestricted).
func NewMatcher(window, maxDist int) (*Matcher, error) {
	if window < 1 || window%2 == 0 {
		return nil, fmt.Errorf("correlation window must be odd, got %d", window)
	}
	return &Matcher{radius: window / 2, maxDist: maxDist}, nil
}

// Result holds the matched point pairs and the score matrix they were
// selected from. A and B are index-aligned; unmatched points are dropped.
type Result struct {
	A      []geometry.PointInt
	B      []geometry.PointInt
	Scores *ScoreMatrix
}

// Match correlates the two point sets. For each point of the first image the
// window around it is L2-normalized and scored against the raw window of
// every candidate in the second image:
//
//	score = dot(w1/|w1|, w2) / |w2|
//
// A pair is kept only when each point is the other's best score (mutual
// best match). Points too close to their image border for a full window are
// excluded up front; their matrix cells stay Unscored.
func (m *Matcher) Match(imgA, imgB *image.Gray, ptsA, ptsB []geometry.PointInt) (*Result, error) {
	if imgA == nil || imgB == nil {
		return nil, fmt.Errorf("nil image")
	}

	scores := NewScoreMatrix(len(ptsA), len(ptsB))

	eligibleB := make([]bool, len(ptsB))
	for j, p := range ptsB {
		eligibleB[j] = m.inBounds(imgB, p)
	}

	// Rows are independent: each worker scores a disjoint stripe of
	// first-image points, so the result is deterministic.
	numWorkers := runtime.NumCPU()
	perWorker := (len(ptsA) + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		start := w * perWorker
		end := min(start+perWorker, len(ptsA))
		if start >= len(ptsA) {
			break
		}

		wg.Add(1)
		go func(from, to int) {
			defer wg.Done()
			for i := from; i < to; i++ {
				if !m.inBounds(imgA, ptsA[i]) {
					continue
				}
				m.scoreRow(scores, i, imgA, imgB, ptsA[i], ptsB, eligibleB)
			}
		}(start, end)
	}
	wg.Wait()

	result := &Result{Scores: scores}
	for i := range ptsA {
		j := scores.RowArgMax(i)
		if j < 0 || scores.ColArgMax(j) != i {
			continue
		}
		result.A = append(result.A, ptsA[i])
		result.B = append(result.B, ptsB[j])
	}
	return result, nil
}

// scoreRow fills one row of the score matrix: the normalized window of p1
// against every eligible candidate of the second image.
func (m *Matcher) scoreRow(scores *ScoreMatrix, row int, imgA, imgB *image.Gray, p1 geometry.PointInt, ptsB []geometry.PointInt, eligibleB []bool) {
	w1 := m.window(imgA, p1)
	norm := l2(w1)
	for k := range w1 {
		w1[k] /= norm
	}

	maxDistSq := m.maxDist * m.maxDist
	for j, p2 := range ptsB {
		if !eligibleB[j] {
			continue
		}
		if m.maxDist > 0 && p1.DistanceSq(p2) > maxDistSq {
			continue
		}
		w2 := m.window(imgB, p2)
		var dot float32
		for k := range w1 {
			dot += w1[k] * w2[k]
		}
		scores.set(row, j, dot/l2(w2))
	}
}

// inBounds reports whether a full correlation window around p fits inside
// the image.
func (m *Matcher) inBounds(img *image.Gray, p geometry.PointInt) bool {
	w := img.Rect.Dx()
	h := img.Rect.Dy()
	return p.X >= m.radius && p.X < w-m.radius && p.Y >= m.radius && p.Y < h-m.radius
}

// window extracts the (2r+1)^2 pixel window centered on p as float samples.
func (m *Matcher) window(img *image.Gray, p geometry.PointInt) []float32 {
	side := 2*m.radius + 1
	out := make([]float32, 0, side*side)
	for y := p.Y - m.radius; y <= p.Y+m.radius; y++ {
		row := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
		for x := p.X - m.radius; x <= p.X+m.radius; x++ {
			out = append(out, float32(img.Pix[row+x]))
		}
	}
	return out
}

func l2(v []float32) float32 {
	var sum float32
	for _, s := range v {
		sum += s * s
	}
	return float32(math.Sqrt(float64(sum)))
}
