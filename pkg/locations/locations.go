// Package locations manages the ordered set of reference brain locations that
// defines the index space of a correlation model. It provides atlas loading,
// pairwise distances, and nearest-location matching between recorded electrode
// coordinates and model locations.
package locations

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// Point is a 3D coordinate in the anatomical reference space (mm).
type Point struct {
	X, Y, Z float64
}

// Compare implements the kdtree.Comparable interface.
func (p Point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(indexedPoint)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	case 2:
		return p.Z - q.Z
	default:
		panic("locations: illegal dimension")
	}
}

// Dims returns the number of spatial dimensions.
func (p Point) Dims() int { return 3 }

// Distance returns the squared Euclidean distance to c.
func (p Point) Distance(c kdtree.Comparable) float64 {
	q := c.(indexedPoint)
	dx := p.X - q.X
	dy := p.Y - q.Y
	dz := p.Z - q.Z
	return dx*dx + dy*dy + dz*dz
}

// indexedPoint carries the position of a point within its Set so that
// KD-tree query results can be mapped back to model indices.
type indexedPoint struct {
	Point
	idx int
}

func (p indexedPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.Point.Compare(c, d)
}

func (p indexedPoint) Distance(c kdtree.Comparable) float64 {
	return p.Point.Distance(c)
}

// indexedPoints satisfies kdtree.Interface.
type indexedPoints []indexedPoint

func (p indexedPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p indexedPoints) Len() int                              { return len(p) }
func (p indexedPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

func (p indexedPoints) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(pointPlane{indexedPoints: p, Dim: d}, kdtree.MedianOfRandoms(pointPlane{indexedPoints: p, Dim: d}, 100))
}

// pointPlane implements sort.Interface and kdtree.SortSlicer for indexedPoints.
type pointPlane struct {
	indexedPoints
	kdtree.Dim
}

func (p pointPlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.indexedPoints[i].X < p.indexedPoints[j].X
	case 1:
		return p.indexedPoints[i].Y < p.indexedPoints[j].Y
	case 2:
		return p.indexedPoints[i].Z < p.indexedPoints[j].Z
	default:
		panic("locations: illegal dimension")
	}
}

func (p pointPlane) Slice(start, end int) kdtree.SortSlicer {
	return pointPlane{indexedPoints: p.indexedPoints[start:end], Dim: p.Dim}
}

func (p pointPlane) Swap(i, j int) {
	p.indexedPoints[i], p.indexedPoints[j] = p.indexedPoints[j], p.indexedPoints[i]
}

// Set is an ordered collection of reference locations. The position of a
// point in the Set is its index in the correlation model.
type Set []Point

// Subset returns the locations at the given indices, in the given order.
func (s Set) Subset(indices []int) (Set, error) {
	out := make(Set, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= len(s) {
			return nil, fmt.Errorf("locations: index %d out of range [0, %d)", idx, len(s))
		}
		out[i] = s[idx]
	}
	return out, nil
}

// Distances returns the pairwise Euclidean distance matrix of the set.
func (s Set) Distances() *mat.SymDense {
	n := len(s)
	d := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dx := s[i].X - s[j].X
			dy := s[i].Y - s[j].Y
			dz := s[i].Z - s[j].Z
			d.SetSym(i, j, math.Sqrt(dx*dx+dy*dy+dz*dz))
		}
	}
	return d
}

// NearestIndices maps each query point to the index of its nearest location
// in the set. Electrode coordinates rarely coincide exactly with atlas
// locations, so matching is always by nearest neighbor.
func (s Set) NearestIndices(query Set) ([]int, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("locations: empty reference set")
	}
	pts := make(indexedPoints, len(s))
	for i, p := range s {
		pts[i] = indexedPoint{Point: p, idx: i}
	}
	tree := kdtree.New(pts, true)

	out := make([]int, len(query))
	for i, q := range query {
		got, _ := tree.Nearest(q)
		ip, ok := got.(indexedPoint)
		if !ok {
			return nil, fmt.Errorf("locations: nearest neighbor search failed for point %d", i)
		}
		out[i] = ip.idx
	}
	return out, nil
}

// Grid builds a regular nx×ny×nz lattice of locations with the given spacing.
// Used by the simulation harness when no atlas file is supplied.
func Grid(nx, ny, nz int, spacing float64) Set {
	s := make(Set, 0, nx*ny*nz)
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				s = append(s, Point{
					X: float64(x) * spacing,
					Y: float64(y) * spacing,
					Z: float64(z) * spacing,
				})
			}
		}
	}
	return s
}

// Load reads an atlas file with one location per line as whitespace- or
// comma-separated x y z coordinates. Blank lines and lines starting with '#'
// are skipped.
func Load(path string) (Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("locations: opening atlas: %w", err)
	}
	defer f.Close()

	var s Set
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.FieldsFunc(line, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
		if len(fields) != 3 {
			return nil, fmt.Errorf("locations: line %d: expected 3 coordinates, got %d", lineNo, len(fields))
		}
		var coords [3]float64
		for i, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("locations: line %d: %w", lineNo, err)
			}
			coords[i] = v
		}
		s = append(s, Point{X: coords[0], Y: coords[1], Z: coords[2]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("locations: reading atlas: %w", err)
	}
	if len(s) == 0 {
		return nil, fmt.Errorf("locations: no locations found in %s", path)
	}
	return s, nil
}
