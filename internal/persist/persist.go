// Package persist stores recordings and correlation models on disk as opaque
// snapshots. Recordings use the .bo extension, models .mo; the on-disk layout
// is gob over flat value structs and carries no compatibility guarantee
// beyond round-tripping with the same build.
package persist

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"

	"brainrecon/pkg/brain"
	"brainrecon/pkg/locations"
	"brainrecon/pkg/model"
)

const (
	// BrainExt is the file extension for recording snapshots.
	BrainExt = ".bo"
	// ModelExt is the file extension for model snapshots.
	ModelExt = ".mo"
)

// brainSnapshot is the flat on-disk form of a brain.Brain.
type brainSnapshot struct {
	Rows, Cols int
	Data       []float64
	Locs       [][3]float64
	SampleRate float64
}

// modelSnapshot is the flat on-disk form of a model.Model.
type modelSnapshot struct {
	L           int
	Numerator   []float64
	Denominator []float64
	Locs        [][3]float64
	Subjects    int
}

// SaveBrain writes a recording snapshot to path, appending the .bo extension
// if missing.
func SaveBrain(path string, bo *brain.Brain) error {
	t, k := bo.Data.Dims()
	snap := brainSnapshot{
		Rows:       t,
		Cols:       k,
		Data:       append([]float64(nil), bo.Data.RawMatrix().Data...),
		Locs:       packLocs(bo.Locs),
		SampleRate: bo.SampleRate,
	}
	return write(ensureExt(path, BrainExt), snap)
}

// LoadBrain reads a recording snapshot written by SaveBrain.
func LoadBrain(path string) (*brain.Brain, error) {
	var snap brainSnapshot
	if err := read(path, &snap); err != nil {
		return nil, err
	}
	if len(snap.Data) != snap.Rows*snap.Cols {
		return nil, fmt.Errorf("persist: corrupt recording snapshot %s: %d values for %dx%d",
			filepath.Base(path), len(snap.Data), snap.Rows, snap.Cols)
	}
	return brain.New(mat.NewDense(snap.Rows, snap.Cols, snap.Data), unpackLocs(snap.Locs), snap.SampleRate)
}

// SaveModel writes a model snapshot to path, appending the .mo extension if
// missing.
func SaveModel(path string, m *model.Model) error {
	snap := modelSnapshot{
		L:           len(m.Locs),
		Numerator:   append([]float64(nil), m.Numerator.RawMatrix().Data...),
		Denominator: append([]float64(nil), m.Denominator.RawMatrix().Data...),
		Locs:        packLocs(m.Locs),
		Subjects:    m.Subjects,
	}
	return write(ensureExt(path, ModelExt), snap)
}

// LoadModel reads a model snapshot written by SaveModel.
func LoadModel(path string) (*model.Model, error) {
	var snap modelSnapshot
	if err := read(path, &snap); err != nil {
		return nil, err
	}
	if len(snap.Numerator) != snap.L*snap.L || len(snap.Denominator) != snap.L*snap.L {
		return nil, fmt.Errorf("persist: corrupt model snapshot %s", filepath.Base(path))
	}
	return &model.Model{
		Locs:        unpackLocs(snap.Locs),
		Numerator:   mat.NewDense(snap.L, snap.L, snap.Numerator),
		Denominator: mat.NewDense(snap.L, snap.L, snap.Denominator),
		Subjects:    snap.Subjects,
	}, nil
}

func write(path string, snap interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(snap); err != nil {
		return fmt.Errorf("persist: encoding %s: %w", filepath.Base(path), err)
	}
	return nil
}

func read(path string, snap interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	defer f.Close()

	if err := gob.NewDecoder(f).Decode(snap); err != nil {
		return fmt.Errorf("persist: decoding %s: %w", filepath.Base(path), err)
	}
	return nil
}

func ensureExt(path, ext string) string {
	if strings.EqualFold(filepath.Ext(path), ext) {
		return path
	}
	return path + ext
}

func packLocs(locs locations.Set) [][3]float64 {
	out := make([][3]float64, len(locs))
	for i, p := range locs {
		out[i] = [3]float64{p.X, p.Y, p.Z}
	}
	return out
}

func unpackLocs(packed [][3]float64) locations.Set {
	out := make(locations.Set, len(packed))
	for i, p := range packed {
		out[i] = locations.Point{X: p[0], Y: p[1], Z: p[2]}
	}
	return out
}
