// Package split implements the fit/predict partitioning strategies.
//
// A Splitter walks a fixed sequence of (fit, predict) pairs over one
// Row Store. The sequence is fully determined at construction: any
// randomness is drawn once from a seeded generator into a stored plan,
// so Reset followed by re-iteration replays identical pairs. Within
// one full pass no row id ever appears in more than one predict
// subset.
package split

import (
	"iter"
	"math/rand/v2"
	"sort"

	"github.com/tournox/tournox/data"
	"github.com/tournox/tournox/pkg/errors"
)

// Splitter produces successive (fit, predict) pairs from a Row Store.
type Splitter interface {
	// Next advances the cursor and returns the next pair. ok is false
	// once the sequence is exhausted.
	Next() (fit, predict *data.Data, ok bool)
	// Reset rewinds the cursor to the start of the same sequence.
	Reset()
}

// Pairs adapts a splitter to a range-over-func sequence of one pass.
func Pairs(s Splitter) iter.Seq2[*data.Data, *data.Data] {
	return func(yield func(*data.Data, *data.Data) bool) {
		for {
			fit, predict, ok := s.Next()
			if !ok {
				return
			}
			if !yield(fit, predict) {
				return
			}
		}
	}
}

// maskPair is one planned partition, as row masks over the source store.
type maskPair struct {
	fit     []bool
	predict []bool
}

// plan is the shared cursor machinery of every splitter.
type plan struct {
	d     *data.Data
	pairs []maskPair
	pos   int
}

func (p *plan) Next() (fit, predict *data.Data, ok bool) {
	if p.pos >= len(p.pairs) {
		return nil, nil, false
	}
	mp := p.pairs[p.pos]
	p.pos++
	fit, _ = p.d.Filter(mp.fit)
	predict, _ = p.d.Filter(mp.predict)
	return fit, predict, true
}

func (p *plan) Reset() {
	p.pos = 0
}

func regionMask(d *data.Data, in bool, regions ...data.Region) []bool {
	set := make(map[data.Region]struct{}, len(regions))
	for _, r := range regions {
		set[r] = struct{}{}
	}
	mask := make([]bool, d.Len())
	for i, r := range d.Regions() {
		_, member := set[r]
		mask[i] = member == in
	}
	return mask
}

// Tournament yields a single pair: fit on the train region, predict
// on every tournament region.
type Tournament struct {
	plan
}

// NewTournament constructs the production splitter.
func NewTournament(d *data.Data) *Tournament {
	s := &Tournament{plan{d: d}}
	s.pairs = []maskPair{{
		fit:     regionMask(d, true, data.Train),
		predict: regionMask(d, true, data.TournamentRegions...),
	}}
	return s
}

func (s *Tournament) String() string { return "Tournament" }

// ValidationSplit yields a single pair: fit on the train region,
// predict on the validation region only.
type ValidationSplit struct {
	plan
}

// NewValidation constructs the validation splitter.
func NewValidation(d *data.Data) *ValidationSplit {
	s := &ValidationSplit{plan{d: d}}
	s.pairs = []maskPair{{
		fit:     regionMask(d, true, data.Train),
		predict: regionMask(d, true, data.Validation),
	}}
	return s
}

func (s *ValidationSplit) String() string { return "Validation" }

// Cheat yields a single pair fitting on every non-live row, including
// validation and test. Diagnostic use only; it is not a valid
// evaluation protocol.
type Cheat struct {
	plan
}

// NewCheat constructs the cheat splitter.
func NewCheat(d *data.Data) *Cheat {
	s := &Cheat{plan{d: d}}
	s.pairs = []maskPair{{
		fit:     regionMask(d, false, data.Live),
		predict: regionMask(d, true, data.Live),
	}}
	return s
}

func (s *Cheat) String() string { return "Cheat" }

// foldSizes splits n items into k contiguous chunks, larger first.
func foldSizes(n, k int) []int {
	sizes := make([]int, k)
	base := n / k
	rem := n % k
	for i := range sizes {
		sizes[i] = base
		if i < rem {
			sizes[i]++
		}
	}
	return sizes
}

// CV is the k-fold cross-validation splitter over train-region eras.
// Eras are shuffled once (seeded) and divided into kfold groups; each
// fold predicts its group's rows and fits on the train rows of every
// other group. With trainOnly false the fold's predict subset covers
// all regions whose era falls in the group, while fitting still uses
// train rows only.
type CV struct {
	plan
}

// NewCV constructs a k-fold era splitter.
func NewCV(d *data.Data, kfold int, seed uint64, trainOnly bool) (*CV, error) {
	if kfold < 2 {
		return nil, errors.NewValueError("split.NewCV", "kfold must be at least 2")
	}
	trainEras := d.RegionsIn(data.Train).UniqueEras()
	if len(trainEras) < kfold {
		return nil, errors.NewValueError("split.NewCV", "fewer train eras than folds")
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	shuffled := make([]data.Era, len(trainEras))
	for i, p := range rng.Perm(len(trainEras)) {
		shuffled[i] = trainEras[p]
	}

	eras := d.Eras()
	regions := d.Regions()
	s := &CV{plan{d: d}}
	start := 0
	for _, size := range foldSizes(len(shuffled), kfold) {
		group := make(map[data.Era]struct{}, size)
		for _, e := range shuffled[start : start+size] {
			group[e] = struct{}{}
		}
		start += size
		fit := make([]bool, d.Len())
		predict := make([]bool, d.Len())
		for i := range fit {
			_, inGroup := group[eras[i]]
			isTrain := regions[i] == data.Train
			if trainOnly {
				fit[i] = isTrain && !inGroup
				predict[i] = isTrain && inGroup
			} else {
				fit[i] = isTrain && !inGroup
				predict[i] = inGroup
			}
		}
		s.pairs = append(s.pairs, maskPair{fit: fit, predict: predict})
	}
	return s, nil
}

func (s *CV) String() string { return "CV" }

// IgnoreEraCV is k-fold cross-validation over individual train rows,
// ignoring era grouping.
type IgnoreEraCV struct {
	plan
}

// NewIgnoreEraCV constructs a row-level k-fold splitter.
func NewIgnoreEraCV(d *data.Data, kfold int, seed uint64) (*IgnoreEraCV, error) {
	if kfold < 2 {
		return nil, errors.NewValueError("split.NewIgnoreEraCV", "kfold must be at least 2")
	}
	var trainIdx []int
	for i, r := range d.Regions() {
		if r == data.Train {
			trainIdx = append(trainIdx, i)
		}
	}
	if len(trainIdx) < kfold {
		return nil, errors.NewValueError("split.NewIgnoreEraCV", "fewer train rows than folds")
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	shuffled := make([]int, len(trainIdx))
	for i, p := range rng.Perm(len(trainIdx)) {
		shuffled[i] = trainIdx[p]
	}

	s := &IgnoreEraCV{plan{d: d}}
	start := 0
	for _, size := range foldSizes(len(shuffled), kfold) {
		hold := make(map[int]struct{}, size)
		for _, row := range shuffled[start : start+size] {
			hold[row] = struct{}{}
		}
		start += size
		fit := make([]bool, d.Len())
		predict := make([]bool, d.Len())
		for _, row := range trainIdx {
			if _, held := hold[row]; held {
				predict[row] = true
			} else {
				fit[row] = true
			}
		}
		s.pairs = append(s.pairs, maskPair{fit: fit, predict: predict})
	}
	return s, nil
}

func (s *IgnoreEraCV) String() string { return "IgnoreEraCV" }

// SingleSplit yields one random split of the train rows into a fit
// part of the requested fraction and a predict part of the remainder.
type SingleSplit struct {
	plan
}

// NewSplit constructs a single random fit/predict splitter.
func NewSplit(d *data.Data, fitFraction float64, seed uint64) (*SingleSplit, error) {
	if fitFraction <= 0 || fitFraction >= 1 {
		return nil, errors.NewValueError("split.NewSplit", "fitFraction must be in (0, 1)")
	}
	var trainIdx []int
	for i, r := range d.Regions() {
		if r == data.Train {
			trainIdx = append(trainIdx, i)
		}
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	nfit := int(fitFraction * float64(len(trainIdx)))
	fit := make([]bool, d.Len())
	predict := make([]bool, d.Len())
	for i, p := range rng.Perm(len(trainIdx)) {
		if i < nfit {
			fit[trainIdx[p]] = true
		} else {
			predict[trainIdx[p]] = true
		}
	}
	s := &SingleSplit{plan{d: d}}
	s.pairs = []maskPair{{fit: fit, predict: predict}}
	return s, nil
}

func (s *SingleSplit) String() string { return "Split" }

// Roll is a sliding-window splitter over chronologically ordered
// eras: fit on fitWindow consecutive eras, predict on the next
// predictWindow eras, advancing by step eras per pair. Rows without
// an assigned era (EraX) never take part.
type Roll struct {
	plan
}

// NewRoll constructs a rolling-window splitter. step must be at least
// predictWindow so that no era is predicted twice within one pass.
func NewRoll(d *data.Data, fitWindow, predictWindow, step int) (*Roll, error) {
	if fitWindow < 1 || predictWindow < 1 || step < 1 {
		return nil, errors.NewValueError("split.NewRoll", "windows and step must be positive")
	}
	if step < predictWindow {
		return nil, errors.NewValueError("split.NewRoll", "step below predictWindow would predict an era twice")
	}
	var eras []data.Era
	for _, e := range d.UniqueEras() {
		if e != data.EraX {
			eras = append(eras, e)
		}
	}
	sort.Slice(eras, func(a, b int) bool { return eras[a] < eras[b] })

	rowEras := d.Eras()
	s := &Roll{plan{d: d}}
	for start := 0; start+fitWindow+predictWindow <= len(eras); start += step {
		fitEras := make(map[data.Era]struct{}, fitWindow)
		for _, e := range eras[start : start+fitWindow] {
			fitEras[e] = struct{}{}
		}
		predictEras := make(map[data.Era]struct{}, predictWindow)
		for _, e := range eras[start+fitWindow : start+fitWindow+predictWindow] {
			predictEras[e] = struct{}{}
		}
		fit := make([]bool, d.Len())
		predict := make([]bool, d.Len())
		for i, e := range rowEras {
			if _, ok := fitEras[e]; ok {
				fit[i] = true
			} else if _, ok := predictEras[e]; ok {
				predict[i] = true
			}
		}
		s.pairs = append(s.pairs, maskPair{fit: fit, predict: predict})
	}
	return s, nil
}

func (s *Roll) String() string { return "Roll" }
