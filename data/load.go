package data

import (
	"archive/zip"
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/tournox/tournox/pkg/errors"
)

// File names inside a tournament dataset archive.
const (
	TrainFile      = "numerai_training_data.csv"
	TournamentFile = "numerai_tournament_data.csv"
)

// LoadZip loads a tournament dataset archive: a zip holding the
// training and tournament CSV tables. Column names are remapped to
// the canonical era/region/feature/target form and the label columns
// are converted to the closed enumerations.
func LoadZip(path string) (*Data, error) {
	zf, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Wrap(err, "data.LoadZip: open archive")
	}
	defer zf.Close()

	train, err := readArchiveCSV(zf, TrainFile)
	if err != nil {
		return nil, err
	}
	tourn, err := readArchiveCSV(zf, TournamentFile)
	if err != nil {
		return nil, err
	}
	return train.Concat(tourn)
}

func readArchiveCSV(zf *zip.ReadCloser, name string) (*Data, error) {
	f, err := zf.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "data.LoadZip: open %s", name)
	}
	defer f.Close()
	d, err := ReadCSV(f)
	if err != nil {
		return nil, errors.Wrapf(err, "data.LoadZip: parse %s", name)
	}
	return d, nil
}

// ReadCSV parses one row-oriented dataset table. The header must hold
// an id column first, then "era", "data_type", the "featureN" columns
// and "target". Empty target cells become the missing marker.
func ReadCSV(r io.Reader) (*Data, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "data.ReadCSV: header")
	}
	eraCol, regionCol, targetCol := -1, -1, -1
	var featureCols []int
	for i, name := range header {
		switch {
		case name == "era":
			eraCol = i
		case name == "data_type":
			regionCol = i
		case name == "target":
			targetCol = i
		case strings.HasPrefix(name, "feature"):
			featureCols = append(featureCols, i)
		}
	}
	if eraCol < 0 || regionCol < 0 || targetCol < 0 {
		return nil, errors.NewValueError("data.ReadCSV", "missing era, data_type or target column")
	}
	if len(featureCols) == 0 {
		return nil, errors.NewValueError("data.ReadCSV", "no feature columns found")
	}

	var (
		ids     []string
		eras    []Era
		regions []Region
		xdata   []float64
		y       []float64
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "data.ReadCSV: record")
		}
		era, err := ParseEra(rec[eraCol])
		if err != nil {
			return nil, err
		}
		region, err := ParseRegion(rec[regionCol])
		if err != nil {
			return nil, err
		}
		ids = append(ids, rec[0])
		eras = append(eras, era)
		regions = append(regions, region)
		for _, c := range featureCols {
			v, err := strconv.ParseFloat(rec[c], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "data.ReadCSV: feature value %q", rec[c])
			}
			xdata = append(xdata, v)
		}
		if rec[targetCol] == "" {
			y = append(y, math.NaN())
		} else {
			v, err := strconv.ParseFloat(rec[targetCol], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "data.ReadCSV: target value %q", rec[targetCol])
			}
			y = append(y, v)
		}
	}
	return newChecked(ids, eras, regions, xdata, len(featureCols), y)
}
