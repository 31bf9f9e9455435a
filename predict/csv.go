package predict

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/tournox/tournox/pkg/errors"
)

// WriteCSV writes a single-column ledger in submission format:
// a header row of "id,<model>" followed by one row per identity.
// Values are written at full precision so a read round-trips exactly.
func (p *Prediction) WriteCSV(w io.Writer) error {
	if len(p.names) == 0 {
		return errors.NewEmptyOperationError("Prediction.WriteCSV")
	}
	if len(p.names) != 1 {
		return errors.NewValueError("Prediction.WriteCSV", "submission format holds exactly one model column")
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", p.names[0]}); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	col := p.cols[0]
	for i, id := range p.ids {
		v := ""
		if !math.IsNaN(col[i]) {
			v = strconv.FormatFloat(col[i], 'g', -1, 64)
		}
		if err := cw.Write([]string{id, v}); err != nil {
			return errors.Wrap(err, "write csv row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}

// SaveCSV writes the ledger to a file in submission format.
func (p *Prediction) SaveCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create csv file")
	}
	defer f.Close()
	if err := p.WriteCSV(f); err != nil {
		return err
	}
	return errors.Wrap(f.Close(), "close csv file")
}

// ReadCSV reads a single-column submission file written by WriteCSV.
// The model name is taken from the header; empty cells become NaN.
func ReadCSV(r io.Reader) (*Prediction, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read csv header")
	}
	if len(header) != 2 || header[0] != "id" {
		return nil, errors.NewValueError("predict.ReadCSV", "expected header of id,<model>")
	}
	var ids []string
	var yhat []float64
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read csv row")
		}
		v := math.NaN()
		if rec[1] != "" {
			v, err = strconv.ParseFloat(rec[1], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "parse value for id %s", rec[0])
			}
		}
		ids = append(ids, rec[0])
		yhat = append(yhat, v)
	}
	return NewPrediction().MergeArrays(ids, yhat, header[1])
}

// LoadCSV reads a submission file from disk.
func LoadCSV(path string) (*Prediction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open csv file")
	}
	defer f.Close()
	return ReadCSV(f)
}
