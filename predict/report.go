package predict

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/tournox/tournox/data"
	"github.com/tournox/tournox/metrics"
	"github.com/tournox/tournox/pkg/errors"
)

// joined holds one model column inner-joined to ground truth by id.
type joinedRows struct {
	yTrue   []float64
	yPred   []float64
	eras    []data.Era
	regions []data.Region
}

// join inner-joins one model column with a ground-truth store. Row
// order follows the store. Rows the ledger has no value for are
// dropped; rows with a missing target are kept (metrics skip them).
func (p *Prediction) join(d *data.Data, col int) joinedRows {
	var out joinedRows
	ids := d.IDs()
	y := d.Y()
	eras := d.Eras()
	regions := d.Regions()
	for i, id := range ids {
		row, ok := p.index[id]
		if !ok || math.IsNaN(p.cols[col][row]) {
			continue
		}
		out.yTrue = append(out.yTrue, y[i])
		out.yPred = append(out.yPred, p.cols[col][row])
		out.eras = append(out.eras, eras[i])
		out.regions = append(out.regions, regions[i])
	}
	return out
}

// perEra computes a metric once per distinct era of the joined rows.
func (j joinedRows) perEra(metric func(yTrue, yPred []float64) (float64, error)) []float64 {
	var out []float64
	seen := make(map[data.Era]struct{})
	for _, e := range j.eras {
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		var t, p []float64
		for i, ei := range j.eras {
			if ei == e {
				t = append(t, j.yTrue[i])
				p = append(p, j.yPred[i])
			}
		}
		v, err := metric(t, p)
		if err != nil {
			v = math.NaN()
		}
		out = append(out, v)
	}
	return out
}

// PerformanceRow holds the standard metrics for one model column.
type PerformanceRow struct {
	Model       string
	Rows        int
	LogLoss     float64
	Corr        float64
	RankCorr    float64
	Acc         float64
	AUC         float64
	YStd        float64
	Sharpe      float64
	Consistency float64
}

// PerformanceTable is a sortable per-model metric report.
type PerformanceTable struct {
	Rows []PerformanceRow
}

func (t *PerformanceTable) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-16s%8s%8s%8s%8s%8s%8s%8s%8s%8s\n", "model", "rows", "logloss", "corr", "rcorr", "acc", "auc", "ystd", "sharpe", "consis")
	for _, r := range t.Rows {
		fmt.Fprintf(&b, "%-16s%8d%8.4f%8.4f%8.4f%8.4f%8.4f%8.4f%8.4f%8.4f\n",
			r.Model, r.Rows, r.LogLoss, r.Corr, r.RankCorr, r.Acc, r.AUC, r.YStd, r.Sharpe, r.Consistency)
	}
	return b.String()
}

func performanceRow(name string, j joinedRows) PerformanceRow {
	row := PerformanceRow{Model: name, Rows: len(j.yPred)}
	if len(j.yPred) == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("performance", name, "empty overlap with ground truth"))
		row.LogLoss, row.Corr, row.RankCorr = math.NaN(), math.NaN(), math.NaN()
		row.Acc, row.AUC, row.YStd = math.NaN(), math.NaN(), math.NaN()
		row.Sharpe, row.Consistency = math.NaN(), math.NaN()
		return row
	}
	row.LogLoss = metricOrNaN(metrics.LogLoss, j)
	row.Corr = metricOrNaN(metrics.Corr, j)
	row.RankCorr = metricOrNaN(metrics.RankCorr, j)
	row.Acc = metricOrNaN(metrics.Accuracy, j)
	row.AUC = metricOrNaN(metrics.AUC, j)
	row.YStd = metrics.YStd(j.yPred)
	perEraCorr := j.perEra(metrics.Corr)
	perEraLoss := j.perEra(metrics.LogLoss)
	row.Sharpe = metrics.Sharpe(perEraCorr)
	row.Consistency = metrics.Consistency(perEraLoss)
	return row
}

func metricOrNaN(metric func(yTrue, yPred []float64) (float64, error), j joinedRows) float64 {
	v, err := metric(j.yTrue, j.yPred)
	if err != nil {
		return math.NaN()
	}
	return v
}

// Performance computes the standard metrics for every model column
// against a ground-truth store, inner-joined by identity. sortBy
// orders the table ("logloss", "corr", "rankcorr", "acc", "auc",
// "ystd", "sharpe", "consis"); better values come first.
func (p *Prediction) Performance(d *data.Data, sortBy string) (*PerformanceTable, error) {
	key, ascending, err := performanceKey(sortBy)
	if err != nil {
		return nil, err
	}
	t := &PerformanceTable{}
	for j, name := range p.names {
		t.Rows = append(t.Rows, performanceRow(name, p.join(d, j)))
	}
	sort.SliceStable(t.Rows, func(a, b int) bool {
		va, vb := key(t.Rows[a]), key(t.Rows[b])
		if math.IsNaN(vb) {
			return !math.IsNaN(va)
		}
		if math.IsNaN(va) {
			return false
		}
		if ascending {
			return va < vb
		}
		return va > vb
	})
	return t, nil
}

func performanceKey(sortBy string) (func(PerformanceRow) float64, bool, error) {
	switch sortBy {
	case "", "logloss":
		return func(r PerformanceRow) float64 { return r.LogLoss }, true, nil
	case "corr":
		return func(r PerformanceRow) float64 { return r.Corr }, false, nil
	case "rankcorr":
		return func(r PerformanceRow) float64 { return r.RankCorr }, false, nil
	case "acc":
		return func(r PerformanceRow) float64 { return r.Acc }, false, nil
	case "auc":
		return func(r PerformanceRow) float64 { return r.AUC }, false, nil
	case "ystd":
		return func(r PerformanceRow) float64 { return r.YStd }, false, nil
	case "sharpe":
		return func(r PerformanceRow) float64 { return r.Sharpe }, false, nil
	case "consis":
		return func(r PerformanceRow) float64 { return r.Consistency }, false, nil
	}
	return nil, false, errors.NewValueError("Prediction.Performance", "unknown sort key: "+sortBy)
}

// SummaryRow condenses one model's standing against ground truth.
type SummaryRow struct {
	Model       string
	Rows        int
	Eras        int
	LogLoss     float64
	Corr        float64
	Acc         float64
	Consistency float64
}

// SummaryTable is the compact per-model report the run driver prints.
type SummaryTable struct {
	Rows []SummaryRow
}

func (t *SummaryTable) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-16s%8s%8s%10s%8s%8s%8s\n", "model", "rows", "eras", "logloss", "corr", "acc", "consis")
	for _, r := range t.Rows {
		fmt.Fprintf(&b, "%-16s%8d%8d%10.6f%8.4f%8.4f%8.4f\n",
			r.Model, r.Rows, r.Eras, r.LogLoss, r.Corr, r.Acc, r.Consistency)
	}
	return b.String()
}

// Summary reports rows, era coverage and headline metrics per model.
func (p *Prediction) Summary(d *data.Data) *SummaryTable {
	t := &SummaryTable{}
	for j, name := range p.names {
		jr := p.join(d, j)
		eras := make(map[data.Era]struct{})
		for _, e := range jr.eras {
			eras[e] = struct{}{}
		}
		row := SummaryRow{Model: name, Rows: len(jr.yPred), Eras: len(eras)}
		if len(jr.yPred) == 0 {
			errors.Warn(errors.NewUndefinedMetricWarning("summary", name, "empty overlap with ground truth"))
			row.LogLoss, row.Corr, row.Acc = math.NaN(), math.NaN(), math.NaN()
			row.Consistency = math.NaN()
		} else {
			row.LogLoss = metricOrNaN(metrics.LogLoss, jr)
			row.Corr = metricOrNaN(metrics.Corr, jr)
			row.Acc = metricOrNaN(metrics.Accuracy, jr)
			row.Consistency = metrics.Consistency(jr.perEra(metrics.LogLoss))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// originalityThreshold is the correlation above which a model is
// considered a duplicate of an already submitted one.
const originalityThreshold = 0.95

// OriginalityRow relates one candidate model to the submitted set.
type OriginalityRow struct {
	Model       string
	MaxCorr     float64
	MaxRankCorr float64
	Original    bool
}

// OriginalityTable reports which candidate models are original.
type OriginalityTable struct {
	Rows []OriginalityRow
}

func (t *OriginalityTable) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-16s%10s%10s%10s\n", "model", "corr", "rcorr", "original")
	for _, r := range t.Rows {
		fmt.Fprintf(&b, "%-16s%10.4f%10.4f%10t\n", r.Model, r.MaxCorr, r.MaxRankCorr, r.Original)
	}
	return b.String()
}

// Originality measures, for every model not in submitted, the highest
// correlation with any submitted model. A model is original when both
// the Pearson and the rank correlation stay below the threshold.
func (p *Prediction) Originality(submitted []string) (*OriginalityTable, error) {
	if len(p.names) == 0 {
		return nil, errors.NewEmptyOperationError("Prediction.Originality")
	}
	sub := make(map[string]struct{}, len(submitted))
	for _, n := range submitted {
		if p.colIndex(n) < 0 {
			return nil, errors.NewUnknownColumnError("Prediction.Originality", n, p.names)
		}
		sub[n] = struct{}{}
	}
	t := &OriginalityTable{}
	for j, name := range p.names {
		if _, isSub := sub[name]; isSub {
			continue
		}
		maxCorr, maxRank := math.Inf(-1), math.Inf(-1)
		for _, s := range submitted {
			k := p.colIndex(s)
			c, err := metrics.Corr(p.cols[j], p.cols[k])
			if err == nil && c > maxCorr {
				maxCorr = c
			}
			rc, err := metrics.RankCorr(p.cols[j], p.cols[k])
			if err == nil && rc > maxRank {
				maxRank = rc
			}
		}
		t.Rows = append(t.Rows, OriginalityRow{
			Model:       name,
			MaxCorr:     maxCorr,
			MaxRankCorr: maxRank,
			Original:    maxCorr < originalityThreshold && maxRank < originalityThreshold,
		})
	}
	return t, nil
}

// DominanceRow reports how often a model beats its rivals era by era.
type DominanceRow struct {
	Model     string
	Dominance float64 // mean fraction of eras won against each rival
}

// DominanceTable ranks models by pairwise era wins.
type DominanceTable struct {
	Rows []DominanceRow
}

func (t *DominanceTable) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-16s%10s\n", "model", "dominance")
	for _, r := range t.Rows {
		fmt.Fprintf(&b, "%-16s%10.4f\n", r.Model, r.Dominance)
	}
	return b.String()
}

// Dominance compares every model against every other: for each rival,
// the fraction of shared eras where the model's log loss is lower,
// averaged over rivals. Needs at least two columns.
func (p *Prediction) Dominance(d *data.Data) (*DominanceTable, error) {
	if len(p.names) < 2 {
		return nil, errors.NewValueError("Prediction.Dominance", "need at least two model columns")
	}
	perEra := make([]map[data.Era]float64, len(p.names))
	for j := range p.names {
		jr := p.join(d, j)
		losses := jr.perEra(metrics.LogLoss)
		byEra := make(map[data.Era]float64)
		seen := make(map[data.Era]struct{})
		k := 0
		for _, e := range jr.eras {
			if _, ok := seen[e]; ok {
				continue
			}
			seen[e] = struct{}{}
			byEra[e] = losses[k]
			k++
		}
		perEra[j] = byEra
	}
	t := &DominanceTable{}
	for j, name := range p.names {
		var fractions []float64
		for k := range p.names {
			if k == j {
				continue
			}
			wins, total := 0, 0
			for era, loss := range perEra[j] {
				rival, ok := perEra[k][era]
				if !ok || math.IsNaN(loss) || math.IsNaN(rival) {
					continue
				}
				total++
				if loss < rival {
					wins++
				}
			}
			if total > 0 {
				fractions = append(fractions, float64(wins)/float64(total))
			}
		}
		dom := math.NaN()
		if len(fractions) > 0 {
			var sum float64
			for _, f := range fractions {
				sum += f
			}
			dom = sum / float64(len(fractions))
		}
		t.Rows = append(t.Rows, DominanceRow{Model: name, Dominance: dom})
	}
	sort.SliceStable(t.Rows, func(a, b int) bool { return t.Rows[a].Dominance > t.Rows[b].Dominance })
	return t, nil
}

// concordanceThreshold is the maximum distribution distance between
// regions for a model to count as concordant.
const concordanceThreshold = 0.12

// ConcordanceRow reports distributional agreement across regions.
type ConcordanceRow struct {
	Model      string
	KS         float64 // worst Kolmogorov-Smirnov distance across region pairs
	Concordant bool
}

// ConcordanceTable reports whether each model's validation, test and
// live predictions look like they come from the same model.
type ConcordanceTable struct {
	Rows []ConcordanceRow
}

func (t *ConcordanceTable) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-16s%10s%12s\n", "model", "ks", "concordant")
	for _, r := range t.Rows {
		fmt.Fprintf(&b, "%-16s%10.4f%12t\n", r.Model, r.KS, r.Concordant)
	}
	return b.String()
}

// ksDistance is the two-sample Kolmogorov-Smirnov statistic.
func ksDistance(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return math.NaN()
	}
	as := append([]float64(nil), a...)
	bs := append([]float64(nil), b...)
	sort.Float64s(as)
	sort.Float64s(bs)
	var max float64
	i, j := 0, 0
	for i < len(as) && j < len(bs) {
		// equal values advance both sides so ties do not separate
		v := math.Min(as[i], bs[j])
		for i < len(as) && as[i] == v {
			i++
		}
		for j < len(bs) && bs[j] == v {
			j++
		}
		d := math.Abs(float64(i)/float64(len(as)) - float64(j)/float64(len(bs)))
		if d > max {
			max = d
		}
	}
	return max
}

// Concordance checks that each model's prediction distribution is
// consistent across the tournament regions.
func (p *Prediction) Concordance(d *data.Data) (*ConcordanceTable, error) {
	if len(p.names) == 0 {
		return nil, errors.NewEmptyOperationError("Prediction.Concordance")
	}
	t := &ConcordanceTable{}
	for j, name := range p.names {
		jr := p.join(d, j)
		byRegion := make(map[data.Region][]float64)
		for i, r := range jr.regions {
			byRegion[r] = append(byRegion[r], jr.yPred[i])
		}
		worst := math.Inf(-1)
		pairs := 0
		regions := data.TournamentRegions
		for a := 0; a < len(regions); a++ {
			for b := a + 1; b < len(regions); b++ {
				da, db := byRegion[regions[a]], byRegion[regions[b]]
				if len(da) == 0 || len(db) == 0 {
					continue
				}
				pairs++
				if ks := ksDistance(da, db); ks > worst {
					worst = ks
				}
			}
		}
		if pairs == 0 {
			errors.Warn(errors.NewUndefinedMetricWarning("concordance", name, "fewer than two tournament regions with rows"))
			t.Rows = append(t.Rows, ConcordanceRow{Model: name, KS: math.NaN()})
			continue
		}
		t.Rows = append(t.Rows, ConcordanceRow{Model: name, KS: worst, Concordant: worst < concordanceThreshold})
	}
	return t, nil
}

// CompareRow is pairwise agreement between two model columns.
type CompareRow struct {
	Model    string
	Other    string
	Corr     float64
	RankCorr float64
}

// CompareTable relates every model of one ledger to every model of
// another over the rows of a shared ground-truth store.
type CompareTable struct {
	Rows []CompareRow
}

func (t *CompareTable) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-16s%-16s%8s%8s\n", "model", "other", "corr", "rcorr")
	for _, r := range t.Rows {
		fmt.Fprintf(&b, "%-16s%-16s%8.4f%8.4f\n", r.Model, r.Other, r.Corr, r.RankCorr)
	}
	return b.String()
}

// Compare correlates each of the receiver's columns with each of the
// other ledger's columns over the ids of d present in both ledgers.
func (p *Prediction) Compare(d *data.Data, other *Prediction) *CompareTable {
	t := &CompareTable{}
	ids := d.IDs()
	for j, name := range p.names {
		for k, otherName := range other.names {
			var a, b []float64
			for _, id := range ids {
				pi, ok1 := p.index[id]
				oi, ok2 := other.index[id]
				if !ok1 || !ok2 {
					continue
				}
				a = append(a, p.cols[j][pi])
				b = append(b, other.cols[k][oi])
			}
			row := CompareRow{Model: name, Other: otherName, Corr: math.NaN(), RankCorr: math.NaN()}
			if c, err := metrics.Corr(a, b); err == nil {
				row.Corr = c
			}
			if rc, err := metrics.RankCorr(a, b); err == nil {
				row.RankCorr = rc
			}
			t.Rows = append(t.Rows, row)
		}
	}
	return t
}

// CheckRow is the combined pre-submission report for one model.
type CheckRow struct {
	Performance PerformanceRow
	Concordance ConcordanceRow
	Originality OriginalityRow
}

// CheckTable is the pre-submission report.
type CheckTable struct {
	Rows []CheckRow
}

func (t *CheckTable) String() string {
	var b strings.Builder
	for _, r := range t.Rows {
		fmt.Fprintf(&b, "%s: logloss %.6f, consis %.4f, ks %.4f, original %t\n",
			r.Performance.Model, r.Performance.LogLoss, r.Performance.Consistency,
			r.Concordance.KS, r.Originality.Original)
	}
	return b.String()
}

// Check runs performance, concordance and originality for the named
// models, treating every other column as already submitted.
func (p *Prediction) Check(names []string, d *data.Data) (*CheckTable, error) {
	if len(p.names) == 0 {
		return nil, errors.NewEmptyOperationError("Prediction.Check")
	}
	var submitted []string
	requested := make(map[string]struct{}, len(names))
	for _, n := range names {
		if p.colIndex(n) < 0 {
			return nil, errors.NewUnknownColumnError("Prediction.Check", n, p.names)
		}
		requested[n] = struct{}{}
	}
	for _, n := range p.names {
		if _, ok := requested[n]; !ok {
			submitted = append(submitted, n)
		}
	}
	perf, err := p.Performance(d, "")
	if err != nil {
		return nil, err
	}
	conc, err := p.Concordance(d)
	if err != nil {
		return nil, err
	}
	var orig *OriginalityTable
	if len(submitted) > 0 {
		orig, err = p.Originality(submitted)
		if err != nil {
			return nil, err
		}
	}
	t := &CheckTable{}
	for _, n := range names {
		var row CheckRow
		for _, pr := range perf.Rows {
			if pr.Model == n {
				row.Performance = pr
			}
		}
		for _, cr := range conc.Rows {
			if cr.Model == n {
				row.Concordance = cr
			}
		}
		if orig != nil {
			for _, or := range orig.Rows {
				if or.Model == n {
					row.Originality = or
				}
			}
		} else {
			row.Originality = OriginalityRow{Model: n, MaxCorr: math.NaN(), MaxRankCorr: math.NaN(), Original: true}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Correlation writes the pairwise correlation of all model columns.
func (p *Prediction) Correlation(w io.Writer) {
	for j, name := range p.names {
		fmt.Fprintf(w, "%s\n", name)
		for k, other := range p.names {
			if k == j {
				continue
			}
			c, err := metrics.Corr(p.cols[j], p.cols[k])
			if err != nil {
				c = math.NaN()
			}
			fmt.Fprintf(w, "   %.4f %s\n", c, other)
		}
	}
}
