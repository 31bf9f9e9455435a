// Package tournox manages tabular machine-learning tournament data,
// designed for walking models through era-aware train/predict splits
// and scoring the resulting prediction ledgers.
//
// Tournox keeps rows, features, targets and their era and region
// labels together in an immutable store, so that filtering, splitting
// and merging can never misalign them.
//
// # Features
//
// - Row Store: ids, eras, regions, features and targets kept aligned
// - Splitters: tournament, cross-validation and rolling era splits
// - Prediction Ledger: outer-join merging of model output by identity
// - Reports: per-era performance, originality, concordance, dominance
// - Persistence: SQLite-backed stores and CSV submission files
//
// # Quick Start
//
// Fit a model on the train region and predict the tournament rows:
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/tournox/tournox"
//	    "github.com/tournox/tournox/data"
//	    "github.com/tournox/tournox/model"
//	)
//
//	func main() {
//	    d, err := data.LoadZip("numerai_dataset.zip")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    p, err := tournox.Production(model.NewLogistic(0.00001), d, "example", 1)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(p)
//	}
//
// Backtest the same model with era-aware cross-validation:
//
//	p, err := tournox.Backtest(model.NewLogistic(0.00001), d, "example", 5, 0, 1)
//
// # Package Layout
//
// - data: the row store, filtering, balancing and file loading
// - split: fit/predict splitters over a store
// - predict: the prediction ledger and its reports
// - model: the Model interface and built-in example models
// - metrics: scalar scoring functions
// - store: SQLite persistence for stores and ledgers
package tournox
