// Package foldfile converts columnar event data into k-fold HDF5 files for
// training and evaluating models with cross-validation.
//
// A conversion resolves the requested fields against the source once,
// normalizes each variable-length object collection (jets, clusters, tracks)
// into a fixed (attributes × length) block per event, partitions the events
// into K disjoint folds and writes one fold_<i> group per fold next to a
// meta_data group that records what every column means.
//
// # Installation
//
//	go get github.com/YuminosukeSato/foldfile
//
// # Quick Start
//
//	package main
//
//	import (
//	    "context"
//	    "log"
//
//	    "github.com/YuminosukeSato/foldfile/convert"
//	    "github.com/YuminosukeSato/foldfile/event"
//	    "github.com/YuminosukeSato/foldfile/store"
//	)
//
//	func main() {
//	    src, err := event.OpenJSONL("events.jsonl.zst")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    opts := convert.DefaultOptions()
//	    opts.Continuous = []string{"HT", "MET_*"}
//	    opts.Targets = []string{"gen_target"}
//	    opts.Tensors = []convert.TensorSpec{{
//	        Name:       "jets",
//	        Collection: event.Collection{Name: "Jet", Attributes: []string{"pt", "eta", "phi"}},
//	        Length:     6,
//	    }}
//	    opts.StratKey = "gen_target"
//
//	    if _, err := convert.Convert(context.Background(), src, "train.h5", opts); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    r, err := store.Open("train.h5")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer r.Close()
//	    fold, err := r.GetFold(3) // reads fold_3 only
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    log.Println(fold.Len(), fold.Tensors["jets"].Shape())
//	}
//
// # Packages
//
//   - event: columnar event batches, field patterns, sources (memory, JSON lines)
//   - preprocessing: tensor normalizer, categorical encoder, scalers
//   - folds: k-fold and stratified k-fold partitioning
//   - store: fold file writer and reader
//   - convert: the end-to-end conversion
//   - config: YAML configuration for cmd/foldconv
//   - core/model: fitted-state bookkeeping and gob persistence
//   - core/tensor: fixed-shape 3-D blocks
//   - pkg/errors, pkg/log: structured errors and zerolog logging
//
// # Command Line
//
//	foldconv convert -c conv.yaml
//	foldconv inspect train.h5 --fold 0
package foldfile
