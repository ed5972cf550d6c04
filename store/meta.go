// Package store writes and reads fold files: HDF5 containers holding one
// fold_<i> group per fold and a meta_data group describing the columns.
//
// Layout:
//
//	/fold_<i>/<cont feature>  float32 [N]
//	/fold_<i>/<column>        float64 [N]        (cat, weight, float targets, misc)
//	/fold_<i>/<column>        int64   [N]        (int targets, misc listed in int_feats)
//	/fold_<i>/<tensor>        float32 [N, A, L]
//	/fold_<i>/<tensor>_mask   float32 [N, L]     (when the tensor has a mask)
//	/meta_data/<key>          string  [1]        (JSON document)
package store

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/YuminosukeSato/foldfile/pkg/errors"
	"github.com/YuminosukeSato/foldfile/preprocessing"
)

// Target column types.
const (
	TargInt   = "int"
	TargFloat = "float"
)

const (
	metaGroup  = "meta_data"
	foldPrefix = "fold_"
	maskSuffix = "_mask"
)

// Metadata keys under /meta_data.
const (
	KeyContFeats   = "cont_feats"
	KeyCatFeats    = "cat_feats"
	KeyTargFeats   = "targ_feats"
	KeyTargType    = "targ_type"
	KeyWgtFeat     = "wgt_feat"
	KeyMiscFeats   = "misc_feats"
	KeyIntFeats    = "int_feats"
	KeyTensorFeats = "tensor_feats"
	KeyCatMaps     = "cat_maps"
	KeyPreproc     = "preproc"
	KeyNFolds      = "n_folds"
	KeyFoldSizes   = "fold_sizes"
)

// TensorInfo declares one tensor feature group.
type TensorInfo struct {
	Name       string   `json:"name"`
	Collection string   `json:"collection"`
	Attributes []string `json:"attributes"`
	Length     int      `json:"length"`
	Mask       bool     `json:"mask"`
}

// Meta is the role declaration of a fold file. Feature lists are stored in the
// order given.
type Meta struct {
	ContFeats []string
	CatFeats  []string
	TargFeats []string
	TargType  string
	WgtFeat   string
	MiscFeats []string

	// IntFeats lists the misc columns stored as int64, such as event numbers.
	IntFeats []string
	Tensors  []TensorInfo

	// CatMaps holds the sorted category values per categorical feature;
	// code i stands for CatMaps[name][i].
	CatMaps map[string][]float64
	// Preproc holds fitted scaler parameters, if any.
	Preproc []preprocessing.ScalerParams

	NFolds    int
	FoldSizes []int
}

// Columns returns every scalar column name a fold must carry, in
// cont, cat, targ, weight, misc order.
func (m *Meta) Columns() []string {
	cols := make([]string, 0, len(m.ContFeats)+len(m.CatFeats)+len(m.TargFeats)+len(m.MiscFeats)+1)
	cols = append(cols, m.ContFeats...)
	cols = append(cols, m.CatFeats...)
	cols = append(cols, m.TargFeats...)
	if m.WgtFeat != "" {
		cols = append(cols, m.WgtFeat)
	}
	cols = append(cols, m.MiscFeats...)
	return cols
}

// Inputs returns the model input features: continuous then categorical.
func (m *Meta) Inputs() []string {
	return append(append([]string(nil), m.ContFeats...), m.CatFeats...)
}

// IsTarget reports whether name is a declared target.
func (m *Meta) IsTarget(name string) bool {
	for _, t := range m.TargFeats {
		if t == name {
			return true
		}
	}
	return false
}

// Tensor returns the declaration of the named tensor.
func (m *Meta) Tensor(name string) (TensorInfo, bool) {
	for _, t := range m.Tensors {
		if t.Name == name {
			return t, true
		}
	}
	return TensorInfo{}, false
}

// Validate checks names for emptiness, path separators and clashes.
func (m *Meta) Validate() error {
	if m.NFolds < 1 {
		return errors.NewValidationError("n_folds", "must be at least 1", m.NFolds)
	}
	switch m.TargType {
	case TargInt, TargFloat:
	default:
		return errors.NewValidationError(KeyTargType, "must be int or float", m.TargType)
	}
	seen := make(map[string]string)
	claim := func(name, role string) error {
		if name == "" || strings.Contains(name, "/") {
			return errors.NewValidationError(role, "names must be non-empty and contain no '/'", name)
		}
		if prev, ok := seen[name]; ok {
			return errors.NewValidationError(role, fmt.Sprintf("name already used as %s", prev), name)
		}
		seen[name] = role
		return nil
	}
	roles := []struct {
		role  string
		names []string
	}{
		{KeyContFeats, m.ContFeats},
		{KeyCatFeats, m.CatFeats},
		{KeyTargFeats, m.TargFeats},
		{KeyMiscFeats, m.MiscFeats},
	}
	for _, r := range roles {
		for _, name := range r.names {
			if err := claim(name, r.role); err != nil {
				return err
			}
		}
	}
	if m.WgtFeat != "" {
		if err := claim(m.WgtFeat, KeyWgtFeat); err != nil {
			return err
		}
	}
	for _, name := range m.IntFeats {
		if seen[name] != KeyMiscFeats {
			return errors.NewValidationError(KeyIntFeats, "must name a misc feature", name)
		}
	}
	for _, t := range m.Tensors {
		if err := claim(t.Name, KeyTensorFeats); err != nil {
			return err
		}
		if t.Mask {
			if err := claim(t.Name+maskSuffix, KeyTensorFeats); err != nil {
				return err
			}
		}
		if t.Length <= 0 || len(t.Attributes) == 0 {
			return errors.NewValidationError(KeyTensorFeats, "tensor needs a positive length and at least one attribute", t.Name)
		}
	}
	return nil
}

// encode renders every metadata key as a JSON document.
func (m *Meta) encode() (map[string][]byte, error) {
	values := map[string]interface{}{
		KeyContFeats:   nonNil(m.ContFeats),
		KeyCatFeats:    nonNil(m.CatFeats),
		KeyTargFeats:   nonNil(m.TargFeats),
		KeyTargType:    m.TargType,
		KeyWgtFeat:     m.WgtFeat,
		KeyMiscFeats:   nonNil(m.MiscFeats),
		KeyIntFeats:    nonNil(m.IntFeats),
		KeyTensorFeats: m.Tensors,
		KeyCatMaps:     m.CatMaps,
		KeyPreproc:     m.Preproc,
		KeyNFolds:      m.NFolds,
		KeyFoldSizes:   m.FoldSizes,
	}
	out := make(map[string][]byte, len(values))
	for key, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, errors.Wrapf(err, "encode meta_data/%s", key)
		}
		out[key] = b
	}
	return out, nil
}

// decodeMeta rebuilds Meta from the raw documents. Missing optional keys are
// left at their zero value.
func decodeMeta(raw map[string][]byte) (*Meta, error) {
	m := &Meta{}
	targets := map[string]interface{}{
		KeyContFeats:   &m.ContFeats,
		KeyCatFeats:    &m.CatFeats,
		KeyTargFeats:   &m.TargFeats,
		KeyTargType:    &m.TargType,
		KeyWgtFeat:     &m.WgtFeat,
		KeyMiscFeats:   &m.MiscFeats,
		KeyIntFeats:    &m.IntFeats,
		KeyTensorFeats: &m.Tensors,
		KeyCatMaps:     &m.CatMaps,
		KeyPreproc:     &m.Preproc,
		KeyNFolds:      &m.NFolds,
		KeyFoldSizes:   &m.FoldSizes,
	}
	for _, required := range []string{KeyNFolds, KeyTargType} {
		if _, ok := raw[required]; !ok {
			return nil, errors.NewMissingFieldError("store.Open", required, metaGroup)
		}
	}
	for key, dst := range targets {
		b, ok := raw[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(b, dst); err != nil {
			return nil, errors.Wrapf(err, "decode meta_data/%s", key)
		}
	}
	return m, nil
}

// column storage types
const (
	dtypeFloat32 = "float32"
	dtypeFloat64 = "float64"
	dtypeInt64   = "int64"
)

// dtype returns the storage type of a scalar column.
func (m *Meta) dtype(name string) string {
	if m.IsTarget(name) {
		if m.TargType == TargInt {
			return dtypeInt64
		}
		return dtypeFloat64
	}
	for _, c := range m.ContFeats {
		if c == name {
			return dtypeFloat32
		}
	}
	for _, c := range m.IntFeats {
		if c == name {
			return dtypeInt64
		}
	}
	return dtypeFloat64
}

// FitsInt64 reports whether every value is a finite integer that float64
// holds exactly, so storing it as int64 loses nothing.
func FitsInt64(values []float64) bool {
	const limit = 1 << 53
	for _, v := range values {
		if math.IsNaN(v) || math.Abs(v) > limit || v != math.Trunc(v) {
			return false
		}
	}
	return true
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func foldGroup(i int) string {
	return fmt.Sprintf("/%s%d", foldPrefix, i)
}

func datasetPath(fold int, name string) string {
	return foldGroup(fold) + "/" + name
}

func metaPath(key string) string {
	return "/" + metaGroup + "/" + key
}
