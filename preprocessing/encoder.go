package preprocessing

import (
	"fmt"
	"sort"

	"github.com/YuminosukeSato/foldfile/core/model"
	"github.com/YuminosukeSato/foldfile/pkg/errors"
)

// CategoricalEncoder はカテゴリ特徴量の値を 0..k-1 の連続したコードに写像する
//
// コードは値の昇順で割り当てられるので、同じデータからは常に同じ写像が得られる。
// 写像はストアのメタデータ (cat_maps) に保存され、読み出し側が元の値を復元できる。
type CategoricalEncoder struct {
	model.BaseEstimator

	// Features はエンコードする特徴量名
	Features []string

	// Maps は特徴量ごとのカテゴリ値の一覧。インデックスがコードになる
	Maps map[string][]float64
}

// NewCategoricalEncoder は新しいCategoricalEncoderを作成する
//
// 使用例:
//
//	enc := preprocessing.NewCategoricalEncoder("charge", "nJets")
//	err := enc.Fit(columns)
//	encoded, err := enc.Transform(columns)
func NewCategoricalEncoder(features ...string) *CategoricalEncoder {
	return &CategoricalEncoder{Features: append([]string(nil), features...)}
}

// Fit は各特徴量のユニークな値を昇順に並べて写像を作る
func (c *CategoricalEncoder) Fit(columns map[string][]float64) error {
	maps := make(map[string][]float64, len(c.Features))
	for _, name := range c.Features {
		col, ok := columns[name]
		if !ok {
			return errors.NewMissingFieldError("CategoricalEncoder.Fit", name, "input columns")
		}
		if len(col) == 0 {
			return errors.NewModelError("CategoricalEncoder.Fit", "empty data", errors.ErrEmptyData)
		}
		if err := errors.CheckFinite(name, col); err != nil {
			return err
		}
		uniq := append([]float64(nil), col...)
		sort.Float64s(uniq)
		k := 0
		for i, v := range uniq {
			if i == 0 || v != uniq[k-1] {
				uniq[k] = v
				k++
			}
		}
		maps[name] = uniq[:k]
	}
	c.Maps = maps
	c.SetFitted()
	return nil
}

// Transform は学習済みの写像で特徴量をコードに置き換えた新しいカラム集合を返す
// Features に含まれないカラムはそのまま引き継がれる
func (c *CategoricalEncoder) Transform(columns map[string][]float64) (map[string][]float64, error) {
	if !c.IsFitted() {
		return nil, errors.NewNotFittedError("CategoricalEncoder", "Transform")
	}
	out := make(map[string][]float64, len(columns))
	for name, col := range columns {
		out[name] = col
	}
	for _, name := range c.Features {
		col, ok := columns[name]
		if !ok {
			return nil, errors.NewMissingFieldError("CategoricalEncoder.Transform", name, "input columns")
		}
		values := c.Maps[name]
		codes := make([]float64, len(col))
		for i, v := range col {
			idx := sort.SearchFloat64s(values, v)
			if idx == len(values) || values[idx] != v {
				return nil, errors.NewValueError("CategoricalEncoder.Transform",
					fmt.Sprintf("feature %q: value %v was not seen during Fit", name, v))
			}
			codes[i] = float64(idx)
		}
		out[name] = codes
	}
	return out, nil
}

// Cardinality は特徴量のカテゴリ数を返す
func (c *CategoricalEncoder) Cardinality(name string) int {
	return len(c.Maps[name])
}

// Decode はコードを元の値に戻す
func (c *CategoricalEncoder) Decode(name string, code int) (float64, error) {
	values, ok := c.Maps[name]
	if !ok {
		return 0, errors.NewMissingFieldError("CategoricalEncoder.Decode", name, "category maps")
	}
	if code < 0 || code >= len(values) {
		return 0, errors.NewValueError("CategoricalEncoder.Decode", fmt.Sprintf("code %d out of range for %q", code, name))
	}
	return values[code], nil
}

// String は変換器の文字列表現を返す
func (c *CategoricalEncoder) String() string {
	return fmt.Sprintf("CategoricalEncoder(features=%v)", c.Features)
}
