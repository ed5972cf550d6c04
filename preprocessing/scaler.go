package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/foldfile/core/model"
	"github.com/YuminosukeSato/foldfile/pkg/errors"
)

// Scaler は連続特徴量のスケーラーの共通インターフェース
// ストアのメタデータ (preproc) にパラメータを保存するため Params を持つ
type Scaler interface {
	model.ColumnTransformer
	Params() ScalerParams
}

// ScalerParams はメタデータに保存されるスケーラーのパラメータ
// 変換は (x - Offset) / Scale で表される
type ScalerParams struct {
	Kind     string    `json:"kind"`
	Features []string  `json:"features"`
	Offset   []float64 `json:"offset"`
	Scale    []float64 `json:"scale"`
}

// NewScaler は種類名からスケーラーを作成する ("standard", "minmax")
func NewScaler(kind string, features []string) (Scaler, error) {
	switch kind {
	case "standard":
		return NewStandardScaler(features, true, true), nil
	case "minmax":
		return NewMinMaxScaler(features, [2]float64{0, 1}), nil
	default:
		return nil, errors.NewValidationError("preprocessing.scaler", "must be standard or minmax", kind)
	}
}

// columnsToDense は指定された特徴量のカラムを (イベント数 × 特徴量数) の行列にまとめる
func columnsToDense(op string, columns map[string][]float64, features []string) (*mat.Dense, error) {
	if len(features) == 0 {
		return nil, errors.NewModelError(op, "no features", errors.ErrEmptyData)
	}
	n := -1
	for _, name := range features {
		col, ok := columns[name]
		if !ok {
			return nil, errors.NewMissingFieldError(op, name, "input columns")
		}
		if n == -1 {
			n = len(col)
		} else if len(col) != n {
			return nil, errors.NewDimensionError(op+" "+name, n, len(col), 0)
		}
	}
	if n == 0 {
		return nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	X := mat.NewDense(n, len(features), nil)
	for j, name := range features {
		X.SetCol(j, columns[name])
	}
	return X, nil
}

// denseToColumns は行列の列を元のカラム集合に書き戻した新しいマップを返す
func denseToColumns(columns map[string][]float64, features []string, X mat.Matrix) map[string][]float64 {
	out := make(map[string][]float64, len(columns))
	for name, col := range columns {
		out[name] = col
	}
	for j, name := range features {
		out[name] = mat.Col(nil, j, X)
	}
	return out
}

// StandardScaler はscikit-learn互換の標準化スケーラー
// 連続特徴量を平均0、標準偏差1に変換する
type StandardScaler struct {
	model.BaseEstimator

	// Features はスケーリング対象の特徴量名（列の順序）
	Features []string

	// Mean は各特徴量の平均値
	Mean []float64

	// Scale は各特徴量の標準偏差
	Scale []float64

	// WithMean は平均を引くかどうか (デフォルト: true)
	WithMean bool

	// WithStd は標準偏差で割るかどうか (デフォルト: true)
	WithStd bool
}

// NewStandardScaler は新しいStandardScalerを作成する
//
// パラメータ:
//   - features: スケーリングする連続特徴量
//   - withMean: 平均を引くかどうか
//   - withStd: 標準偏差で割るかどうか
//
// 使用例:
//
//	scaler := preprocessing.NewStandardScaler([]string{"met", "ht"}, true, true)
//	err := scaler.Fit(columns)
//	scaled, err := scaler.Transform(columns)
func NewStandardScaler(features []string, withMean, withStd bool) *StandardScaler {
	return &StandardScaler{
		Features: append([]string(nil), features...),
		WithMean: withMean,
		WithStd:  withStd,
	}
}

// Fit はカラム集合から各特徴量の平均と標準偏差を計算する
func (s *StandardScaler) Fit(columns map[string][]float64) error {
	X, err := columnsToDense("StandardScaler.Fit", columns, s.Features)
	if err != nil {
		return err
	}
	return s.FitMatrix(X)
}

// FitMatrix は (n_samples × n_features) の行列から統計情報を計算する
func (s *StandardScaler) FitMatrix(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("StandardScaler.Fit", "empty data", errors.ErrEmptyData)
	}
	if c != len(s.Features) {
		return errors.NewDimensionError("StandardScaler.Fit", len(s.Features), c, 1)
	}

	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)
	for j := 0; j < c; j++ {
		col := mat.Col(nil, j, X)
		mean, variance := stat.PopMeanVariance(col, nil)
		if s.WithMean {
			s.Mean[j] = mean
		}
		s.Scale[j] = 1.0
		if s.WithStd {
			// 標準偏差が0に近い場合は1のまま（ゼロ除算を避ける）
			if std := math.Sqrt(variance); std >= 1e-8 {
				s.Scale[j] = std
			}
		}
	}

	s.SetFitted()
	return nil
}

// Transform は学習済みの統計情報で特徴量を標準化した新しいカラム集合を返す
func (s *StandardScaler) Transform(columns map[string][]float64) (map[string][]float64, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "Transform")
	}
	X, err := columnsToDense("StandardScaler.Transform", columns, s.Features)
	if err != nil {
		return nil, err
	}
	scaled, err := s.TransformMatrix(X)
	if err != nil {
		return nil, err
	}
	return denseToColumns(columns, s.Features, scaled), nil
}

// TransformMatrix は行列を標準化する
func (s *StandardScaler) TransformMatrix(X mat.Matrix) (*mat.Dense, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "Transform")
	}
	r, c := X.Dims()
	if c != len(s.Features) {
		return nil, errors.NewDimensionError("StandardScaler.Transform", len(s.Features), c, 1)
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, X)
	return result, nil
}

// InverseTransform は標準化されたデータを元のスケールに戻す
func (s *StandardScaler) InverseTransform(X mat.Matrix) (*mat.Dense, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "InverseTransform")
	}
	r, c := X.Dims()
	if c != len(s.Features) {
		return nil, errors.NewDimensionError("StandardScaler.InverseTransform", len(s.Features), c, 1)
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return v*s.Scale[j] + s.Mean[j]
	}, X)
	return result, nil
}

// Params はメタデータに保存するパラメータを返す
func (s *StandardScaler) Params() ScalerParams {
	return ScalerParams{Kind: "standard", Features: s.Features, Offset: s.Mean, Scale: s.Scale}
}

// String はスケーラーの文字列表現を返す
func (s *StandardScaler) String() string {
	return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t, features=%v)",
		s.WithMean, s.WithStd, s.Features)
}

// MinMaxScaler はscikit-learn互換のMin-Maxスケーラー
// 連続特徴量を指定した範囲（デフォルト[0,1]）にスケーリングする
type MinMaxScaler struct {
	model.BaseEstimator

	// Features はスケーリング対象の特徴量名
	Features []string

	// DataMin は学習データの最小値
	DataMin []float64

	// DataMax は学習データの最大値
	DataMax []float64

	// Scale は各特徴量のスケール (max - min)
	Scale []float64

	// FeatureRange はスケーリング後の範囲 [min, max]
	FeatureRange [2]float64
}

// NewMinMaxScaler は新しいMinMaxScalerを作成する
func NewMinMaxScaler(features []string, featureRange [2]float64) *MinMaxScaler {
	return &MinMaxScaler{
		Features:     append([]string(nil), features...),
		FeatureRange: featureRange,
	}
}

// Fit はカラム集合から最小値・最大値を計算する
func (m *MinMaxScaler) Fit(columns map[string][]float64) error {
	X, err := columnsToDense("MinMaxScaler.Fit", columns, m.Features)
	if err != nil {
		return err
	}

	_, c := X.Dims()
	m.DataMin = make([]float64, c)
	m.DataMax = make([]float64, c)
	m.Scale = make([]float64, c)
	for j := 0; j < c; j++ {
		col := mat.Col(nil, j, X)
		lo, hi := col[0], col[0]
		for _, v := range col[1:] {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		m.DataMin[j] = lo
		m.DataMax[j] = hi

		// 定数特徴量の場合、スケールを1に設定
		m.Scale[j] = 1.0
		if dataRange := hi - lo; math.Abs(dataRange) >= 1e-8 {
			m.Scale[j] = dataRange
		}
	}

	m.SetFitted()
	return nil
}

// Transform は学習済みの最小値・最大値で特徴量をスケーリングした新しいカラム集合を返す
func (m *MinMaxScaler) Transform(columns map[string][]float64) (map[string][]float64, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError("MinMaxScaler", "Transform")
	}
	X, err := columnsToDense("MinMaxScaler.Transform", columns, m.Features)
	if err != nil {
		return nil, err
	}

	r, c := X.Dims()
	result := mat.NewDense(r, c, nil)
	featureRange := m.FeatureRange[1] - m.FeatureRange[0]
	// X_scaled = (X - X.min) / (X.max - X.min) * (max - min) + min
	result.Apply(func(i, j int, v float64) float64 {
		return (v-m.DataMin[j])/m.Scale[j]*featureRange + m.FeatureRange[0]
	}, X)
	return denseToColumns(columns, m.Features, result), nil
}

// Params はメタデータに保存するパラメータを (x - Offset) / Scale の形で返す
func (m *MinMaxScaler) Params() ScalerParams {
	featureRange := m.FeatureRange[1] - m.FeatureRange[0]
	offset := make([]float64, len(m.Features))
	scale := make([]float64, len(m.Features))
	for j := range m.Features {
		scale[j] = m.Scale[j] / featureRange
		offset[j] = m.DataMin[j] - m.FeatureRange[0]*scale[j]
	}
	return ScalerParams{Kind: "minmax", Features: m.Features, Offset: offset, Scale: scale}
}

// String はスケーラーの文字列表現を返す
func (m *MinMaxScaler) String() string {
	return fmt.Sprintf("MinMaxScaler(feature_range=%v, features=%v)", m.FeatureRange, m.Features)
}
