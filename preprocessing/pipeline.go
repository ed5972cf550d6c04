package preprocessing

import (
	"encoding/gob"
	"fmt"
)

func init() {
	// Scaler はインターフェースなので具象型を登録しておく
	gob.Register(&StandardScaler{})
	gob.Register(&MinMaxScaler{})
}

// Pipeline は変換時に学習したカテゴリ写像とスケーラーをまとめたもの
// gobで保存し、後から新しいイベントに同じ変換を適用できる
type Pipeline struct {
	Encoder *CategoricalEncoder
	Scaler  Scaler
}

// Fit は設定されている変換器を順番に学習する
func (p *Pipeline) Fit(columns map[string][]float64) error {
	_, err := p.fitTransform(columns)
	return err
}

// FitTransform は学習と変換を一度に行う。エンコード後の値でスケーラーを学習する
func (p *Pipeline) FitTransform(columns map[string][]float64) (map[string][]float64, error) {
	return p.fitTransform(columns)
}

func (p *Pipeline) fitTransform(columns map[string][]float64) (map[string][]float64, error) {
	out := columns
	var err error
	if p.Encoder != nil {
		if err = p.Encoder.Fit(out); err != nil {
			return nil, err
		}
		if out, err = p.Encoder.Transform(out); err != nil {
			return nil, err
		}
	}
	if p.Scaler != nil {
		if err = p.Scaler.Fit(out); err != nil {
			return nil, err
		}
		if out, err = p.Scaler.Transform(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Transform は学習済みの変換器を順番に適用する
func (p *Pipeline) Transform(columns map[string][]float64) (map[string][]float64, error) {
	out := columns
	var err error
	if p.Encoder != nil {
		if out, err = p.Encoder.Transform(out); err != nil {
			return nil, err
		}
	}
	if p.Scaler != nil {
		if out, err = p.Scaler.Transform(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// IsFitted は全ての変換器が学習済みかどうかを返す
func (p *Pipeline) IsFitted() bool {
	if p.Encoder != nil && !p.Encoder.IsFitted() {
		return false
	}
	if p.Scaler != nil && !p.Scaler.IsFitted() {
		return false
	}
	return true
}

func (p *Pipeline) String() string {
	return fmt.Sprintf("Pipeline(encoder=%v, scaler=%v)", p.Encoder, p.Scaler)
}
