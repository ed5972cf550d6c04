package preprocessing

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/foldfile/core/tensor"
	"github.com/YuminosukeSato/foldfile/event"
	"github.com/YuminosukeSato/foldfile/pkg/errors"
)

// DefaultPad は短いコレクションを埋めるセンチネル値
const DefaultPad = 0.0

// TensorNormalizer は可変長のオブジェクトコレクションを固定形状のテンソルブロックに変換する
//
// 各イベントのブロックは (len(Attributes), Length) の形状を持つ。
// Length 以上の要素を持つコレクションは先頭 Length 個だけを残し（並べ替えはしない）、
// 短いコレクションは全ての属性で同じ位置から Pad 値で埋める。
// 学習は不要で、同じ入力に対して常に同じ出力を返す。
type TensorNormalizer struct {
	// Name はテンソル特徴量の名前（ストア内のデータセット名）
	Name string

	// Collection は読み込むコレクションと属性の順序
	Collection event.Collection

	// Length は固定長 L
	Length int

	// Pad は埋め草の値 (デフォルト: 0)
	Pad float64
}

// NewTensorNormalizer は新しいTensorNormalizerを作成する
//
// パラメータ:
//   - name: テンソル特徴量の名前
//   - coll: コレクション名と属性の順序
//   - length: 固定長 L (正の値)
//
// 使用例:
//
//	norm, err := preprocessing.NewTensorNormalizer("clusters",
//	    event.Collection{Name: "Cluster", Attributes: []string{"pt", "eta", "phi"}}, 20)
//	block, err := norm.Transform(batch)  // shape (N, 3, 20)
func NewTensorNormalizer(name string, coll event.Collection, length int) (*TensorNormalizer, error) {
	if name == "" {
		return nil, errors.NewValidationError("tensor.name", "must not be empty", name)
	}
	if length <= 0 {
		return nil, errors.NewValidationError("tensor.length", "must be positive", length)
	}
	if len(coll.Attributes) == 0 {
		return nil, errors.NewValidationError("tensor.attributes", "at least one attribute is required", coll.Attributes)
	}
	return &TensorNormalizer{
		Name:       name,
		Collection: coll,
		Length:     length,
		Pad:        DefaultPad,
	}, nil
}

// columns は属性ごとのジャグ配列を取り出し、全属性の要素数がイベントごとに一致することを確認する
func (n *TensorNormalizer) columns(b *event.Batch) ([]event.JaggedArray, error) {
	cols := make([]event.JaggedArray, len(n.Collection.Attributes))
	for j, attr := range n.Collection.Attributes {
		field := n.Collection.FieldName(attr)
		arr, ok := b.Jagged[field]
		if !ok {
			return nil, errors.NewMissingFieldError("TensorNormalizer.Transform", field, "collection "+n.Collection.Name)
		}
		if arr.NumEvents() != b.N {
			return nil, errors.NewDimensionError("TensorNormalizer.Transform "+field, b.N, arr.NumEvents(), 0)
		}
		cols[j] = arr
	}
	for j := 1; j < len(cols); j++ {
		for i := 0; i < b.N; i++ {
			if cols[j].Len(i) != cols[0].Len(i) {
				return nil, errors.NewDimensionError(
					"TensorNormalizer.Transform "+n.Collection.FieldName(n.Collection.Attributes[j]),
					cols[0].Len(i), cols[j].Len(i), 1)
			}
		}
	}
	return cols, nil
}

// Transform はバッチからテンソルブロック (N, len(Attributes), Length) を作る
//
// 戻り値:
//   - *tensor.Dense3: 固定形状のブロック
//   - error: 属性が存在しない場合（MissingFieldError）や属性間で要素数が異なる場合
func (n *TensorNormalizer) Transform(b *event.Batch) (*tensor.Dense3, error) {
	cols, err := n.columns(b)
	if err != nil {
		return nil, err
	}

	block, err := tensor.NewDense3(b.N, len(cols), n.Length, nil)
	if err != nil {
		return nil, err
	}
	for i := 0; i < b.N; i++ {
		for j, col := range cols {
			row := col.Row(i)
			out := block.Row(i, j)
			kept := copy(out, row) // 先頭 Length 個だけがコピーされる
			for k := kept; k < n.Length; k++ {
				out[k] = n.Pad
			}
		}
	}
	return block, nil
}

// Multiplicity は各イベントのコレクションの元の要素数を返す
func (n *TensorNormalizer) Multiplicity(b *event.Batch) ([]int, error) {
	cols, err := n.columns(b)
	if err != nil {
		return nil, err
	}
	out := make([]int, b.N)
	for i := range out {
		out[i] = cols[0].Len(i)
	}
	return out, nil
}

// Truncated は Length を超える要素を持ち、切り詰められたイベントの数を返す
func (n *TensorNormalizer) Truncated(b *event.Batch) (int, error) {
	mult, err := n.Multiplicity(b)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, m := range mult {
		if m > n.Length {
			count++
		}
	}
	return count, nil
}

// Mask は有効な位置を1、埋め草の位置を0とする (N, Length) の行列を返す
func (n *TensorNormalizer) Mask(b *event.Batch) (*mat.Dense, error) {
	if b.N == 0 {
		return nil, errors.NewModelError("TensorNormalizer.Mask", "empty data", errors.ErrEmptyData)
	}
	mult, err := n.Multiplicity(b)
	if err != nil {
		return nil, err
	}
	mask := mat.NewDense(b.N, n.Length, nil)
	for i, m := range mult {
		for k := 0; k < m && k < n.Length; k++ {
			mask.Set(i, k, 1)
		}
	}
	return mask, nil
}

// Shape は1イベントあたりのブロックの形状 (属性数, Length) を返す
func (n *TensorNormalizer) Shape() [2]int {
	return [2]int{len(n.Collection.Attributes), n.Length}
}
