package model

// ColumnTransformer は名前付きカラムの集合に対して学習・変換を行う変換器のインターフェース
//
// カラムはイベント数と同じ長さのスライスで、キーは特徴量名。
// Transformは入力を変更せず、新しいマップを返す。
type ColumnTransformer interface {
	Fit(columns map[string][]float64) error
	Transform(columns map[string][]float64) (map[string][]float64, error)
	IsFitted() bool
}
