package model

// EstimatorState は変換器の学習状態を表す
type EstimatorState int

const (
	// NotFitted は変換器が未学習の状態
	NotFitted EstimatorState = iota
	// Fitted は変換器が学習済みの状態
	Fitted
)

// BaseEstimator は学習が必要な全ての変換器の基底となる構造体
type BaseEstimator struct {
	// State はgobで保存・復元できるよう公開フィールドにしている
	State EstimatorState
}

// IsFitted は変換器が学習済みかどうかを返す
func (e *BaseEstimator) IsFitted() bool {
	return e.State == Fitted
}

// SetFitted は変換器を学習済み状態に設定する
func (e *BaseEstimator) SetFitted() {
	e.State = Fitted
}

// Reset は変換器を初期状態にリセットする
func (e *BaseEstimator) Reset() {
	e.State = NotFitted
}
