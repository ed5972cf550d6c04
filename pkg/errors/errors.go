// Package errors はfoldfile全体のエラーハンドリングと警告システムを提供します。
// 変換処理のエラーは「設定エラー」「統計的な警告」「I/Oエラー」の3種類に分類され、
// いずれもcockroachdb/errorsによるスタックトレース付きで呼び出し元に返されます。
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// デフォルトのハンドラは標準エラー出力にログを出す
		log.Printf("foldfile-warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler は警告ハンドラを設定します。
// StratificationWarningなどの統計的な警告の処理方法を制御できます。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
// nilを渡すと従来のハンドラに戻ります。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// zerologが利用可能な場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	警告型
//
// ===========================================================================

// StratificationWarning は層化分割でクラスの件数がfold数に満たない場合の警告です。
// 分割自体は続行され、そのクラスは一部のfoldにしか現れません。
type StratificationWarning struct {
	Label   float64
	Members int
	NFolds  int
}

func (w *StratificationWarning) Error() string {
	return fmt.Sprintf("the least populated class (label %g) has only %d members, which is less than n_folds=%d",
		w.Label, w.Members, w.NFolds)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *StratificationWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Float64("label", w.Label).
		Int("members", w.Members).
		Int("n_folds", w.NFolds).
		Str("type", "StratificationWarning")
}

// NewStratificationWarning は新しいStratificationWarningを作成します。
func NewStratificationWarning(label float64, members, nFolds int) *StratificationWarning {
	return &StratificationWarning{Label: label, Members: members, NFolds: nFolds}
}

// DataConversionWarning はデータの型が暗黙的に変換された場合に発生する警告です。
// 例えば、整数型のターゲットに小数値が含まれていた場合など。
type DataConversionWarning struct {
	FromType string
	ToType   string
	Reason   string
}

func (w *DataConversionWarning) Error() string {
	return fmt.Sprintf("data converted from %s to %s. Reason: %s", w.FromType, w.ToType, w.Reason)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *DataConversionWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("from_type", w.FromType).
		Str("to_type", w.ToType).
		Str("reason", w.Reason).
		Str("type", "DataConversionWarning")
}

// NewDataConversionWarning は新しいDataConversionWarningを作成します。
func NewDataConversionWarning(from, to, reason string) *DataConversionWarning {
	return &DataConversionWarning{FromType: from, ToType: to, Reason: reason}
}

// TruncationWarning はコレクションが固定長を超えて切り詰められたイベントがある場合の警告です。
type TruncationWarning struct {
	Tensor    string
	Length    int
	Truncated int
	Total     int
}

func (w *TruncationWarning) Error() string {
	return fmt.Sprintf("%d of %d events had more than %d elements in tensor '%s' and were truncated",
		w.Truncated, w.Total, w.Length, w.Tensor)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *TruncationWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("tensor", w.Tensor).
		Int("length", w.Length).
		Int("truncated", w.Truncated).
		Int("total", w.Total).
		Str("type", "TruncationWarning")
}

// NewTruncationWarning は新しいTruncationWarningを作成します。
func NewTruncationWarning(tensor string, length, truncated, total int) *TruncationWarning {
	return &TruncationWarning{Tensor: tensor, Length: length, Truncated: truncated, Total: total}
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// NotFittedError は未学習の変換器で `Transform` を呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("foldfile: %s: this transformer is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for events, 1 for features/attributes
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "events"
	}
	return fmt.Sprintf("foldfile: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "events"
	}
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValidationError は入力パラメータの検証に失敗した場合のエラーです。
// 設定エラーはすべてこの型か MissingFieldError / StoreExistsError で表されます。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("foldfile: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は新しいValidationErrorを作成し、スタックトレースを付与します。
func NewValidationError(param, reason string, value interface{}) error {
	err := &ValidationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// MissingFieldError は要求されたフィールド・属性・カラムが入力に存在しない場合のエラーです。
// 黙って無視されることはなく、常に致命的な設定エラーとして扱われます。
type MissingFieldError struct {
	Op    string
	Field string
	// Where はフィールドを探した場所（例: "source catalog", "collection Cluster"）
	Where string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("foldfile: %s: field '%s' not found in %s", e.Op, e.Field, e.Where)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *MissingFieldError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("field", e.Field).
		Str("where", e.Where).
		Str("type", "MissingFieldError")
}

// NewMissingFieldError は新しいMissingFieldErrorを作成し、スタックトレースを付与します。
func NewMissingFieldError(op, field, where string) error {
	err := &MissingFieldError{Op: op, Field: field, Where: where}
	return errors.WithStack(err)
}

// StoreExistsError は上書き許可なしに既存のストアへ書き込もうとした場合のエラーです。
type StoreExistsError struct {
	Path string
}

func (e *StoreExistsError) Error() string {
	return fmt.Sprintf("foldfile: store %q already exists; set overwrite to replace it", e.Path)
}

// NewStoreExistsError は新しいStoreExistsErrorを作成し、スタックトレースを付与します。
func NewStoreExistsError(path string) error {
	return errors.WithStack(&StoreExistsError{Path: path})
}

// IOError はソースの読み込みやストアへの書き込みに失敗した場合のエラーです。
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("foldfile: %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("foldfile: %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError は新しいIOErrorを作成し、スタックトレースを付与します。
func NewIOError(op, path string, err error) error {
	return errors.WithStack(&IOError{Op: op, Path: path, Err: err})
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
// 例えば、学習時に存在しなかったカテゴリ値を変換しようとした場合など。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("foldfile: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// ModelError は変換器に関する一般的なエラーです。
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("foldfile: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("foldfile: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError は新しいModelErrorを作成し、スタックトレースを付与します。
func NewModelError(op, kind string, err error) error {
	modelErr := &ModelError{Op: op, Kind: kind, Err: err}
	return errors.WithStack(modelErr)
}

// IsConfigError はerrが設定エラー（検証失敗・フィールド欠落・上書き拒否）かどうかを判定します。
func IsConfigError(err error) bool {
	var v *ValidationError
	var m *MissingFieldError
	var s *StoreExistsError
	return errors.As(err, &v) || errors.As(err, &m) || errors.As(err, &s)
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// CombineErrors は2つのエラーを1つにまとめます。どちらかがnilならもう一方を返します。
func CombineErrors(err, other error) error {
	return errors.CombineErrors(err, other)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrFoldOutOfRange は存在しないfold番号が要求された場合のエラーです。
	ErrFoldOutOfRange = New("fold index out of range")

	// ErrClosed はクローズ済みのストアやソースを操作した場合のエラーです。
	ErrClosed = New("already closed")
)
