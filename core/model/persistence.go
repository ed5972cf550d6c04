package model

import (
	"encoding/gob"
	"io"
	"os"

	"github.com/YuminosukeSato/foldfile/pkg/errors"
)

// SaveModel は学習済みの変換器をgob形式でファイルに保存する
//
// パラメータ:
//   - model: 保存する変換器（BaseEstimatorを埋め込んだ構造体）
//   - filename: 保存先のファイルパス
//
// 戻り値:
//   - error: 保存に失敗した場合のエラー
//
// 使用例:
//
//	enc := preprocessing.NewCategoricalEncoder("charge")
//	// ... enc.Fit(columns) ...
//	err := model.SaveModel(enc, "input_pipe.gob")
func SaveModel(model interface{}, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.NewIOError("create model file", filename, err)
	}

	if err := SaveModelToWriter(model, file); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return errors.NewIOError("close model file", filename, err)
	}
	return nil
}

// LoadModel はファイルから変換器を読み込む
//
// パラメータ:
//   - model: 読み込み先の変換器のポインタ
//   - filename: 読み込み元のファイルパス
func LoadModel(model interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.NewIOError("open model file", filename, err)
	}
	defer file.Close()

	return LoadModelFromReader(model, file)
}

// SaveModelToWriter は変換器をio.Writerに保存する
func SaveModelToWriter(model interface{}, w io.Writer) error {
	encoder := gob.NewEncoder(w)
	if err := encoder.Encode(model); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader はio.Readerから変換器を読み込む
func LoadModelFromReader(model interface{}, r io.Reader) error {
	decoder := gob.NewDecoder(r)
	if err := decoder.Decode(model); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}
