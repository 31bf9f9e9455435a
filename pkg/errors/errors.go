// Package errors はプロジェクト全体のエラーハンドリングと警告システムを提供します。
// Row Store / Prediction Ledger の前提条件違反を構造化されたエラー型として表現します。
package errors

import (
	"fmt"
	"log"
	"strings"
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
		log.Printf("tournox-warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler はライブラリ全体の警告ハンドラを設定します。
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
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// zerologが設定されている場合は構造化ログとして出力します。
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

// UndefinedMetricWarning は評価指標が計算できない場合に発生する警告です。
// 例えば、ledgerとground truthのidentityが一行も重ならなかった場合など。
type UndefinedMetricWarning struct {
	Metric    string
	Model     string
	Condition string
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("'%s' is undefined for model '%s' and set to NaN due to %s", w.Metric, w.Model, w.Condition)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *UndefinedMetricWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("metric", w.Metric).
		Str("model", w.Model).
		Str("condition", w.Condition).
		Str("type", "UndefinedMetricWarning")
}

// NewUndefinedMetricWarning は新しいUndefinedMetricWarningを作成します。
func NewUndefinedMetricWarning(metric, model, condition string) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Model: model, Condition: condition}
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// ShapeError は行数・列数の不一致を表すエラーです。
// XNew / YNew / MergeArrays など、置き換え・挿入系の操作で発生します。
type ShapeError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns
}

func (e *ShapeError) Error() string {
	axisName := "columns"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("tournox: %s: shape mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ShapeError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("type", "ShapeError")
}

// NewShapeError は新しいShapeErrorを作成し、スタックトレースを付与します。
func NewShapeError(op string, expected, got, axis int) error {
	err := &ShapeError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// IdentityCollisionError はidentityの重複を表すエラーです。
// 重複が禁止されている連結（Data.Concat / Prediction.Add）で発生します。
type IdentityCollisionError struct {
	Op     string
	Count  int      // 重複したidentityの数
	Sample []string // 重複したidentityの例（最大5件）
}

func (e *IdentityCollisionError) Error() string {
	if len(e.Sample) > 0 {
		return fmt.Sprintf("tournox: %s: %d overlapping ids found (e.g. %s)", e.Op, e.Count, strings.Join(e.Sample, ", "))
	}
	return fmt.Sprintf("tournox: %s: %d overlapping ids found", e.Op, e.Count)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *IdentityCollisionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("count", e.Count).
		Strs("sample", e.Sample).
		Str("type", "IdentityCollisionError")
}

// NewIdentityCollisionError は新しいIdentityCollisionErrorを作成し、スタックトレースを付与します。
func NewIdentityCollisionError(op string, overlap []string) error {
	sample := overlap
	if len(sample) > 5 {
		sample = sample[:5]
	}
	err := &IdentityCollisionError{Op: op, Count: len(overlap), Sample: sample}
	return errors.WithStack(err)
}

// UnknownColumnError は存在しないモデル列の参照を表すエラーです。
// Rename / Drop / Select で発生します。
type UnknownColumnError struct {
	Op    string
	Name  string
	Known []string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("tournox: %s: unknown model column '%s' (have: %s)", e.Op, e.Name, strings.Join(e.Known, ", "))
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *UnknownColumnError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("name", e.Name).
		Strs("known", e.Known).
		Str("type", "UnknownColumnError")
}

// NewUnknownColumnError は新しいUnknownColumnErrorを作成し、スタックトレースを付与します。
func NewUnknownColumnError(op, name string, known []string) error {
	err := &UnknownColumnError{Op: op, Name: name, Known: known}
	return errors.WithStack(err)
}

// EmptyOperationError は空のledgerに対して許可されない操作を表すエラーです。
// Rename / Drop / Save などで発生します。
type EmptyOperationError struct {
	Op string
}

func (e *EmptyOperationError) Error() string {
	return fmt.Sprintf("tournox: %s: operation not allowed on an empty prediction", e.Op)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *EmptyOperationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("type", "EmptyOperationError")
}

// NewEmptyOperationError は新しいEmptyOperationErrorを作成し、スタックトレースを付与します。
func NewEmptyOperationError(op string) error {
	err := &EmptyOperationError{Op: op}
	return errors.WithStack(err)
}

// IndexKindError はサポートされないインデックス指定を表すエラーです。
// 例えば Data.Get に認識できないラベルを渡した場合など。
type IndexKindError struct {
	Op    string
	Index string
}

func (e *IndexKindError) Error() string {
	return fmt.Sprintf("tournox: %s: index '%s' not recognized", e.Op, e.Index)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *IndexKindError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("index", e.Index).
		Str("type", "IndexKindError")
}

// NewIndexKindError は新しいIndexKindErrorを作成し、スタックトレースを付与します。
func NewIndexKindError(op, index string) error {
	err := &IndexKindError{Op: op, Index: index}
	return errors.WithStack(err)
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
// 例えば、未知のera/regionラベルやkfold < 2など。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("tournox: %s: %s", e.Op, e.Message)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValueError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("message", e.Message).
		Str("type", "ValueError")
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
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

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrColumnExists は保存先に同名のモデル列が既に存在する場合のエラーです。
	ErrColumnExists = New("model column already exists in store")
)
