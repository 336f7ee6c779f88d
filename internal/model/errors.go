package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound は対象レコードが存在しない場合に返す。
// ハンドラー層では404に対応づける。
var ErrNotFound = errors.New("record not found")

// ErrForbidden は所有者以外による記事の変更を表す。
// ハンドラー層ではフラッシュエラー付きリダイレクトに対応づける。
var ErrForbidden = errors.New("not authorized")

// ErrInvalidCredentials はログイン失敗を表す。
// メールアドレス不明とパスワード不一致を区別しない。
var ErrInvalidCredentials = errors.New("invalid credentials")

// ValidationError はフォーム入力の検証失敗を表す。
// フィールド名からエラーメッセージへのマップを保持し、
// フォーム再表示時にフィールド単位で表示される。
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError は空のValidationErrorを生成する。
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string]string{}}
}

// Add はフィールドエラーを追加する。同一フィールドへの2回目以降の追加は無視する。
func (e *ValidationError) Add(field, message string) {
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

// HasErrors は1件以上のフィールドエラーを保持しているかを返す。
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// Error はerrorインターフェースを実装する。
func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fmt.Sprintf("validation failed: %s", strings.Join(fields, ", "))
}

// AsValidationError はerrからValidationErrorを取り出す。該当しない場合はnilを返す。
func AsValidationError(err error) *ValidationError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}
