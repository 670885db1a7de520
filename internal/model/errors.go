// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
	"strings"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string   // エラーコード
	Message  string   // エラーメッセージ
	Category string   // カテゴリ: auth, validation, resource, identity, system
	Action   string   // ユーザー向け対処方法
	Fields   []string // 検証エラーの対象フィールド
	Err      error    // 内部原因（レスポンスには含めない）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap は内部原因を返す。
func (e *APIError) Unwrap() error {
	return e.Err
}

// 定義済みエラーコード
const (
	ErrCodeUnauthenticated        = "UNAUTHENTICATED"
	ErrCodeForbidden              = "FORBIDDEN"
	ErrCodePermissionCheckFailed  = "PERMISSION_CHECK_FAILED"
	ErrCodeInvalidCredentials     = "INVALID_CREDENTIALS"
	ErrCodeValidation             = "VALIDATION_ERROR"
	ErrCodeNothingToUpdate        = "NOTHING_TO_UPDATE"
	ErrCodeInvalidRequest         = "INVALID_REQUEST"
	ErrCodeInvalidQuery           = "INVALID_QUERY"
	ErrCodePasswordMismatch       = "PASSWORD_MISMATCH"
	ErrCodeNotFound               = "NOT_FOUND"
	ErrCodeIdentityCreationFailed = "IDENTITY_CREATION_FAILED"
	ErrCodeProfileCreationFailed  = "PROFILE_CREATION_FAILED"
	ErrCodeIdentityProvider       = "IDENTITY_PROVIDER_ERROR"
	ErrCodeStore                  = "STORE_ERROR"
	ErrCodeCSRF                   = "CSRF"
	ErrCodeRateLimited            = "RATE_LIMITED"
	ErrCodeInternal               = "INTERNAL_ERROR"
)

// NewUnauthenticatedError は未認証エラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "No autenticado.",
		Category: "auth",
		Action:   "Inicia sesión para continuar.",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "No tienes permisos para realizar esta acción.",
		Category: "auth",
		Action:   "Solicita acceso a un administrador.",
	}
}

// NewPermissionCheckFailedError はロール確認に失敗した場合のエラーを生成する。
func NewPermissionCheckFailedError(err error) *APIError {
	return &APIError{
		Code:     ErrCodePermissionCheckFailed,
		Message:  "No se pudieron verificar los permisos.",
		Category: "auth",
		Action:   "Vuelve a intentarlo más tarde.",
		Err:      err,
	}
}

// NewInvalidCredentialsError は認証情報が不正な場合のエラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Credenciales inválidas.",
		Category: "auth",
		Action:   "Revisa tu correo y contraseña.",
	}
}

// NewMissingFieldsError は必須フィールド欠落エラーを生成する。
func NewMissingFieldsError(fields []string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("Faltan campos requeridos: %s", strings.Join(fields, ", ")),
		Category: "validation",
		Action:   "Completa todos los campos obligatorios.",
		Fields:   fields,
	}
}

// NewInvalidFieldError はフィールド値が不正な場合のエラーを生成する。
func NewInvalidFieldError(field, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("Valor inválido para %s: %s", field, reason),
		Category: "validation",
		Action:   "Corrige el valor del campo indicado.",
		Fields:   []string{field},
	}
}

// NewNothingToUpdateError は更新対象フィールドが存在しない場合のエラーを生成する。
func NewNothingToUpdateError() *APIError {
	return &APIError{
		Code:     ErrCodeNothingToUpdate,
		Message:  "No hay campos para actualizar.",
		Category: "validation",
		Action:   "Envía al menos un campo con valor.",
	}
}

// NewInvalidRequestError はリクエストボディが解釈できない場合のエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("Solicitud inválida: %s", reason),
		Category: "validation",
		Action:   "Envía un cuerpo JSON válido.",
	}
}

// NewInvalidQueryError は一覧クエリのパラメータが不正な場合のエラーを生成する。
func NewInvalidQueryError(param, value string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidQuery,
		Message:  fmt.Sprintf("Parámetro de consulta inválido %s=%q", param, value),
		Category: "validation",
		Action:   "Revisa los parámetros de búsqueda, filtro y orden.",
		Fields:   []string{param},
	}
}

// NewPasswordMismatchError はパスワード確認が一致しない場合のエラーを生成する。
func NewPasswordMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodePasswordMismatch,
		Message:  "Las contraseñas no coinciden.",
		Category: "validation",
		Action:   "Escribe la misma contraseña en ambos campos.",
		Fields:   []string{"conf_password"},
	}
}

// NewNotFoundError はリソースが見つからない場合のエラーを生成する。
func NewNotFoundError(resource, id string) *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("No se encontró %s: %s", resource, id),
		Category: "resource",
		Action:   "Verifica el identificador.",
	}
}

// NewIdentityCreationFailedError はIdPでのアカウント作成失敗エラーを生成する。
func NewIdentityCreationFailedError(err error) *APIError {
	return &APIError{
		Code:     ErrCodeIdentityCreationFailed,
		Message:  "No se pudo crear la cuenta de acceso.",
		Category: "identity",
		Action:   "Verifica que el correo no esté registrado e inténtalo de nuevo.",
		Err:      err,
	}
}

// NewProfileCreationFailedError はプロフィール作成失敗エラーを生成する。
// IdPアカウントは補償処理で削除済みであることを前提とする。
func NewProfileCreationFailedError(err error) *APIError {
	return &APIError{
		Code:     ErrCodeProfileCreationFailed,
		Message:  "No se pudo crear el perfil del usuario.",
		Category: "identity",
		Action:   "Inténtalo de nuevo más tarde.",
		Err:      err,
	}
}

// NewIdentityProviderError はIdP呼び出しの失敗エラーを生成する。
func NewIdentityProviderError(err error) *APIError {
	return &APIError{
		Code:     ErrCodeIdentityProvider,
		Message:  "El proveedor de identidad no respondió correctamente.",
		Category: "identity",
		Action:   "Inténtalo de nuevo más tarde.",
		Err:      err,
	}
}

// NewStoreError はデータストア操作の失敗エラーを生成する。
func NewStoreError(err error) *APIError {
	return &APIError{
		Code:     ErrCodeStore,
		Message:  "Error al acceder a los datos.",
		Category: "system",
		Action:   "Inténtalo de nuevo más tarde.",
		Err:      err,
	}
}

// AsStoreError はAPIErrorでないエラーをStoreErrorに包む。
// 既にAPIErrorの場合はそのまま返す。
func AsStoreError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return err
	}
	return NewStoreError(err)
}

// HasCode はerrがAPIErrorであり、指定コードを持つかを判定する。
func HasCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}
