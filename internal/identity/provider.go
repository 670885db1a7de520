// Package identity は外部IdP（アカウントとパスワードの管理者）へのアクセスを提供する。
package identity

import (
	"context"
	"errors"
)

// Account はIdP上のアカウントを表す。
type Account struct {
	SubjectID string
	Email     string
}

// Provider は管理コンソールが利用するIdPの操作。
// 作成したアカウントはメール確認済みとして扱う。
type Provider interface {
	// CreateAccount はメール確認済みのアカウントを作成する。
	CreateAccount(ctx context.Context, email, password string) (*Account, error)
	// DeleteAccount はアカウントを削除する。
	DeleteAccount(ctx context.Context, subjectID string) error
	// UpdateEmail はアカウントのメールアドレスを変更する。
	UpdateEmail(ctx context.Context, subjectID, email string) error
	// Authenticate はメールアドレスとパスワードでアカウントを認証する。
	Authenticate(ctx context.Context, email, password string) (*Account, error)
}

var (
	// ErrEmailTaken はメールアドレスが既に登録済みであることを示す。
	ErrEmailTaken = errors.New("identity: email already registered")
	// ErrAccountNotFound はアカウントが存在しないことを示す。
	ErrAccountNotFound = errors.New("identity: account not found")
	// ErrInvalidCredentials は認証情報が一致しないことを示す。
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
)
