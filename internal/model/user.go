// Package model はドメインモデルを定義する。
package model

import "time"

// Role はプロフィールに付与されるロールを表す。
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
)

// Roles は許可されたロールの一覧。
var Roles = []string{string(RoleAdmin), string(RoleClient)}

// Valid は既知のロールかを判定する。
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleClient
}

// Principal は認証済みの呼び出し元を表す。リクエスト単位で生成する。
// Roleは参照用のキャッシュであり、認可判定には使用しない。
type Principal struct {
	SubjectID string
	Role      *Role
}

// Profile はprofilesテーブルの1行を表す。
// AuthIDはIdPのsubject IDで、クライアントには公開しない。
type Profile struct {
	ID        string    `json:"id"`
	AuthID    string    `json:"-"`
	Name      string    `json:"name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Age       *int64    `json:"age,omitempty"`
	Weight    *float64  `json:"weight,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FullName は並び替えに使う「名 姓」形式の表示名を返す。
func (p *Profile) FullName() string {
	if p.LastName == "" {
		return p.Name
	}
	return p.Name + " " + p.LastName
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	SubjectID string
	ExpiresAt time.Time
	CreatedAt time.Time
}
