package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hitoshi/fitadmin/internal/model"
)

// ErrTokenDisabled はJWT_SECRET未設定でBearer認証が無効であることを示す。
var ErrTokenDisabled = errors.New("bearer tokens are disabled")

// accessTokenTTL は発行するアクセストークンの有効期間。
const accessTokenTTL = 1 * time.Hour

// Claims はアクセストークンのクレーム。subにIdPのsubject IDを格納する。
// roleは表示用のキャッシュで、認可判定には使わない。
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// TokenVerifier はHS256で署名されたBearerトークンの発行と検証を行う。
type TokenVerifier struct {
	secret []byte
	now    func() time.Time
}

// NewTokenVerifier はTokenVerifierを生成する。secretが空の場合は常にErrTokenDisabledを返す。
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), now: time.Now}
}

// Enabled はBearer認証が有効かを返す。
func (v *TokenVerifier) Enabled() bool {
	return v != nil && len(v.secret) > 0
}

// Issue はsubject ID向けのアクセストークンを発行する。
func (v *TokenVerifier) Issue(subjectID string, role *model.Role) (string, error) {
	if !v.Enabled() {
		return "", ErrTokenDisabled
	}

	now := v.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(accessTokenTTL)),
		},
	}
	if role != nil {
		claims.Role = string(*role)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// Verify はトークンを検証し、呼び出し元のPrincipalを返す。
func (v *TokenVerifier) Verify(tokenString string) (*model.Principal, error) {
	if !v.Enabled() {
		return nil, ErrTokenDisabled
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithTimeFunc(v.now))
	if err != nil {
		return nil, fmt.Errorf("failed to parse access token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("access token is invalid")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("access token has no subject")
	}

	principal := &model.Principal{SubjectID: claims.Subject}
	if r := model.Role(claims.Role); r.Valid() {
		principal.Role = &r
	}
	return principal, nil
}
