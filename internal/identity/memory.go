package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// memoryAccount はMemoryProviderが保持するアカウント。
type memoryAccount struct {
	id           string
	email        string
	passwordHash []byte
}

// MemoryProvider はプロセス内で完結するProvider実装。
// ローカル開発とIDENTITY_PROVIDER=memory での起動に使う。
type MemoryProvider struct {
	mu       sync.RWMutex
	accounts map[string]*memoryAccount // subject ID -> account
	byEmail  map[string]string         // lower(email) -> subject ID
	cost     int
}

// NewMemoryProvider はMemoryProviderを生成する。
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		accounts: make(map[string]*memoryAccount),
		byEmail:  make(map[string]string),
		cost:     bcrypt.DefaultCost,
	}
}

// CreateAccount はアカウントを作成する。
func (p *MemoryProvider) CreateAccount(ctx context.Context, email, password string) (*Account, error) {
	key := normalizeEmail(email)
	if key == "" || password == "" {
		return nil, fmt.Errorf("email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.byEmail[key]; exists {
		return nil, fmt.Errorf("%w: %s", ErrEmailTaken, email)
	}

	acct := &memoryAccount{id: uuid.New().String(), email: email, passwordHash: hash}
	p.accounts[acct.id] = acct
	p.byEmail[key] = acct.id

	return &Account{SubjectID: acct.id, Email: acct.email}, nil
}

// DeleteAccount はアカウントを削除する。
func (p *MemoryProvider) DeleteAccount(ctx context.Context, subjectID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.accounts[subjectID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, subjectID)
	}
	delete(p.byEmail, normalizeEmail(acct.email))
	delete(p.accounts, subjectID)
	return nil
}

// UpdateEmail はアカウントのメールアドレスを変更する。
func (p *MemoryProvider) UpdateEmail(ctx context.Context, subjectID, email string) error {
	key := normalizeEmail(email)
	if key == "" {
		return fmt.Errorf("email is required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.accounts[subjectID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, subjectID)
	}
	if owner, exists := p.byEmail[key]; exists && owner != subjectID {
		return fmt.Errorf("%w: %s", ErrEmailTaken, email)
	}

	delete(p.byEmail, normalizeEmail(acct.email))
	acct.email = email
	p.byEmail[key] = subjectID
	return nil
}

// Authenticate はメールアドレスとパスワードを検証する。
func (p *MemoryProvider) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	p.mu.RLock()
	id, ok := p.byEmail[normalizeEmail(email)]
	var acct *memoryAccount
	if ok {
		acct = p.accounts[id]
	}
	p.mu.RUnlock()

	if acct == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &Account{SubjectID: acct.id, Email: acct.email}, nil
}

// FindByEmail はメールアドレスでアカウントを検索する。見つからない場合はnilを返す。
func (p *MemoryProvider) FindByEmail(email string) *Account {
	p.mu.RLock()
	defer p.mu.RUnlock()

	id, ok := p.byEmail[normalizeEmail(email)]
	if !ok {
		return nil
	}
	acct := p.accounts[id]
	return &Account{SubjectID: acct.id, Email: acct.email}
}

// Count は登録済みアカウント数を返す。
func (p *MemoryProvider) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.accounts)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// compile-time interface check
var _ Provider = (*MemoryProvider)(nil)
