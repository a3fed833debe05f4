// Package access проверяет общий пароль перед запуском партии.
package access

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/Navl-bm/go-oficios/internal/contract"
)

// Gate сверяет введенный пароль с настроенным. Настроенный пароль может
// быть bcrypt-хешем ($2a$/$2b$/$2y$). Пустой пароль отключает проверку.
type Gate struct {
	secret string
}

// NewGate создает проверку для secret.
func NewGate(secret string) *Gate {
	return &Gate{secret: secret}
}

// Enabled сообщает, включена ли проверка.
func (g *Gate) Enabled() bool {
	return g != nil && g.secret != ""
}

// Check возвращает ErrUnauthorized при неверном пароле.
func (g *Gate) Check(password string) error {
	if !g.Enabled() {
		return nil
	}
	if isBcrypt(g.secret) {
		if bcrypt.CompareHashAndPassword([]byte(g.secret), []byte(password)) != nil {
			return contract.Errorf(contract.ErrUnauthorized, nil, "неверный пароль")
		}
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(g.secret), []byte(password)) != 1 {
		return contract.Errorf(contract.ErrUnauthorized, nil, "неверный пароль")
	}
	return nil
}

func isBcrypt(s string) bool {
	for _, p := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// Hash возвращает bcrypt-хеш пароля для файла конфигурации.
func Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
