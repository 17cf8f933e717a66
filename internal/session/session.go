package session

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vtabsquare/officetool/internal/domain"
	"github.com/vtabsquare/officetool/internal/store"
)

const (
	CookieName    = "officetool_session"
	authKey       = "auth"
	tokenLifetime = 7 * 24 * time.Hour
	renewWithin   = 24 * time.Hour
)

var ErrNoSession = errors.New("no session")

type authRecord struct {
	Authenticated bool        `json:"authenticated"`
	User          domain.User `json:"user"`
}

// Manager owns the authenticated user: one process-wide record, written by
// the login flow only, mirrored to the durable store under "auth".
type Manager struct {
	durable *store.Durable
	secret  []byte
	mu      sync.Mutex
	current *domain.User
}

func NewManager(durable *store.Durable, secret []byte) (*Manager, error) {
	if len(secret) == 0 {
		return nil, errors.New("session secret is required")
	}
	m := &Manager{durable: durable, secret: secret}
	var record authRecord
	ok, err := durable.Get(authKey, &record)
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	if ok && record.Authenticated {
		user := record.User
		user.ID = domain.NormalizeEmployeeID(user.ID)
		m.current = &user
	}
	return m, nil
}

func (m *Manager) Login(user domain.User) error {
	user.ID = domain.NormalizeEmployeeID(user.ID)
	m.mu.Lock()
	m.current = &user
	m.mu.Unlock()
	return m.durable.Set(authKey, authRecord{Authenticated: true, User: user})
}

func (m *Manager) Logout() error {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()
	return m.durable.Delete(authKey)
}

func (m *Manager) Current() *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// IssueToken signs a session JWT for user.
func (m *Manager) IssueToken(user domain.User, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":     domain.NormalizeEmployeeID(user.ID),
		"name":    user.Name,
		"email":   user.Email,
		"admin":   user.Roles.Admin,
		"manager": user.Roles.Manager,
		"l3":      user.Roles.L3,
		"exp":     now.Add(tokenLifetime).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// ParseToken validates a session JWT. When less than a day of validity
// remains it also returns a renewed token for the caller to re-set.
func (m *Manager) ParseToken(raw string, now time.Time) (*domain.User, string, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, "", ErrNoSession
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, "", ErrNoSession
	}
	user := domain.User{
		ID:    stringClaim(claims, "sub"),
		Name:  stringClaim(claims, "name"),
		Email: stringClaim(claims, "email"),
		Roles: domain.RoleFlags{
			Admin:   boolClaim(claims, "admin"),
			Manager: boolClaim(claims, "manager"),
			L3:      boolClaim(claims, "l3"),
		},
	}
	if user.ID == "" {
		return nil, "", ErrNoSession
	}

	renewed := ""
	if exp, ok := claims["exp"].(float64); ok {
		if time.Unix(int64(exp), 0).Sub(now) < renewWithin {
			renewed, _ = m.IssueToken(user, now)
		}
	}
	return &user, renewed, nil
}

// FromRequest resolves the portal user from the session cookie.
func (m *Manager) FromRequest(r *http.Request) (*domain.User, string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, "", ErrNoSession
	}
	return m.ParseToken(cookie.Value, time.Now())
}

func SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

func boolClaim(claims jwt.MapClaims, key string) bool {
	v, ok := claims[key].(bool)
	return ok && v
}
