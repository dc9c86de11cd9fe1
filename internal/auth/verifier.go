package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/go-hclog"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

var ErrNoKeys = errors.New("no token verification configured")

type VerifierOptions struct {
	// Secret verifies HS256 tokens signed with the backend's shared secret.
	Secret string
	// JWKSURL is fetched for asymmetric keys, looked up by kid.
	JWKSURL string
	// KeySet, when set, is used instead of fetching JWKSURL.
	KeySet jwk.Set
}

// Verifier checks access tokens issued by the backend's auth service.
type Verifier struct {
	secret  []byte
	jwksURL string
	log     hclog.Logger

	mu          sync.RWMutex
	keys        jwk.Set
	lastRefresh time.Time
}

func NewVerifier(opts VerifierOptions, logger hclog.Logger) *Verifier {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	v := &Verifier{
		secret:  []byte(opts.Secret),
		jwksURL: opts.JWKSURL,
		keys:    opts.KeySet,
		log:     logger,
	}
	if v.keys == nil && v.jwksURL != "" {
		if err := v.refreshKeys(); err != nil {
			logger.Warn("failed to fetch JWKS on startup", "error", err)
		}
	}
	return v
}

func (v *Verifier) Enabled() bool {
	return len(v.secret) > 0 || v.jwksURL != "" || v.keys != nil
}

func (v *Verifier) refreshKeys() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	set, err := jwk.Fetch(ctx, v.jwksURL)
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	v.mu.Lock()
	v.keys = set
	v.lastRefresh = time.Now()
	v.mu.Unlock()
	return nil
}

func (v *Verifier) lookup(kid string) (any, error) {
	v.mu.RLock()
	set, last := v.keys, v.lastRefresh
	v.mu.RUnlock()

	key, err := findKey(set, kid)
	if err == nil || v.jwksURL == "" {
		return key, err
	}
	// Unknown kid: the key set may have rotated. Refresh at most once a minute.
	if time.Since(last) < time.Minute {
		return nil, err
	}
	if err := v.refreshKeys(); err != nil {
		v.log.Error("refreshing JWKS", "error", err)
		return nil, err
	}
	v.mu.RLock()
	set = v.keys
	v.mu.RUnlock()
	return findKey(set, kid)
}

func findKey(set jwk.Set, kid string) (any, error) {
	if set == nil {
		return nil, fmt.Errorf("JWKS not initialized")
	}
	key, ok := set.LookupKeyID(kid)
	if !ok {
		return nil, fmt.Errorf("key %s not found in JWKS", kid)
	}
	var raw any
	if err := jwk.Export(key, &raw); err != nil {
		return nil, fmt.Errorf("failed to materialize key: %w", err)
	}
	return raw, nil
}

func (v *Verifier) keyfunc(token *jwt.Token) (any, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if len(v.secret) == 0 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA, *jwt.SigningMethodEd25519:
		kid, ok := token.Header["kid"].(string)
		if !ok {
			return nil, fmt.Errorf("token missing 'kid' header")
		}
		return v.lookup(kid)
	default:
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
}

// Claims verifies the token's signature and expiry and returns its claims.
func (v *Verifier) Claims(token string) (map[string]any, error) {
	if !v.Enabled() {
		return nil, ErrNoKeys
	}
	parsed, err := jwt.Parse(token, v.keyfunc, jwt.WithLeeway(30*time.Second))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

func userFromClaims(claims map[string]any) User {
	u := User{}
	u.ID, _ = claims["sub"].(string)
	u.Email, _ = claims["email"].(string)
	u.Role, _ = claims["role"].(string)
	if exp, ok := claims["exp"].(float64); ok {
		u.ExpiresAt = time.Unix(int64(exp), 0).UTC()
	}
	return u
}
