package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"liefrik/cart-svc/internal/domain"
	"liefrik/cart-svc/internal/storage"

	"github.com/golang-jwt/jwt/v5"
)

var userIDClaims = []string{"userId", "user_id", "id", "_id", "sub"}

// IdentityResolver reads the backend-issued token a session stored under one
// of the auth keys. Tokens are never verified here, the backend does that.
type IdentityResolver struct {
	kv KVStore
}

func NewIdentityResolver(kv KVStore) *IdentityResolver {
	return &IdentityResolver{kv: kv}
}

func (r *IdentityResolver) Resolve(ctx context.Context, session string) domain.Identity {
	for _, key := range domain.AuthKeys {
		raw, err := r.kv.Get(ctx, storage.SessionKey(session, key))
		if err != nil || len(strings.TrimSpace(string(raw))) == 0 {
			continue
		}
		if id := ParseIdentity(string(raw)); id.Token != "" || id.Known() {
			return id
		}
	}
	return domain.Identity{}
}

// SetToken stores value under the primary auth key and returns the identity
// it resolves to.
func (r *IdentityResolver) SetToken(ctx context.Context, session, value string) (domain.Identity, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return domain.Identity{}, invalid("token", ErrTokenRequired)
	}
	if err := r.kv.Set(ctx, storage.SessionKey(session, domain.AuthKeys[0]), []byte(value)); err != nil {
		return domain.Identity{}, fmt.Errorf("store token: %w", err)
	}
	return ParseIdentity(value), nil
}

func (r *IdentityResolver) Clear(ctx context.Context, session string) error {
	var errs []error
	for _, key := range domain.AuthKeys {
		if err := r.kv.Delete(ctx, storage.SessionKey(session, key)); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// ParseIdentity accepts a raw JWT, a JSON string holding one, or an object
// such as {"token": "...", "user": {"id": "..."}}.
func ParseIdentity(value string) domain.Identity {
	value = strings.TrimSpace(value)

	var id domain.Identity
	switch {
	case strings.HasPrefix(value, "{"):
		var obj map[string]any
		if err := json.Unmarshal([]byte(value), &obj); err != nil {
			return id
		}
		id.Token, _ = obj["token"].(string)
		id.UserID = claimUserID(obj)
		if user, ok := obj["user"].(map[string]any); ok && id.UserID == "" {
			id.UserID = claimUserID(user)
		}
	case strings.HasPrefix(value, `"`):
		if err := json.Unmarshal([]byte(value), &id.Token); err != nil {
			return id
		}
	default:
		id.Token = value
	}

	id.Token = strings.TrimSpace(strings.TrimPrefix(id.Token, "Bearer "))
	if id.UserID == "" && id.Token != "" {
		claims := jwt.MapClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(id.Token, claims); err == nil {
			id.UserID = claimUserID(claims)
		}
	}
	return id
}

func claimUserID(claims map[string]any) string {
	for _, name := range userIDClaims {
		switch v := claims[name].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}
