package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/localnerve/authorizer-go"
	"github.com/localrally/petitiond/internal/config"
	"github.com/localrally/petitiond/internal/store"
	"github.com/localrally/petitiond/internal/utils"
)

// AuthorizerResolver validates session cookies against an Authorizer
// deployment and maps the session's e-mail to a local user id. It is an
// alternative to TokenResolver for installations fronted by Authorizer.
type AuthorizerResolver struct {
	Store store.Store

	cfg    *config.Config
	client *authorizer.AuthorizerClient
	once   sync.Once
}

// NewAuthorizerResolver builds a resolver; the Authorizer client itself is
// initialized lazily on the first Resolve call.
func NewAuthorizerResolver(cfg *config.Config, st store.Store) *AuthorizerResolver {
	return &AuthorizerResolver{Store: st, cfg: cfg}
}

func (r *AuthorizerResolver) init() error {
	var initErr error
	r.once.Do(func() {
		// Ping the Authorizer service first
		if err := utils.PingAuthorizer(r.cfg.AuthzURL); err != nil {
			initErr = fmt.Errorf("authorizer ping failed: %w", err)
			return
		}

		redirectURL := r.cfg.AuthzRedirectURL
		log.Printf("Initializing Authorizer: authorizerURL=%s, clientID=%s, redirectURL=%s",
			r.cfg.AuthzURL, r.cfg.AuthzClientID, redirectURL)

		client, err := authorizer.NewAuthorizerClient(r.cfg.AuthzClientID, r.cfg.AuthzURL, redirectURL, nil)
		if err != nil {
			initErr = fmt.Errorf("failed to create authorizer client: %w", err)
			return
		}
		r.client = client
	})
	if initErr != nil {
		return initErr
	}
	if r.client == nil {
		return fmt.Errorf("authorizer client not initialized")
	}
	return nil
}

func (r *AuthorizerResolver) Resolve(ctx context.Context, credential string) (int64, error) {
	if credential == "" {
		return 0, ErrUnresolved
	}
	if err := r.init(); err != nil {
		return 0, err
	}

	res, err := r.client.ValidateSession(&authorizer.ValidateSessionInput{
		Cookie: credential,
	})
	if err != nil {
		log.Printf("session validation failed: %v", err)
		return 0, ErrUnresolved
	}
	if res == nil || !res.IsValid {
		return 0, ErrUnresolved
	}

	// The SDK user payload carries the session e-mail; round-trip through
	// JSON so only the field we need is coupled.
	raw, err := json.Marshal(res.User)
	if err != nil {
		return 0, fmt.Errorf("decode authorizer user: %w", err)
	}
	var payload struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return 0, fmt.Errorf("decode authorizer user: %w", err)
	}
	if payload.Email == "" {
		return 0, ErrUnresolved
	}

	user, err := r.Store.WithContext(ctx).UserByEmail(payload.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrUnresolved
		}
		return 0, err
	}
	return user.ID, nil
}
