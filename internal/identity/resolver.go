// Package identity resolves opaque caller credentials to local user ids.
// The service layer consumes the resolved id only; credential issuance and
// password handling live outside this process.
package identity

import (
	"context"
	"errors"

	"github.com/localrally/petitiond/internal/store"
)

// ErrUnresolved is returned when a credential does not map to a user.
var ErrUnresolved = errors.New("identity: credential did not resolve")

// Resolver maps an opaque credential to a user id.
type Resolver interface {
	Resolve(ctx context.Context, credential string) (int64, error)
}

// TokenResolver resolves X-Authorization tokens against the auth_token
// column of the user table.
type TokenResolver struct {
	Store store.Store
}

func (r *TokenResolver) Resolve(ctx context.Context, credential string) (int64, error) {
	if credential == "" {
		return 0, ErrUnresolved
	}
	user, err := r.Store.WithContext(ctx).UserByToken(credential)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrUnresolved
		}
		return 0, err
	}
	return user.ID, nil
}
