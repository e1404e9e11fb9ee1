// Package auth resolves an incoming request's bearer token into an
// account context, or an anonymous one when no token is required.
package auth

import (
	"context"
	"errors"

	"github.com/driftline/streamgate/pkg/apierror"
	"github.com/driftline/streamgate/pkg/store"
)

// AccountCtx is the identity attached to a request once the Auth
// Resolver has run. A value with Anonymous set and every other field
// zero represents an unauthenticated viewer on a stream that permits one.
type AccountCtx struct {
	Anonymous          bool
	AccountID          int64
	Acct               string
	ChosenLanguages    []string
	Scopes             []string
	AllowNotifications bool
	DeviceID           *int64
}

// TokenResolver is the subset of store.Store the resolver needs; an
// interface so it can be mocked without a database.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (*store.TokenRow, error)
}

// Resolver resolves a bearer token to an account context.
type Resolver struct {
	store TokenResolver
}

// New builds a Resolver over s.
func New(s TokenResolver) *Resolver {
	return &Resolver{store: s}
}

// Resolve resolves token against the relational store. An empty token
// means the caller found none on the request: if authRequired is true
// that is a missing-token error, otherwise it returns an anonymous
// context. requiredScopes, when non-empty, must intersect the token's
// scopes or resolution fails with insufficient-scope.
func (r *Resolver) Resolve(ctx context.Context, token string, authRequired bool, requiredScopes []string) (*AccountCtx, error) {
	if token == "" {
		if authRequired {
			return nil, apierror.New(apierror.MissingToken, "This method requires an authenticated user")
		}
		return &AccountCtx{Anonymous: true}, nil
	}

	row, err := r.store.ResolveToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrTokenNotFound) {
			return nil, apierror.New(apierror.InvalidToken, "The access token is invalid")
		}
		return nil, apierror.Wrap(apierror.DBUnavailable, err)
	}

	scopes := ParseScopes(row.Scope)
	if !intersects(requiredScopes, scopes) {
		return nil, apierror.New(apierror.InsufficientScope, "This action is outside the authorized scopes")
	}

	return &AccountCtx{
		AccountID:          row.AccountID,
		Acct:               row.Username,
		ChosenLanguages:    row.ChosenLanguages,
		Scopes:             scopes,
		AllowNotifications: allowNotifications(scopes),
		DeviceID:           row.DeviceID,
	}, nil
}
