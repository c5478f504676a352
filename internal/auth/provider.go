// Package auth resolves bearer credentials for outbound calls.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
)

// ErrNoSession is the cause reported when nobody is signed in.
var ErrNoSession = errors.New("no active session")

// TokenProvider hands out a bearer credential. Callers fetch a fresh one for
// every outbound request and never keep it.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// AuthError reports that the identity session could not be resolved.
type AuthError struct {
	Cause error
}

func (e *AuthError) Error() string {
	if e.Cause == nil {
		return "Authentication failed"
	}
	return "Authentication failed: " + e.Cause.Error()
}

func (e *AuthError) Unwrap() error { return e.Cause }

func authErr(format string, args ...any) error {
	return &AuthError{Cause: fmt.Errorf(format, args...)}
}

// StaticProvider always returns the same token. Useful for development
// against a backend with a long-lived test credential.
type StaticProvider struct {
	token string
}

func NewStaticProvider(token string) *StaticProvider {
	return &StaticProvider{token: strings.TrimSpace(token)}
}

func (p *StaticProvider) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &AuthError{Cause: err}
	}
	if p.token == "" {
		return "", &AuthError{Cause: ErrNoSession}
	}
	return p.token, nil
}

// TokenSourceProvider adapts an oauth2.TokenSource. When IDToken is set the
// OpenID Connect id_token extra is used instead of the access token.
type TokenSourceProvider struct {
	src     oauth2.TokenSource
	IDToken bool
}

func NewTokenSourceProvider(src oauth2.TokenSource) *TokenSourceProvider {
	return &TokenSourceProvider{src: src}
}

func (p *TokenSourceProvider) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &AuthError{Cause: err}
	}
	tok, err := p.src.Token()
	if err != nil {
		return "", &AuthError{Cause: err}
	}
	if p.IDToken {
		if id, ok := tok.Extra("id_token").(string); ok && id != "" {
			return id, nil
		}
		return "", authErr("token response has no id_token")
	}
	if tok.AccessToken == "" {
		return "", authErr("token response has no access token")
	}
	return tok.AccessToken, nil
}
