package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/golang-jwt/jwt/v5"
)

// expirySkew treats tokens this close to expiry as already expired.
const expirySkew = 30 * time.Second

// initiateAuthAPI is the subset of the Cognito client used here.
type initiateAuthAPI interface {
	InitiateAuth(ctx context.Context, params *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
}

// CognitoProvider resolves the id token of a Cognito user-pool session,
// refreshing it through the refresh-token flow once it has expired.
type CognitoProvider struct {
	api      initiateAuthAPI
	clientID string
	store    SessionStore
	logger   *slog.Logger
	now      func() time.Time
}

// NewCognitoProvider builds a provider for a public app client. The calls
// used here are unsigned, so no AWS credentials are required.
func NewCognitoProvider(region, clientID string, store SessionStore, logger *slog.Logger) *CognitoProvider {
	client := cip.New(cip.Options{
		Region:      region,
		Credentials: aws.AnonymousCredentials{},
	})
	return newCognitoProvider(client, clientID, store, logger)
}

func newCognitoProvider(api initiateAuthAPI, clientID string, store SessionStore, logger *slog.Logger) *CognitoProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &CognitoProvider{
		api:      api,
		clientID: clientID,
		store:    store,
		logger:   logger,
		now:      time.Now,
	}
}

// Token returns the current id token, refreshing the session when needed.
func (p *CognitoProvider) Token(ctx context.Context) (string, error) {
	sess, err := p.store.Load()
	if err != nil {
		return "", &AuthError{Cause: err}
	}

	if sess.IDToken != "" && !p.expired(sess.IDToken) {
		return sess.IDToken, nil
	}
	if sess.RefreshToken == "" {
		return "", authErr("session expired and cannot be refreshed")
	}

	p.logger.Debug("refreshing identity session", "username", sess.Username)
	out, err := p.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeRefreshTokenAuth,
		ClientId: aws.String(p.clientID),
		AuthParameters: map[string]string{
			"REFRESH_TOKEN": sess.RefreshToken,
		},
	})
	if err != nil {
		return "", &AuthError{Cause: fmt.Errorf("refresh session: %w", err)}
	}
	refreshed, err := sessionFromOutput(out)
	if err != nil {
		return "", &AuthError{Cause: err}
	}

	// Cognito does not rotate the refresh token on this flow.
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = sess.RefreshToken
	}
	refreshed.Username = sess.Username
	if err := p.store.Save(refreshed); err != nil {
		p.logger.Warn("persist refreshed session failed", "err", err)
	}
	return refreshed.IDToken, nil
}

// SignIn authenticates with username and password and stores the session.
func (p *CognitoProvider) SignIn(ctx context.Context, username, password string) error {
	out, err := p.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(p.clientID),
		AuthParameters: map[string]string{
			"USERNAME": username,
			"PASSWORD": password,
		},
	})
	if err != nil {
		return &AuthError{Cause: fmt.Errorf("sign in: %w", err)}
	}
	sess, err := sessionFromOutput(out)
	if err != nil {
		return &AuthError{Cause: err}
	}
	sess.Username = username
	if err := p.store.Save(sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	p.logger.Info("signed in", "username", username)
	return nil
}

// SignOut forgets the stored session.
func (p *CognitoProvider) SignOut() error {
	return p.store.Clear()
}

func (p *CognitoProvider) expired(token string) bool {
	exp, err := tokenExpiry(token)
	if err != nil {
		p.logger.Debug("unreadable id token, forcing refresh", "err", err)
		return true
	}
	return !p.now().Add(expirySkew).Before(exp)
}

// tokenExpiry reads the exp claim without verifying the signature; the
// backend verifies it, the client only needs to know when to refresh.
func tokenExpiry(token string) (time.Time, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, fmt.Errorf("parse token: %w", err)
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("read exp claim: %w", err)
	}
	if exp == nil {
		return time.Time{}, errors.New("token has no exp claim")
	}
	return exp.Time, nil
}

func sessionFromOutput(out *cip.InitiateAuthOutput) (Session, error) {
	if out == nil {
		return Session{}, errors.New("empty authentication response")
	}
	if out.ChallengeName != "" {
		return Session{}, fmt.Errorf("unsupported authentication challenge %s", out.ChallengeName)
	}
	res := out.AuthenticationResult
	if res == nil || aws.ToString(res.IdToken) == "" {
		return Session{}, errors.New("authentication response has no id token")
	}
	return Session{
		IDToken:      aws.ToString(res.IdToken),
		AccessToken:  aws.ToString(res.AccessToken),
		RefreshToken: aws.ToString(res.RefreshToken),
	}, nil
}
