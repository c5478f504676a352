package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/golang-jwt/jwt/v5"
)

type fakeCognito struct {
	out   *cip.InitiateAuthOutput
	err   error
	calls []*cip.InitiateAuthInput
}

func (f *fakeCognito) InitiateAuth(ctx context.Context, params *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error) {
	f.calls = append(f.calls, params)
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func authOutput(idToken string) *cip.InitiateAuthOutput {
	return &cip.InitiateAuthOutput{
		AuthenticationResult: &types.AuthenticationResultType{
			IdToken:     aws.String(idToken),
			AccessToken: aws.String("access"),
		},
	}
}

func TestCognitoTokenReturnsValidStoredToken(t *testing.T) {
	valid := signedToken(t, time.Now().Add(time.Hour))
	store := &MemorySessionStore{}
	_ = store.Save(Session{IDToken: valid, RefreshToken: "refresh"})
	api := &fakeCognito{}

	p := newCognitoProvider(api, "client", store, nil)
	got, err := p.Token(context.Background())
	if err != nil {
		t.Fatalf("Token returned error: %v", err)
	}
	if got != valid {
		t.Fatalf("unexpected token: %s", got)
	}
	if len(api.calls) != 0 {
		t.Fatalf("expected no identity-provider calls, got %d", len(api.calls))
	}
}

func TestCognitoTokenRefreshesExpiredToken(t *testing.T) {
	expired := signedToken(t, time.Now().Add(-time.Minute))
	fresh := signedToken(t, time.Now().Add(time.Hour))
	store := &MemorySessionStore{}
	_ = store.Save(Session{Username: "ana", IDToken: expired, RefreshToken: "refresh"})
	api := &fakeCognito{out: authOutput(fresh)}

	p := newCognitoProvider(api, "client", store, nil)
	got, err := p.Token(context.Background())
	if err != nil {
		t.Fatalf("Token returned error: %v", err)
	}
	if got != fresh {
		t.Fatalf("expected refreshed token")
	}
	if len(api.calls) != 1 {
		t.Fatalf("expected one refresh call, got %d", len(api.calls))
	}
	call := api.calls[0]
	if call.AuthFlow != types.AuthFlowTypeRefreshTokenAuth || call.AuthParameters["REFRESH_TOKEN"] != "refresh" {
		t.Fatalf("unexpected refresh request: %+v", call)
	}

	saved, _ := store.Load()
	if saved.IDToken != fresh || saved.RefreshToken != "refresh" || saved.Username != "ana" {
		t.Fatalf("refreshed session not persisted correctly: %+v", saved)
	}
}

func TestCognitoTokenFailures(t *testing.T) {
	expired := signedToken(t, time.Now().Add(-time.Minute))

	tests := []struct {
		name    string
		session *Session
		api     *fakeCognito
	}{
		{"no session", nil, &fakeCognito{}},
		{"expired without refresh token", &Session{IDToken: expired}, &fakeCognito{}},
		{"provider unreachable", &Session{IDToken: expired, RefreshToken: "r"}, &fakeCognito{err: errors.New("dial tcp: timeout")}},
		{"challenge", &Session{RefreshToken: "r"}, &fakeCognito{out: &cip.InitiateAuthOutput{ChallengeName: types.ChallengeNameTypeNewPasswordRequired}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &MemorySessionStore{}
			if tt.session != nil {
				_ = store.Save(*tt.session)
			}
			p := newCognitoProvider(tt.api, "client", store, nil)
			_, err := p.Token(context.Background())
			var authErr *AuthError
			if !errors.As(err, &authErr) {
				t.Fatalf("expected AuthError, got %v", err)
			}
		})
	}
}

func TestCognitoSignInAndOut(t *testing.T) {
	fresh := signedToken(t, time.Now().Add(time.Hour))
	store := &MemorySessionStore{}
	api := &fakeCognito{out: &cip.InitiateAuthOutput{
		AuthenticationResult: &types.AuthenticationResultType{
			IdToken:      aws.String(fresh),
			RefreshToken: aws.String("refresh"),
		},
	}}

	p := newCognitoProvider(api, "client", store, nil)
	if err := p.SignIn(context.Background(), "ana", "secret"); err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}
	if api.calls[0].AuthFlow != types.AuthFlowTypeUserPasswordAuth {
		t.Fatalf("unexpected auth flow: %s", api.calls[0].AuthFlow)
	}
	sess, err := store.Load()
	if err != nil || sess.Username != "ana" || sess.RefreshToken != "refresh" {
		t.Fatalf("session not stored: %+v %v", sess, err)
	}

	if err := p.SignOut(); err != nil {
		t.Fatalf("SignOut returned error: %v", err)
	}
	if _, err := store.Load(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession after sign out, got %v", err)
	}
}
