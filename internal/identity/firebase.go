package identity

import (
	"context"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
)

// FirebaseProvider verifies Firebase ID tokens and manages role custom
// claims through the Admin SDK.
type FirebaseProvider struct {
	auth *fbauth.Client
}

func NewFirebaseProvider(ctx context.Context, projectID string) (*FirebaseProvider, error) {
	cfg := &firebase.Config{ProjectID: projectID}
	app, err := firebase.NewApp(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("firebase app init failed: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth init failed: %w", err)
	}
	return &FirebaseProvider{auth: authClient}, nil
}

func (p *FirebaseProvider) Verify(ctx context.Context, idToken string) (*User, error) {
	token, err := p.auth.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	uid := strings.TrimSpace(token.UID)
	if uid == "" {
		return nil, ErrInvalidToken
	}

	user := &User{UID: uid}
	if name, ok := token.Claims["name"].(string); ok {
		user.Name = strings.TrimSpace(name)
	}
	if email, ok := token.Claims["email"].(string); ok {
		user.Email = strings.TrimSpace(email)
	}
	if role, ok := token.Claims["role"].(string); ok {
		user.Role = role
	}
	return user, nil
}

func (p *FirebaseProvider) SetRoleClaim(ctx context.Context, uid, role string) error {
	if err := p.auth.SetCustomUserClaims(ctx, uid, map[string]interface{}{"role": role}); err != nil {
		return fmt.Errorf("failed to set role claim: %w", err)
	}
	return nil
}
