package identity

import "context"

// StaticProvider resolves every request to a fixed user. Used when auth is
// disabled for local development and in handler tests; never enable it in
// production configs.
type StaticProvider struct {
	User User
}

func NewStaticProvider(uid string) *StaticProvider {
	return &StaticProvider{User: User{UID: uid, Name: uid, Role: "admin"}}
}

func (p *StaticProvider) Verify(_ context.Context, _ string) (*User, error) {
	if p.User.UID == "" {
		return nil, ErrInvalidToken
	}
	u := p.User
	return &u, nil
}

func (p *StaticProvider) SetRoleClaim(_ context.Context, _, _ string) error {
	return nil
}
