package session

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/outreach/internal/domain"
)

// fakeAPI is a scriptable AuthAPI
type fakeAPI struct {
	loginFn          func(ctx context.Context, creds domain.Credentials) (*domain.AuthPayload, error)
	registerFn       func(ctx context.Context, reg domain.Registration) error
	profileFn        func(ctx context.Context) (*domain.User, error)
	updateProfileFn  func(ctx context.Context, u domain.ProfileUpdate) (*domain.User, error)
	changePasswordFn func(ctx context.Context, c domain.PasswordChange) error
}

var errNotScripted = errors.New("not scripted")

func (f *fakeAPI) Login(ctx context.Context, creds domain.Credentials) (*domain.AuthPayload, error) {
	if f.loginFn == nil {
		return nil, errNotScripted
	}
	return f.loginFn(ctx, creds)
}

func (f *fakeAPI) Register(ctx context.Context, reg domain.Registration) error {
	if f.registerFn == nil {
		return errNotScripted
	}
	return f.registerFn(ctx, reg)
}

func (f *fakeAPI) Profile(ctx context.Context) (*domain.User, error) {
	if f.profileFn == nil {
		return nil, errNotScripted
	}
	return f.profileFn(ctx)
}

func (f *fakeAPI) UpdateProfile(ctx context.Context, u domain.ProfileUpdate) (*domain.User, error) {
	if f.updateProfileFn == nil {
		return nil, errNotScripted
	}
	return f.updateProfileFn(ctx, u)
}

func (f *fakeAPI) ChangePassword(ctx context.Context, c domain.PasswordChange) error {
	if f.changePasswordFn == nil {
		return errNotScripted
	}
	return f.changePasswordFn(ctx, c)
}
