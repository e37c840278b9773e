package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/outreach/internal/domain"
	"github.com/felixgeelhaar/outreach/internal/form"
	"github.com/felixgeelhaar/outreach/internal/session"
)

// cmdLogin authenticates and persists the session
func cmdLogin(ctx context.Context, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if st := a.Container.State(); st.IsAuthenticated {
		fmt.Printf("✓ Already logged in as %s\n", st.User.DisplayName())
		return nil
	}

	p := newPrompter()
	var f form.Credentials
	if len(args) > 0 {
		f.Email = args[0]
	} else if f.Email, err = p.ask("Email", ""); err != nil {
		return err
	}
	if f.Password, err = p.secret("Password"); err != nil {
		return err
	}

	creds, err := f.Domain()
	if err != nil {
		return err
	}

	st := a.Container.LoginAsync(ctx, creds)
	if !st.IsAuthenticated {
		return errors.New(st.Error)
	}

	fmt.Printf("✓ Logged in as %s\n", st.User.DisplayName())
	return nil
}

// cmdLogout clears the session; a running console follows the change
func cmdLogout(ctx context.Context) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.Container.State().IsAuthenticated {
		fmt.Println("Not logged in")
		return nil
	}

	a.Container.LogoutAsync(ctx)
	fmt.Println("✓ Logged out")
	return nil
}

// cmdRegister creates an admin account. It does not log in.
func cmdRegister(ctx context.Context) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	p := newPrompter()
	var f form.Registration
	if f.Name, err = p.ask("Name", ""); err != nil {
		return err
	}
	if f.Email, err = p.ask("Email", ""); err != nil {
		return err
	}
	if f.Phone, err = p.ask("Phone (optional)", ""); err != nil {
		return err
	}
	if f.Department, err = p.ask("Department (optional)", ""); err != nil {
		return err
	}
	if f.Password, err = p.secret(fmt.Sprintf("Password (min %d characters)", form.MinPasswordLength)); err != nil {
		return err
	}
	if f.ConfirmPassword, err = p.secret("Confirm password"); err != nil {
		return err
	}

	reg, err := f.Domain()
	if err != nil {
		return err
	}

	if st := a.Container.RegisterAsync(ctx, reg); st.Error != "" {
		return errors.New(st.Error)
	}

	fmt.Println("✓ Account created")
	fmt.Println("Log in with 'outreach login " + reg.Email + "'")
	return nil
}

// cmdStatus shows the session as both sources see it
func cmdStatus() error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	st := a.Container.State()
	info := session.InspectToken(st.Token, time.Now())

	fmt.Println("Session")
	fmt.Println("=======")
	if st.IsAuthenticated {
		fmt.Printf("User:      %s <%s>\n", st.User.DisplayName(), st.User.Email)
		fmt.Printf("Token:     %s\n", info.Preview)
		if info.JWT {
			if info.Subject != "" {
				fmt.Printf("Subject:   %s\n", info.Subject)
			}
			if info.ExpiresAt != nil {
				state := "valid"
				if info.Expired {
					state = "expired"
				}
				fmt.Printf("Expires:   %s (%s)\n", info.ExpiresAt.Local().Format(time.RFC1123), state)
			}
		}
	} else {
		fmt.Println("User:      not logged in")
	}
	fmt.Printf("Persisted: %t\n", a.Store.IsAuthenticated())
	if keys, err := a.Store.Keys(); err != nil {
		fmt.Printf("Keys:      unreadable (%v)\n", err)
	} else if len(keys) > 0 {
		fmt.Printf("Keys:      %s\n", strings.Join(keys, ", "))
	}
	fmt.Printf("Storage:   %s\n", a.Config.Storage.Backend)
	fmt.Printf("API:       %s\n", a.Client.BaseURL())

	console := "stopped"
	if isRunning(consoleAddr(a.Config)) {
		console = "running at " + consoleAddr(a.Config)
	}
	fmt.Printf("Console:   %s\n", console)
	return nil
}

// cmdProfile shows or edits the signed-in admin's profile
func cmdProfile(ctx context.Context, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := requireSession(a); err != nil {
		return err
	}

	if len(args) > 0 && args[0] == "edit" {
		return editProfile(ctx, a.Container)
	}
	if len(args) > 0 {
		return fmt.Errorf("unknown profile command: %s", args[0])
	}

	st := a.Container.GetProfileAsync(ctx)
	if st.Error != "" {
		return errors.New(st.Error)
	}
	printUser(st.User)
	return nil
}

func editProfile(ctx context.Context, c *session.Container) error {
	f := form.ProfileFrom(c.State().User)

	p := newPrompter()
	var err error
	if f.Name, err = p.ask("Name", f.Name); err != nil {
		return err
	}
	if f.Email, err = p.ask("Email", f.Email); err != nil {
		return err
	}
	if f.Phone, err = p.ask("Phone", f.Phone); err != nil {
		return err
	}
	if f.Department, err = p.ask("Department", f.Department); err != nil {
		return err
	}

	update, err := f.Domain()
	if err != nil {
		return err
	}

	st := c.UpdateProfileAsync(ctx, update)
	if st.Error != "" {
		return errors.New(st.Error)
	}
	fmt.Println("✓ Profile updated")
	printUser(st.User)
	return nil
}

// cmdPassword changes the signed-in admin's password
func cmdPassword(ctx context.Context) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := requireSession(a); err != nil {
		return err
	}

	p := newPrompter()
	var f form.PasswordChange
	if f.CurrentPassword, err = p.secret("Current password"); err != nil {
		return err
	}
	if f.NewPassword, err = p.secret("New password"); err != nil {
		return err
	}
	if f.ConfirmPassword, err = p.secret("Confirm new password"); err != nil {
		return err
	}

	change, err := f.Domain()
	if err != nil {
		return err
	}

	if st := a.Container.ChangePasswordAsync(ctx, change); st.Error != "" {
		return errors.New(st.Error)
	}
	fmt.Println("✓ Password changed")
	return nil
}

func printUser(u *domain.User) {
	if u == nil {
		return
	}
	fmt.Printf("Name:       %s\n", u.Name)
	fmt.Printf("Email:      %s\n", u.Email)
	if u.Phone != "" {
		fmt.Printf("Phone:      %s\n", u.Phone)
	}
	if u.Department != "" {
		fmt.Printf("Department: %s\n", u.Department)
	}
	if u.Role != "" {
		fmt.Printf("Role:       %s\n", u.Role)
	}
	if u.CreatedAt != nil {
		fmt.Printf("Joined:     %s\n", u.CreatedAt.Local().Format("2006-01-02"))
	}
}
