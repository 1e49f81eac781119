package cli

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/dmitrijs2005/shelfsync/internal/client/client"
	"github.com/dmitrijs2005/shelfsync/internal/client/services"
	"github.com/dmitrijs2005/shelfsync/internal/common"
)

// getSimpleText and getSecret are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getSecret = GetSecret

// Login prompts for an access token, resolves the user it belongs to and
// signs the replica in. The token is wiped before returning.
//
// An unreachable server leaves the current session untouched and switches
// the prompt to offline mode.
func (a *App) Login(ctx context.Context) error {
	token, err := getSecret(os.Stdout, "Enter access token")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(token)

	if len(token) == 0 {
		printlnFn("Empty token")
		return nil
	}

	userID, err := a.authService.Login(ctx, string(token))
	if err != nil {
		if errors.Is(err, client.ErrUnavailable) {
			a.setMode(ctx, ModeOffline)
		}
		printlnFn("Login unsuccessful:", err.Error())
		return err
	}
	a.setMode(ctx, ModeOnline)

	if cur := a.syncService.CurrentUser(); cur != "" && cur != userID {
		a.stopRevalidation()
		if err := a.syncService.SignOut(ctx); err != nil {
			a.logger.Warn(ctx, "sign out of previous user failed", "user", cur, "error", err)
		}
	}

	return a.signIn(ctx, userID)
}

// resume signs in the session saved by a previous Login, if any.
func (a *App) resume(ctx context.Context) {
	userID, err := a.authService.Resume(ctx)
	if err != nil {
		if !errors.Is(err, services.ErrNoSession) {
			a.logger.Warn(ctx, "resume session failed", "error", err)
		}
		return
	}
	_ = a.signIn(ctx, userID)
}

func (a *App) signIn(ctx context.Context, userID string) error {
	hyd, err := a.syncService.SignIn(ctx, userID)
	if err != nil {
		printlnFn("Sign in failed:", err.Error())
		return err
	}

	switch {
	case hyd.FromSnapshot && hyd.Stale:
		printlnFn("Signed in as", userID, "(cached data, refreshing)")
	case hyd.FromSnapshot:
		printlnFn("Signed in as", userID, "(cached data)")
	default:
		printlnFn("Signed in as", userID)
	}
	if len(hyd.Failed) > 0 {
		printlnFn("Could not load:", strings.Join(hyd.Failed, ", "))
	}

	a.startRevalidation(ctx)
	return nil
}

// Logout stops background revalidation, evicts the user's local data and
// forgets the saved session.
func (a *App) Logout(ctx context.Context) error {
	a.stopRevalidation()

	if err := a.syncService.SignOut(ctx); err != nil {
		printlnFn("Logout:", err.Error())
		return err
	}
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	printlnFn("Logged out")
	return nil
}
