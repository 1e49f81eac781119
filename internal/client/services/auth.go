// Package services contains application services for the shelfsync client.
// This file defines the authentication service: token login, session resume
// across restarts, liveness probe and housekeeping of the saved session.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/shelfsync/internal/client/client"
	"github.com/dmitrijs2005/shelfsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/shelfsync/internal/dbx"
)

const (
	sessionTokenKey = "session.token"
	sessionUserKey  = "session.user"
)

var ErrNoSession = errors.New("no saved session")

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: present an access token to the server, learn the user id and
//     persist the session locally.
//   - Resume: restore the last saved session without contacting the server.
//   - Logout: forget the saved session.
//   - Ping: check server liveness.
//   - Close: release underlying client resources.
type AuthService interface {
	Login(ctx context.Context, token string) (string, error)
	Resume(ctx context.Context) (string, error)
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// authService is the concrete AuthService backed by a remote Client and the
// local metadata table.
type authService struct {
	client client.Client
	db     *sql.DB

	// token is the one currently serving the session, restored when a
	// Login attempt fails.
	token string
}

// NewAuthService constructs an AuthService bound to the given API client and DB.
func NewAuthService(client client.Client, db *sql.DB) AuthService {
	return &authService{client: client, db: db}
}

func (a *authService) getMetadataRepo() metadata.Repository {
	return metadata.NewSQLiteRepository(a.db)
}

// Login installs token on the client, asks the server whom it belongs to and
// saves token and user id for Resume. On failure the previous token, if
// any, is reinstalled.
func (a *authService) Login(ctx context.Context, token string) (string, error) {
	a.client.SetAccessToken(token)

	userID, err := a.client.WhoAmI(ctx)
	if err != nil {
		a.client.SetAccessToken(a.token)
		return "", fmt.Errorf("login error: %w", err)
	}
	if userID == "" {
		a.client.SetAccessToken(a.token)
		return "", fmt.Errorf("login error: %w", client.ErrUnauthorized)
	}

	if err := a.saveSession(ctx, userID, token); err != nil {
		a.client.SetAccessToken(a.token)
		return "", fmt.Errorf("session saving error: %w", err)
	}
	a.token = token
	return userID, nil
}

// saveSession persists the token and user id in a single transaction.
func (a *authService) saveSession(ctx context.Context, userID, token string) error {
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, sessionUserKey, []byte(userID)); err != nil {
			return err
		}
		return repo.Set(ctx, sessionTokenKey, []byte(token))
	})
}

// Resume restores the saved session and installs its token on the client.
// It returns ErrNoSession when nothing was saved.
func (a *authService) Resume(ctx context.Context) (string, error) {
	repo := a.getMetadataRepo()

	userID, err := repo.Get(ctx, sessionUserKey)
	if err != nil {
		return "", err
	}
	token, err := repo.Get(ctx, sessionTokenKey)
	if err != nil {
		return "", err
	}
	if len(userID) == 0 || len(token) == 0 {
		return "", ErrNoSession
	}

	a.token = string(token)
	a.client.SetAccessToken(a.token)
	return string(userID), nil
}

// Logout forgets the saved session and the client's token.
func (a *authService) Logout(ctx context.Context) error {
	a.token = ""
	a.client.SetAccessToken("")
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Delete(ctx, sessionTokenKey); err != nil {
			return err
		}
		return repo.Delete(ctx, sessionUserKey)
	})
}

// Ping proxies a liveness check to the underlying client.
func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

// Close releases resources held by the underlying client.
func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}
