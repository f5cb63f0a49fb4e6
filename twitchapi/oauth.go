package twitchapi

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/oauth2"
	twitchoauth "golang.org/x/oauth2/twitch"
)

// UserToken is the outcome of a refresh_token grant for the chat bot's user
// token. The IRC connection needs a user token with chat scopes; the app
// token from TokenSource cannot join chat.
type UserToken struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	Scope        string
}

// RefreshUserToken exchanges a refresh token for a fresh user access token.
// The endpoint can be overridden for tests via endpointURL; pass "" for the
// real Twitch endpoint.
func RefreshUserToken(ctx context.Context, clientID, clientSecret, refreshToken, endpointURL string) (*UserToken, error) {
	if clientID == "" || clientSecret == "" || refreshToken == "" {
		return nil, errors.New("missing clientID/clientSecret/refreshToken")
	}
	endpoint := twitchoauth.Endpoint
	if endpointURL != "" {
		endpoint = oauth2.Endpoint{TokenURL: endpointURL + "/oauth2/token", AuthURL: endpointURL + "/oauth2/authorize"}
	}
	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     endpoint,
	}
	src := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, err
	}
	out := &UserToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
	if out.RefreshToken == "" {
		out.RefreshToken = refreshToken
	}
	if out.Expiry.IsZero() {
		out.Expiry = ComputeExpiry(0)
	}
	if scopes, ok := tok.Extra("scope").([]any); ok {
		parts := make([]string, 0, len(scopes))
		for _, s := range scopes {
			if str, ok := s.(string); ok {
				parts = append(parts, str)
			}
		}
		out.Scope = strings.Join(parts, " ")
	}
	return out, nil
}

// ComputeExpiry returns absolute expiry time from seconds, defaulting to +60m when unknown.
func ComputeExpiry(seconds int) time.Time {
	if seconds <= 0 {
		return time.Now().Add(60 * time.Minute)
	}
	return time.Now().Add(time.Duration(seconds) * time.Second)
}
