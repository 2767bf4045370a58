// Package scraper talks to the photo-sharing service the pipeline reads
// posts from.
//
// A Session is stateful and not reentrant: callers serialize access.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	ErrNotAuthenticated = errors.New("no credentials set")
	ErrNotLoggedIn      = errors.New("not logged in")
	ErrNotFound         = errors.New("not found")
)

// Credentials are the login for one account.
type Credentials struct {
	Username string
	Password string
}

// LogValue keeps the password out of logs.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(slog.String("username", c.Username))
}

func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Username: %q}", c.Username)
}

// ProfileInfo describes the account a collection belongs to.
type ProfileInfo struct {
	ID        string `json:"id"        yaml:"id"`
	Username  string `json:"username"  yaml:"username"`
	FullName  string `json:"full_name" yaml:"full_name"`
	Biography string `json:"biography" yaml:"biography"`
	Followers int    `json:"followers" yaml:"followers"`
	Following int    `json:"following" yaml:"following"`
}

// Post is one work item. Shortcode is its identity.
type Post struct {
	ID         string    `json:"id"          yaml:"id"`
	Shortcode  string    `json:"shortcode"   yaml:"shortcode"`
	Caption    string    `json:"caption"     yaml:"caption"`
	DisplayURL string    `json:"display_url" yaml:"display_url"`
	IsVideo    bool      `json:"is_video"    yaml:"is_video"`
	TakenAt    time.Time `json:"taken_at"    yaml:"taken_at"`
}

func (p Post) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("shortcode", p.Shortcode),
		slog.String("id", p.ID),
		slog.Bool("is_video", p.IsVideo))
}

// Session is an authenticated conversation with the service.
type Session interface {
	// Authenticate stores the credentials used by Login.
	Authenticate(creds Credentials)
	Login(ctx context.Context) error
	FetchProfileInfo(ctx context.Context, name string) (ProfileInfo, error)
	// FetchItems returns at most limit of the newest posts of the profile with the given id.
	FetchItems(ctx context.Context, profileID string, limit int) ([]Post, error)
	Logout(ctx context.Context) error
}
