package scraper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

var ErrBadPassword = errors.New("wrong password")

// Fixture is the YAML document a FixtureSession serves:
//
//	accounts:
//	  chandelier: hunter2
//	profiles:
//	  - id: "17841400000"
//	    username: chandelier
//	    followers: 10
//	    posts:
//	      - shortcode: C1a2b3
//	        caption: brass, six arms
type Fixture struct {
	// Accounts maps usernames to passwords. When empty any login succeeds.
	Accounts map[string]string `yaml:"accounts"`
	Profiles []FixtureProfile  `yaml:"profiles"`
}

type FixtureProfile struct {
	ProfileInfo `yaml:",inline"`

	Posts []Post `yaml:"posts"`
}

// FixtureSession serves canned profiles and posts. It stands in for the
// real service in tests and offline runs.
type FixtureSession struct {
	mut      sync.Mutex
	fixture  Fixture
	creds    *Credentials
	loggedIn bool
	calls    []string
}

var _ Session = (*FixtureSession)(nil)

func NewFixtureSession(fixture Fixture) *FixtureSession {
	return &FixtureSession{fixture: fixture}
}

// LoadFixture reads a YAML fixture from path.
func LoadFixture(path string) (*FixtureSession, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}

	var fixture Fixture
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return nil, fmt.Errorf("parsing fixture %s: %w", path, err)
	}

	return NewFixtureSession(fixture), nil
}

func (f *FixtureSession) record(call string) {
	f.calls = append(f.calls, call)
}

// Calls lists the session methods called so far, in order.
func (f *FixtureSession) Calls() []string {
	f.mut.Lock()
	defer f.mut.Unlock()

	return append([]string(nil), f.calls...)
}

func (f *FixtureSession) Authenticate(creds Credentials) {
	f.mut.Lock()
	defer f.mut.Unlock()

	f.record("authenticate")
	f.creds = &creds
}

func (f *FixtureSession) Login(ctx context.Context) error {
	f.mut.Lock()
	defer f.mut.Unlock()

	f.record("login")

	if err := ctx.Err(); err != nil {
		return err
	}

	if f.creds == nil {
		return ErrNotAuthenticated
	}

	if len(f.fixture.Accounts) > 0 {
		want, ok := f.fixture.Accounts[f.creds.Username]
		if !ok || want != f.creds.Password {
			return fmt.Errorf("%w for %s", ErrBadPassword, f.creds.Username)
		}
	}

	f.loggedIn = true

	return nil
}

func (f *FixtureSession) profile(match func(FixtureProfile) bool) (FixtureProfile, bool) {
	for _, profile := range f.fixture.Profiles {
		if match(profile) {
			return profile, true
		}
	}

	return FixtureProfile{}, false
}

func (f *FixtureSession) FetchProfileInfo(ctx context.Context, name string) (ProfileInfo, error) {
	f.mut.Lock()
	defer f.mut.Unlock()

	f.record("profile:" + name)

	if err := ctx.Err(); err != nil {
		return ProfileInfo{}, err
	}

	if !f.loggedIn {
		return ProfileInfo{}, ErrNotLoggedIn
	}

	profile, ok := f.profile(func(p FixtureProfile) bool { return p.Username == name })
	if !ok {
		return ProfileInfo{}, fmt.Errorf("profile %s: %w", name, ErrNotFound)
	}

	return profile.ProfileInfo, nil
}

func (f *FixtureSession) FetchItems(ctx context.Context, profileID string, limit int) ([]Post, error) {
	f.mut.Lock()
	defer f.mut.Unlock()

	f.record("items:" + profileID)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !f.loggedIn {
		return nil, ErrNotLoggedIn
	}

	profile, ok := f.profile(func(p FixtureProfile) bool { return p.ID == profileID })
	if !ok {
		return nil, fmt.Errorf("profile id %s: %w", profileID, ErrNotFound)
	}

	posts := profile.Posts
	if limit >= 0 && len(posts) > limit {
		posts = posts[:limit]
	}

	return append([]Post(nil), posts...), nil
}

func (f *FixtureSession) Logout(ctx context.Context) error {
	f.mut.Lock()
	defer f.mut.Unlock()

	f.record("logout")

	if err := ctx.Err(); err != nil {
		return err
	}

	if !f.loggedIn {
		return ErrNotLoggedIn
	}

	f.loggedIn = false

	return nil
}
