package scraper

import (
	"compress/gzip"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

const sessionCookie = "gateway_session"

// fakeGateway is an in-memory scraping gateway used by the HTTPSession tests.
type fakeGateway struct {
	mut      sync.Mutex
	password string
	profile  ProfileInfo
	posts    []Post
	logins   int
	logouts  int

	// unavailable is how many reads answer 503 before the gateway recovers.
	unavailable int
	reads       int
	// stall delays every read, or until the client hangs up.
	stall time.Duration
}

func newFakeGateway(t *testing.T) (*fakeGateway, *httptest.Server) {
	t.Helper()

	gw := &fakeGateway{
		password: "hunter2",
		profile: ProfileInfo{
			ID:        "17841400000",
			Username:  "chandelier",
			FullName:  "Chandelier Or Not",
			Followers: 1200,
		},
	}

	for i := range 12 {
		gw.posts = append(gw.posts, Post{
			ID:        strconv.Itoa(i),
			Shortcode: "C" + strconv.Itoa(i),
			TakenAt:   time.Date(2024, 3, 1+i, 12, 0, 0, 0, time.UTC),
		})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", gw.login)
	mux.HandleFunc("POST /logout", gw.requireSession(gw.logout))
	mux.HandleFunc("GET /profiles/{name}", gw.requireSession(gw.flaky(gw.getProfile)))
	mux.HandleFunc("GET /profiles/{id}/posts", gw.requireSession(gw.flaky(gw.getPosts)))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return gw, server
}

func (g *fakeGateway) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	if body.Username != g.profile.Username || body.Password != g.password {
		http.Error(w, "bad login", http.StatusForbidden)

		return
	}

	g.mut.Lock()
	g.logins++
	g.mut.Unlock()

	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "s3ss10n", Path: "/"})
	w.WriteHeader(http.StatusNoContent)
}

func (g *fakeGateway) logout(w http.ResponseWriter, _ *http.Request) {
	g.mut.Lock()
	g.logouts++
	g.mut.Unlock()

	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

func (g *fakeGateway) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie(sessionCookie); err != nil {
			http.Error(w, "login first", http.StatusUnauthorized)

			return
		}

		next(w, r)
	}
}

func (g *fakeGateway) flaky(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.mut.Lock()
		g.reads++
		failing := g.unavailable > 0
		if failing {
			g.unavailable--
		}
		stall := g.stall
		g.mut.Unlock()

		if stall > 0 {
			select {
			case <-time.After(stall):
			case <-r.Context().Done():
				return
			}
		}

		if failing {
			http.Error(w, "try again", http.StatusServiceUnavailable)

			return
		}

		next(w, r)
	}
}

func (g *fakeGateway) getProfile(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("name") != g.profile.Username {
		http.NotFound(w, r)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(g.profile)
}

func (g *fakeGateway) getPosts(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("id") != g.profile.ID {
		http.NotFound(w, r)

		return
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		http.Error(w, "bad limit", http.StatusBadRequest)

		return
	}

	posts := g.posts
	if limit < len(posts) {
		posts = posts[:limit]
	}

	w.Header().Set("Content-Type", "application/json")

	if strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		w.Header().Set("Content-Encoding", "gzip")

		gz := gzip.NewWriter(w)
		defer gz.Close()

		_ = json.NewEncoder(gz).Encode(map[string][]Post{"posts": posts})

		return
	}

	_ = json.NewEncoder(w).Encode(map[string][]Post{"posts": posts})
}
