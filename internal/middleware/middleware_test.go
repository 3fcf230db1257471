package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"platerate/internal/services"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer  abc ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer ", "", false},
		{"", "", false},
		{"abc", "", false},
	}
	for _, tt := range tests {
		token, ok := bearerToken(tt.header)
		if token != tt.token || ok != tt.ok {
			t.Errorf("bearerToken(%q) = %q, %v; want %q, %v", tt.header, token, ok, tt.token, tt.ok)
		}
	}
}

// withSession injects a fixed session in place of LoadUser.
func withSession(s services.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.Anonymous() {
			c.Set(SessionKey, s)
		}
		c.Next()
	}
}

func serve(t *testing.T, s services.Session, handlers ...gin.HandlerFunc) int {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	chain := append([]gin.HandlerFunc{withSession(s)}, handlers...)
	chain = append(chain, func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/", chain...)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w.Code
}

func TestAuthAndModeratorRequired(t *testing.T) {
	user := services.Session{UID: "u1"}
	mod := services.Session{UID: "m1", Moderator: true}

	tests := []struct {
		name    string
		session services.Session
		mw      gin.HandlerFunc
		want    int
	}{
		{"anonymous auth", services.Session{}, AuthRequired(), http.StatusUnauthorized},
		{"user auth", user, AuthRequired(), http.StatusOK},
		{"anonymous moderator", services.Session{}, ModeratorRequired(), http.StatusUnauthorized},
		{"user moderator", user, ModeratorRequired(), http.StatusForbidden},
		{"moderator", mod, ModeratorRequired(), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := serve(t, tt.session, tt.mw); got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRateLimitPerCaller(t *testing.T) {
	rl := PerMinute(2)
	alice := services.Session{UID: "alice"}
	bob := services.Session{UID: "bob"}

	for i := 0; i < 2; i++ {
		if got := serve(t, alice, RateLimit(rl)); got != http.StatusOK {
			t.Fatalf("request %d = %d", i+1, got)
		}
	}
	if got := serve(t, alice, RateLimit(rl)); got != http.StatusTooManyRequests {
		t.Errorf("third request = %d, want 429", got)
	}
	if got := serve(t, bob, RateLimit(rl)); got != http.StatusOK {
		t.Errorf("other caller = %d", got)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	rl := PerMinute(0)
	for i := 0; i < 20; i++ {
		if got := serve(t, services.Session{UID: "u"}, RateLimit(rl)); got != http.StatusOK {
			t.Fatalf("request %d limited with limit disabled", i+1)
		}
	}
}
