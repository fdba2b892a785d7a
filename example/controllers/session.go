package controllers

import (
	"github.com/dmitrymomot/hero"
	"github.com/dmitrymomot/hero/middlewares"
	"github.com/dmitrymomot/hero/pkg/session"
)

// SessionController logs users in and out.
type SessionController struct{}

func (c *SessionController) Routes(r hero.Router) {
	r.POST("/login", "Login", hero.Query("user"))
	r.POST("/logout", "Logout")
}

// Login stores the user on the session. The session is persisted and its
// cookie set when the response is written.
func (c *SessionController) Login(user string, sess *session.Session) (map[string]string, error) {
	if user == "" {
		return nil, hero.ErrBadRequest("user is required")
	}
	sess.SetUser(user)
	return map[string]string{"user": user}, nil
}

func (c *SessionController) Logout(sess *session.Session) *hero.Response {
	sess.SetUser("")
	sess.Flush()
	return hero.NoContent(204)
}

// AccountController serves routes that need a signed-in user.
type AccountController struct{}

func (c *AccountController) Routes(r hero.Router) {
	r.GET("/me", "Me")
}

func (c *AccountController) Middlewares() []string {
	return []string{"Auth"}
}

func (c *AccountController) Me(rc *hero.RequestContext) map[string]string {
	return map[string]string{"user": middlewares.GetPrincipal(rc)}
}
