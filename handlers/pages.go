package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/nijaru/yt-blog/auth"
	"github.com/nijaru/yt-blog/errors"
	"github.com/nijaru/yt-blog/middleware"
	"github.com/nijaru/yt-blog/models"
	pkgerrors "github.com/pkg/errors"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	pageIndex       = "index.html"
	pageLogin       = "login.html"
	pageSignup      = "signup.html"
	pageBlogList    = "blog-list.html"
	pageBlogDetails = "blog-details.html"
	pageError       = "error.html"
)

type pageData struct {
	Title    string
	User     *models.User
	Error    string
	Username string
	Email    string
	Articles []*models.Article
	Article  *models.Article
}

// pages holds one template set per page, each parsed together with the
// shared layout.
type pages struct {
	sets map[string]*template.Template
}

var templateFuncs = template.FuncMap{
	"paragraphs": paragraphs,
}

func loadPages() (*pages, error) {
	p := &pages{sets: make(map[string]*template.Template)}
	for _, name := range []string{pageIndex, pageLogin, pageSignup, pageBlogList, pageBlogDetails, pageError} {
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS, "templates/base.html", "templates/"+name)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "parse template %s", name)
		}
		p.sets[name] = t
	}
	return p, nil
}

// paragraphs splits generated text on blank lines for display.
func paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, block := range strings.Split(text, "\n\n") {
		if block = strings.TrimSpace(block); block != "" {
			out = append(out, block)
		}
	}
	return out
}

// render executes into a buffer first so a template error never leaves a
// half-written page behind.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	t, ok := s.pages.sets[name]
	if !ok {
		middleware.GetLogger(r.Context()).WithField("template", name).Error("Unknown template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		middleware.GetLogger(r.Context()).WithError(err).WithField("template", name).Error("Failed to render template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	message := "Something went wrong"
	if appErr, ok := errors.As(err); ok && appErr.Code < http.StatusInternalServerError {
		message = appErr.Message
	}
	s.render(w, r, errors.StatusCode(err), pageError, pageData{
		Title: "Error",
		User:  auth.PrincipalFromContext(r.Context()),
		Error: message,
	})
}

// handleIndex handles GET /
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, pageIndex, pageData{
		Title: "AI Blog Generator",
		User:  auth.PrincipalFromContext(r.Context()),
	})
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, pageLogin, pageData{Title: "Login"})
}

// handleLogin handles POST /login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLogger(r.Context())

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	user, err := s.accounts.Authenticate(r.Context(), username, password)
	if err != nil {
		logger.WithError(err).WithField("username", username).Warn("Login failed")
		status := http.StatusUnauthorized
		message := "Invalid username or password"
		if !errors.IsUnauthenticated(err) {
			status = errors.StatusCode(err)
			message = "Error logging in"
		}
		s.render(w, r, status, pageLogin, pageData{
			Title:    "Login",
			Error:    message,
			Username: username,
		})
		return
	}

	if err := s.sessions.Issue(w, user); err != nil {
		logger.WithError(err).Error("Failed to issue session")
		s.renderError(w, r, err)
		return
	}

	logger.WithField("user_id", user.ID).Info("User logged in")
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleSignupPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, pageSignup, pageData{Title: "Sign Up"})
}

// handleSignup handles POST /signup
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLogger(r.Context())

	form := auth.SignupForm{
		Username:       strings.TrimSpace(r.PostFormValue("username")),
		Email:          strings.TrimSpace(r.PostFormValue("email")),
		Password:       r.PostFormValue("password"),
		RepeatPassword: r.PostFormValue("repeatPassword"),
	}

	user, err := s.accounts.Signup(r.Context(), form)
	if err != nil {
		logger.WithError(err).WithField("username", form.Username).Warn("Signup failed")
		message := "Error creating account"
		if appErr, ok := errors.As(err); ok && appErr.Code < http.StatusInternalServerError {
			message = appErr.Message
		}
		s.render(w, r, errors.StatusCode(err), pageSignup, pageData{
			Title:    "Sign Up",
			Error:    message,
			Username: form.Username,
			Email:    form.Email,
		})
		return
	}

	if err := s.sessions.Issue(w, user); err != nil {
		logger.WithError(err).Error("Failed to issue session")
		s.renderError(w, r, err)
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// handleLogout handles GET /logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if user := auth.PrincipalFromContext(r.Context()); user != nil {
		middleware.GetLogger(r.Context()).WithField("user_id", user.ID).Info("User logged out")
	}
	s.sessions.Clear(w)
	http.Redirect(w, r, "/", http.StatusFound)
}
