package storefront

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/surajb0710/cypress-testing-sauce-demo/internal/fixture"
	"github.com/surajb0710/cypress-testing-sauce-demo/internal/oracle"
	"github.com/surajb0710/cypress-testing-sauce-demo/internal/web"
)

// CookieName carries the session token.
const CookieName = "session-token"

//go:embed templates/*.html
var templateFS embed.FS

var pageFiles = map[Screen]string{
	ScreenLogin:            "login.html",
	ScreenInventory:        "inventory.html",
	ScreenItem:             "item.html",
	ScreenCart:             "cart.html",
	ScreenCheckoutInfo:     "checkout_info.html",
	ScreenCheckoutOverview: "checkout_overview.html",
	ScreenCheckoutComplete: "checkout_complete.html",
}

var pageTitles = map[Screen]string{
	ScreenInventory:        "Products",
	ScreenCart:             "Your Cart",
	ScreenCheckoutInfo:     "Checkout: Your Information",
	ScreenCheckoutOverview: "Checkout: Overview",
	ScreenCheckoutComplete: "Checkout: Complete!",
}

// Server renders a Store as HTML pages whose elements carry data-test
// identifiers.
type Server struct {
	store *Store
	log   *slog.Logger
	pages map[Screen]*template.Template
}

// NewServer parses the page templates for st.
func NewServer(st *Store, log *slog.Logger) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}
	layout, err := template.ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	pages := make(map[Screen]*template.Template, len(pageFiles))
	for screen, file := range pageFiles {
		t, err := template.Must(layout.Clone()).ParseFS(templateFS, "templates/"+file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		pages[screen] = t
	}
	return &Server{store: st, log: log, pages: pages}, nil
}

// Store returns the model behind the server.
func (s *Server) Store() *Store { return s.store }

// Handler returns the storefront router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(web.RequestID)
	r.Use(web.Logging(s.log))
	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.sessionMiddleware)

		r.Get("/", s.handleLoginPage)
		r.Post("/", s.handleLogin)
		r.Post("/dismiss-error", s.handleDismissError)
		r.Post("/logout", s.handleLogout)

		r.Get(ScreenInventory.Path(), s.guarded(ScreenInventory, s.handleInventory))
		r.Get(ScreenItem.Path(), s.guarded(ScreenItem, s.handleItem))
		r.Get(ScreenCart.Path(), s.guarded(ScreenCart, s.handleCart))
		r.Route("/cart", func(r chi.Router) {
			r.Post("/add", s.handleCartChange((*Session).Add))
			r.Post("/remove", s.handleCartChange((*Session).Remove))
		})
		r.Post("/checkout", s.handleCheckout)

		r.Get(ScreenCheckoutInfo.Path(), s.guarded(ScreenCheckoutInfo, s.handleCheckoutInfo))
		r.Post(ScreenCheckoutInfo.Path(), s.handleSubmitInfo)
		r.Get(ScreenCheckoutOverview.Path(), s.guarded(ScreenCheckoutOverview, s.handleOverview))
		r.Post(ScreenCheckoutOverview.Path(), s.handleFinish)
		r.Get(ScreenCheckoutComplete.Path(), s.guarded(ScreenCheckoutComplete, s.handleComplete))
	})

	return r
}

type sessionKey struct{}

func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sess *Session
		if c, err := r.Cookie(CookieName); err == nil {
			sess, _ = s.store.Session(c.Value)
		}
		if sess == nil {
			sess = s.store.NewSession()
			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    sess.Token,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			s.log.Debug("session created", "token", sess.Token)
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

func sessionFrom(r *http.Request) *Session {
	return r.Context().Value(sessionKey{}).(*Session)
}

// guarded applies the navigation guard before rendering screen.
func (s *Server) guarded(screen Screen, h func(http.ResponseWriter, *http.Request, *Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)
		if landed := sess.Visit(screen); landed != screen {
			s.log.Info("guard redirect", "from", screen.Path(), "to", landed.Path())
			http.Redirect(w, r, landed.Path(), http.StatusFound)
			return
		}
		h(w, r, sess)
	}
}

type itemView struct {
	ID       int
	Name     string
	Price    string
	InCart   bool
	AddID    string
	RemoveID string
	Next     string
}

type sortOption struct {
	Value    oracle.SortOrder
	Label    string
	Selected bool
}

type summaryView struct {
	Subtotal string
	Tax      string
	Total    string
}

type pageData struct {
	Title          string
	Authenticated  bool
	Badge          string
	HasBadge       bool
	Banner         string
	Items          []itemView
	Item           *itemView
	SortOptions    []sortOption
	Form           fixture.PersonalInfo
	Summary        *summaryView
	CompleteHeader string
	CompleteText   string
}

func (s *Server) newPage(screen Screen, sess *Session) *pageData {
	badge, ok := sess.Badge()
	return &pageData{
		Title:         pageTitles[screen],
		Authenticated: sess.Authenticated(),
		Badge:         badge,
		HasBadge:      ok,
		Banner:        sess.Banner(),
	}
}

func (s *Server) item(sess *Session, p fixture.Product, next string) itemView {
	return itemView{
		ID:       s.store.ProductID(p.Name),
		Name:     p.Name,
		Price:    p.Price.String(),
		InCart:   sess.InCart(p.Name),
		AddID:    oracle.AddToCartID(p.Name),
		RemoveID: oracle.RemoveID(p.Name),
		Next:     next,
	}
}

func (s *Server) render(w http.ResponseWriter, status int, screen Screen, data *pageData) {
	var buf strings.Builder
	if err := s.pages[screen].ExecuteTemplate(&buf, "layout", data); err != nil {
		s.log.Error("render", "screen", screen.Path(), "err", err)
		web.Error(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	web.JSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.store.Len()})
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.Visit(ScreenLogin)
	s.render(w, http.StatusOK, ScreenLogin, s.newPage(ScreenLogin, sess))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if err := r.ParseForm(); err != nil {
		web.Error(w, http.StatusBadRequest, err)
		return
	}
	username := r.PostForm.Get("user-name")
	if err := sess.Login(r.Context(), username, r.PostForm.Get("password")); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		s.log.Info("login rejected", "username", username, "err", err)
		s.render(w, http.StatusOK, ScreenLogin, s.newPage(ScreenLogin, sess))
		return
	}
	s.log.Info("login", "username", username)
	http.Redirect(w, r, ScreenInventory.Path(), http.StatusSeeOther)
}

func (s *Server) handleDismissError(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.DismissError()
	back := ScreenLogin
	if sess.Screen() == ScreenCheckoutInfo {
		back = ScreenCheckoutInfo
	}
	http.Redirect(w, r, back.Path(), http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.Logout()
	s.store.Drop(sess.Token)
	http.Redirect(w, r, ScreenLogin.Path(), http.StatusSeeOther)
}

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request, sess *Session) {
	if v := r.URL.Query().Get("sort"); v != "" {
		o, err := oracle.ParseSortOrder(v)
		if err != nil {
			web.Error(w, http.StatusBadRequest, err)
			return
		}
		sess.SetSort(o)
	}
	data := s.newPage(ScreenInventory, sess)
	active := sess.SortOrder()
	for _, o := range oracle.SortOrders {
		data.SortOptions = append(data.SortOptions, sortOption{Value: o, Label: o.Label(), Selected: o == active})
	}
	for _, p := range sess.Catalog() {
		data.Items = append(data.Items, s.item(sess, p, ScreenInventory.Path()))
	}
	s.render(w, http.StatusOK, ScreenInventory, data)
}

func (s *Server) handleItem(w http.ResponseWriter, r *http.Request, sess *Session) {
	data := s.newPage(ScreenItem, sess)
	id, err := strconv.Atoi(r.URL.Query().Get("id"))
	if p, ok := s.store.ProductByID(id); err == nil && ok {
		next := ScreenItem.Path() + "?id=" + strconv.Itoa(id)
		v := s.item(sess, p, next)
		data.Item = &v
		s.render(w, http.StatusOK, ScreenItem, data)
		return
	}
	s.render(w, http.StatusNotFound, ScreenItem, data)
}

func (s *Server) handleCart(w http.ResponseWriter, r *http.Request, sess *Session) {
	data := s.newPage(ScreenCart, sess)
	for _, p := range sess.Cart() {
		data.Items = append(data.Items, s.item(sess, p, ScreenCart.Path()))
	}
	s.render(w, http.StatusOK, ScreenCart, data)
}

func (s *Server) handleCartChange(change func(*Session, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)
		if err := r.ParseForm(); err != nil {
			web.Error(w, http.StatusBadRequest, err)
			return
		}
		err := change(sess, r.PostForm.Get("name"))
		switch {
		case errors.Is(err, ErrUnauthenticated):
			http.Redirect(w, r, ScreenLogin.Path(), http.StatusSeeOther)
			return
		case errors.Is(err, ErrUnknownProduct):
			web.ErrorCode(w, http.StatusBadRequest, "unknown_product", err.Error())
			return
		case err != nil:
			web.Error(w, http.StatusBadRequest, err)
			return
		}
		http.Redirect(w, r, safeNext(r.PostForm.Get("next")), http.StatusSeeOther)
	}
}

// safeNext keeps redirects on this host.
func safeNext(next string) string {
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(next, "//") {
		return ScreenInventory.Path()
	}
	return u.String()
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	err := sessionFrom(r).Checkout()
	switch {
	case errors.Is(err, ErrUnauthenticated):
		http.Redirect(w, r, ScreenLogin.Path(), http.StatusSeeOther)
		return
	case err != nil:
		web.ErrorCode(w, http.StatusConflict, "wrong_screen", err.Error())
		return
	}
	http.Redirect(w, r, ScreenCheckoutInfo.Path(), http.StatusSeeOther)
}

func (s *Server) handleCheckoutInfo(w http.ResponseWriter, r *http.Request, sess *Session) {
	s.render(w, http.StatusOK, ScreenCheckoutInfo, s.newPage(ScreenCheckoutInfo, sess))
}

func (s *Server) handleSubmitInfo(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if err := r.ParseForm(); err != nil {
		web.Error(w, http.StatusBadRequest, err)
		return
	}
	info := fixture.PersonalInfo{
		FirstName:  strings.TrimSpace(r.PostForm.Get("firstName")),
		LastName:   strings.TrimSpace(r.PostForm.Get("lastName")),
		PostalCode: strings.TrimSpace(r.PostForm.Get("postalCode")),
	}
	err := sess.SubmitInfo(info)
	switch {
	case err == nil:
		http.Redirect(w, r, ScreenCheckoutOverview.Path(), http.StatusSeeOther)
	case errors.Is(err, ErrMissingField):
		data := s.newPage(ScreenCheckoutInfo, sess)
		data.Form = info
		s.render(w, http.StatusOK, ScreenCheckoutInfo, data)
	case errors.Is(err, ErrUnauthenticated):
		sess.Visit(ScreenCheckoutInfo)
		http.Redirect(w, r, ScreenLogin.Path(), http.StatusSeeOther)
	default:
		web.ErrorCode(w, http.StatusConflict, "wrong_screen", err.Error())
	}
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request, sess *Session) {
	sum, err := sess.Summary()
	if err != nil {
		web.Error(w, http.StatusInternalServerError, err)
		return
	}
	data := s.newPage(ScreenCheckoutOverview, sess)
	for _, p := range sum.Items {
		data.Items = append(data.Items, s.item(sess, p, ScreenCheckoutOverview.Path()))
	}
	data.Summary = &summaryView{
		Subtotal: sum.Subtotal.Text('f'),
		Tax:      sum.Tax.Text('f'),
		Total:    sum.Total.Text('f'),
	}
	s.render(w, http.StatusOK, ScreenCheckoutOverview, data)
}

func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	err := sess.Finish()
	switch {
	case err == nil:
		s.log.Info("order placed", "token", sess.Token)
		http.Redirect(w, r, ScreenCheckoutComplete.Path(), http.StatusSeeOther)
	case errors.Is(err, ErrUnauthenticated):
		sess.Visit(ScreenCheckoutOverview)
		http.Redirect(w, r, ScreenLogin.Path(), http.StatusSeeOther)
	default:
		web.ErrorCode(w, http.StatusConflict, "wrong_screen", err.Error())
	}
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request, sess *Session) {
	data := s.newPage(ScreenCheckoutComplete, sess)
	data.CompleteHeader = CompleteHeader
	data.CompleteText = CompleteText
	s.render(w, http.StatusOK, ScreenCheckoutComplete, data)
}
