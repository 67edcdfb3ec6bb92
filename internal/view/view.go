// Package view renders engine state as HTML pages.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vasiliy-maslov/fast-pizza/internal/cart"
	"github.com/vasiliy-maslov/fast-pizza/internal/restaurant"
	"github.com/vasiliy-maslov/fast-pizza/internal/router"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

// Page is everything one rendered page needs.
type Page struct {
	Title string
	State router.State
	Cart  cart.Cart
	Now   time.Time
}

// Segment is the data a single route view is executed with.
type Segment struct {
	Page   *Page
	Match  router.Match
	Data   any
	Outlet template.HTML
	// ActionData is only set for the leaf segment.
	ActionData any
}

// Failure is the data the error view is executed with.
type Failure struct {
	Page     *Page
	Err      error
	Status   int
	Message  string
	NotFound bool
}

type Renderer struct {
	templates *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("").Funcs(funcs()).ParseFS(templateFS, "templates/*.gohtml")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{templates: tmpl}, nil
}

// Render writes the page with the status of its error, if any.
func (r *Renderer) Render(w http.ResponseWriter, page Page) error {
	var buf bytes.Buffer
	if err := r.Execute(&buf, &page); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(router.StatusOf(page.State.Err))
	_, err := buf.WriteTo(w)
	return err
}

// Execute renders the route chain from the leaf up, each view wrapped in its parent's
// outlet. The error boundary replaces its route's view, except for a layout, which
// keeps its chrome and shows the error in its outlet.
func (r *Renderer) Execute(w io.Writer, page *Page) error {
	state := page.State
	if page.Now.IsZero() {
		page.Now = time.Now()
	}

	if state.Err != nil && state.Boundary < 0 {
		failure, err := r.failure(page)
		if err != nil {
			return err
		}
		return r.templates.ExecuteTemplate(w, "document", Segment{Page: page, Outlet: failure})
	}

	var outlet template.HTML
	for i := len(state.Matches) - 1; i >= 0; i-- {
		m := state.Matches[i]

		if state.Err != nil && i == state.Boundary {
			failure, err := r.failure(page)
			if err != nil {
				return err
			}
			outlet = failure
			if len(m.Route.Children) == 0 {
				continue
			}
		}

		seg := Segment{Page: page, Match: m, Data: m.Data, Outlet: outlet}
		if i == len(state.Matches)-1 {
			seg.ActionData = state.ActionData
		}

		html, err := r.execute(m.Route.View, seg)
		if err != nil {
			return err
		}
		outlet = html
	}

	return r.templates.ExecuteTemplate(w, "document", Segment{Page: page, Outlet: outlet})
}

func (r *Renderer) execute(name string, data any) (template.HTML, error) {
	if name == "" {
		return "", nil
	}

	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("execute view %q: %w", name, err)
	}
	// Output of html/template is already escaped.
	return template.HTML(buf.String()), nil
}

func (r *Renderer) failure(page *Page) (template.HTML, error) {
	state := page.State
	view := "error"
	if state.Boundary >= 0 {
		view = state.Matches[state.Boundary].Route.ErrorView
	}

	return r.execute(view, Failure{
		Page:     page,
		Err:      state.Err,
		Status:   router.StatusOf(state.Err),
		Message:  router.MessageOf(state.Err),
		NotFound: router.IsNotFound(state.Err),
	})
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"currency": formatCurrency,
		"date":     formatDate,
		"minutesLeft": func(o *restaurant.Order, now time.Time) int {
			return o.MinutesLeft(now)
		},
		"statusText": http.StatusText,
		"join":       strings.Join,
	}
}

func formatCurrency(v float64) string {
	return fmt.Sprintf("€%.2f", v)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("Jan 2, 15:04")
}
