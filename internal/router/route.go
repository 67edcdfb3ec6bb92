// Package router binds URL patterns to loaders and actions and runs navigations
// against them.
package router

import (
	"context"
	"net/url"
)

// Params are the path parameters of a match, e.g. {"orderId": "ABC123"}.
type Params map[string]string

// Args is what a loader receives.
type Args struct {
	Params  Params
	Session string
	URL     *url.URL
}

// Submission is what an action receives.
type Submission struct {
	Args
	Form url.Values
}

type LoaderFunc func(ctx context.Context, args Args) (any, error)

type ActionFunc func(ctx context.Context, sub Submission) (ActionResult, error)

// ActionResult is either a redirect target or data bound back into the submitting view.
type ActionResult struct {
	Redirect string
	Data     any
}

func Redirect(location string) ActionResult {
	return ActionResult{Redirect: location}
}

func Data(v any) ActionResult {
	return ActionResult{Data: v}
}

// Route is one entry of the route table. An empty Path makes it a pathless layout that
// matches whenever one of its children does. Paths starting with "/" are absolute,
// others are relative to the parent.
type Route struct {
	ID        string
	Path      string
	View      string
	Loader    LoaderFunc
	Action    ActionFunc
	ErrorView string
	Children  []*Route
}

// Match is one segment of a resolved route chain.
type Match struct {
	Route    *Route
	Params   Params
	Pathname string
	Data     any
}
