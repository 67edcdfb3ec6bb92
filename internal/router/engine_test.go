package router_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/fast-pizza/internal/router"
	"go.uber.org/atomic"
)

type fixture struct {
	table        *router.Table
	layoutLoads  atomic.Int32
	itemsLoads   atomic.Int32
	itemsGate    chan struct{}
	itemsErr     error
	detailErr    error
	actionCalls  atomic.Int32
	actionGate   chan struct{}
	actionResult router.ActionResult
	actionErr    error
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{}
	table, err := router.NewTable(&router.Route{
		ID:        "root",
		View:      "layout",
		ErrorView: "error",
		Loader: func(ctx context.Context, args router.Args) (any, error) {
			f.layoutLoads.Inc()
			return "chrome", nil
		},
		Children: []*router.Route{
			{ID: "home", Path: "/", View: "home"},
			{
				ID:        "items",
				Path:      "/items",
				View:      "items",
				ErrorView: "error",
				Loader: func(ctx context.Context, args router.Args) (any, error) {
					f.itemsLoads.Inc()
					if f.itemsGate != nil {
						select {
						case <-f.itemsGate:
						case <-ctx.Done():
							return nil, ctx.Err()
						}
					}
					if f.itemsErr != nil {
						return nil, f.itemsErr
					}
					return []string{"Margherita"}, nil
				},
			},
			{
				ID:   "detail",
				Path: "/items/:id",
				View: "detail",
				Loader: func(ctx context.Context, args router.Args) (any, error) {
					if f.detailErr != nil {
						return nil, f.detailErr
					}
					return "item " + args.Params["id"], nil
				},
			},
			{
				ID:        "form",
				Path:      "/form",
				View:      "form",
				ErrorView: "error",
				Action: func(ctx context.Context, sub router.Submission) (router.ActionResult, error) {
					f.actionCalls.Inc()
					if f.actionGate != nil {
						<-f.actionGate
					}
					return f.actionResult, f.actionErr
				},
			},
		},
	})
	require.NoError(t, err)

	f.table = table
	return f
}

func leafID(s router.State) string {
	if len(s.Matches) == 0 {
		return ""
	}
	return s.Matches[len(s.Matches)-1].Route.ID
}

func TestEngine_Navigate_LoadsData(t *testing.T) {
	f := newFixture(t)
	e := router.NewEngine(f.table, "s1")

	assert.Equal(t, -1, e.State().Boundary)

	state, err := e.Navigate(context.Background(), "/items")
	require.NoError(t, err)

	assert.Equal(t, "/items", state.Location)
	assert.Equal(t, router.Idle, state.Navigation)
	assert.NoError(t, state.Err)
	assert.Equal(t, "items", leafID(state))

	data, ok := state.LoaderData("items")
	require.True(t, ok)
	assert.Equal(t, []string{"Margherita"}, data)

	chrome, ok := state.LoaderData("root")
	require.True(t, ok)
	assert.Equal(t, "chrome", chrome)
}

func TestEngine_Navigate_ReusesAncestorsAndReloadsLeaf(t *testing.T) {
	f := newFixture(t)
	e := router.NewEngine(f.table, "s1")
	ctx := context.Background()

	_, err := e.Navigate(ctx, "/items")
	require.NoError(t, err)
	_, err = e.Navigate(ctx, "/")
	require.NoError(t, err)
	state, err := e.Navigate(ctx, "/items")
	require.NoError(t, err)

	assert.Equal(t, int32(1), f.layoutLoads.Load(), "layout must not be re-entered")
	assert.Equal(t, int32(2), f.itemsLoads.Load(), "every navigation to the leaf fetches again")

	// Reading the committed state never fetches.
	_ = e.State()
	_, _ = state.LoaderData("items")
	assert.Equal(t, int32(2), f.itemsLoads.Load())
}

func TestEngine_Navigate_PendingKeepsPreviousView(t *testing.T) {
	f := newFixture(t)
	e := router.NewEngine(f.table, "s1")
	ctx := context.Background()

	_, err := e.Navigate(ctx, "/")
	require.NoError(t, err)

	f.itemsGate = make(chan struct{})
	done := make(chan router.State)
	go func() {
		state, err := e.Navigate(ctx, "/items")
		assert.NoError(t, err)
		done <- state
	}()

	require.Eventually(t, func() bool { return f.itemsLoads.Load() == 1 }, time.Second, time.Millisecond)

	pending := e.State()
	assert.True(t, pending.Pending())
	assert.Equal(t, router.Loading, pending.Navigation)
	assert.Equal(t, "/items", pending.PendingLocation)
	assert.Equal(t, "/", pending.Location)
	assert.Equal(t, "home", leafID(pending))

	close(f.itemsGate)
	state := <-done
	assert.Equal(t, "/items", state.Location)
	assert.False(t, state.Pending())
	assert.Empty(t, state.PendingLocation)
}

func TestEngine_Navigate_LastNavigationWins(t *testing.T) {
	f := newFixture(t)
	e := router.NewEngine(f.table, "s1")
	ctx := context.Background()

	f.itemsGate = make(chan struct{})
	var (
		wg     sync.WaitGroup
		staleE error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, staleE = e.Navigate(ctx, "/items")
	}()
	require.Eventually(t, func() bool { return f.itemsLoads.Load() == 1 }, time.Second, time.Millisecond)

	state, err := e.Navigate(ctx, "/items/7")
	require.NoError(t, err)
	assert.Equal(t, "/items/7", state.Location)

	close(f.itemsGate)
	wg.Wait()

	assert.True(t, errors.Is(staleE, router.ErrSuperseded))
	current := e.State()
	assert.Equal(t, "/items/7", current.Location)
	data, _ := current.LoaderData("detail")
	assert.Equal(t, "item 7", data)
}

func TestEngine_Navigate_ErrorBoundary(t *testing.T) {
	notFound := router.NotFound("Couldn't find item #999")

	testCases := []struct {
		name      string
		location  string
		setup     func(f *fixture)
		boundary  string
		status    int
		matchesN  int
		errTarget error
	}{
		{
			name:     "leaf with its own error view",
			location: "/items",
			setup:    func(f *fixture) { f.itemsErr = router.NewError(http.StatusBadGateway, "Failed getting items", nil) },
			boundary: "items",
			status:   http.StatusBadGateway,
			matchesN: 2,
		},
		{
			name:      "leaf without error view bubbles to layout",
			location:  "/items/999",
			setup:     func(f *fixture) { f.detailErr = notFound },
			boundary:  "root",
			status:    http.StatusNotFound,
			matchesN:  1,
			errTarget: notFound,
		},
		{
			name:     "plain error defaults to 500",
			location: "/items",
			setup:    func(f *fixture) { f.itemsErr = errors.New("boom") },
			boundary: "items",
			status:   http.StatusInternalServerError,
			matchesN: 2,
		},
		{
			name:     "unknown url",
			location: "/nowhere",
			setup:    func(f *fixture) {},
			boundary: "root",
			status:   http.StatusNotFound,
			matchesN: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			tc.setup(f)
			e := router.NewEngine(f.table, "s1")

			state, err := e.Navigate(context.Background(), tc.location)
			require.NoError(t, err, "a failed navigation is state, not an error")

			require.Error(t, state.Err)
			assert.Equal(t, tc.status, router.StatusOf(state.Err))
			require.Len(t, state.Matches, tc.matchesN)
			assert.Equal(t, tc.boundary, state.Matches[state.Boundary].Route.ID)
			assert.Equal(t, tc.location, state.Location)
			if tc.errTarget != nil {
				assert.True(t, errors.Is(state.Err, tc.errTarget))
			}

			chrome, ok := state.LoaderData("root")
			assert.True(t, ok, "layout above the boundary keeps its data")
			assert.Equal(t, "chrome", chrome)
		})
	}
}

func TestEngine_Navigate_RecoversAfterError(t *testing.T) {
	f := newFixture(t)
	e := router.NewEngine(f.table, "s1")
	ctx := context.Background()

	f.itemsErr = errors.New("boom")
	state, err := e.Navigate(ctx, "/items")
	require.NoError(t, err)
	require.Error(t, state.Err)

	f.itemsErr = nil
	state, err = e.Navigate(ctx, "/items")
	require.NoError(t, err)
	assert.NoError(t, state.Err)
	assert.Equal(t, -1, state.Boundary)
}

func TestEngine_Navigate_CallerCancelKeepsState(t *testing.T) {
	f := newFixture(t)
	e := router.NewEngine(f.table, "s1")

	_, err := e.Navigate(context.Background(), "/")
	require.NoError(t, err)

	f.itemsGate = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		assert.Eventually(t, func() bool { return f.itemsLoads.Load() == 1 }, time.Second, time.Millisecond)
		cancel()
	}()

	state, err := e.Navigate(ctx, "/items")
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, "/", state.Location)
	assert.False(t, state.Pending())
	assert.Equal(t, "/", e.State().Location)
}

func TestEngine_Submit_NoAction(t *testing.T) {
	f := newFixture(t)
	e := router.NewEngine(f.table, "s1")

	state, err := e.Submit(context.Background(), "/items", url.Values{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, router.StatusOf(state.Err))
	assert.Equal(t, "items", state.Matches[state.Boundary].Route.ID)
	assert.Equal(t, int32(0), f.itemsLoads.Load())
}

func TestEngine_Submit_ActionData(t *testing.T) {
	f := newFixture(t)
	f.actionResult = router.Data(map[string]string{"phone": "Please give us your correct phone number"})
	e := router.NewEngine(f.table, "s1")
	ctx := context.Background()

	_, err := e.Navigate(ctx, "/form")
	require.NoError(t, err)

	state, err := e.Submit(ctx, "/form", url.Values{"phone": {""}})
	require.NoError(t, err)

	assert.Equal(t, "/form", state.Location)
	assert.NoError(t, state.Err)
	assert.Equal(t, map[string]string{"phone": "Please give us your correct phone number"}, state.ActionData)
	assert.Equal(t, int32(1), f.actionCalls.Load())
	assert.Equal(t, int32(2), f.layoutLoads.Load(), "a submission revalidates loaders")

	_, ok := e.TakeRedirect("/form")
	assert.False(t, ok)
}

func TestEngine_Submit_Redirect(t *testing.T) {
	f := newFixture(t)
	f.actionResult = router.Redirect("/items/42")
	e := router.NewEngine(f.table, "s1")
	ctx := context.Background()

	state, err := e.Submit(ctx, "/form", url.Values{})
	require.NoError(t, err)
	assert.Equal(t, "/items/42", state.Location)
	assert.Equal(t, "detail", leafID(state))
	data, _ := state.LoaderData("detail")
	assert.Equal(t, "item 42", data)

	_, ok := e.TakeRedirect("/elsewhere")
	assert.False(t, ok)

	redirected, ok := e.TakeRedirect("/items/42")
	require.True(t, ok)
	assert.Equal(t, "/items/42", redirected.Location)

	_, ok = e.TakeRedirect("/items/42")
	assert.False(t, ok, "a redirect is handed out once")
}

func TestEngine_Submit_RedirectTargetFails(t *testing.T) {
	f := newFixture(t)
	f.actionResult = router.Redirect("/items/42")
	f.detailErr = router.NewError(http.StatusBadGateway, "Failed getting item #42", errors.New("upstream 503"))
	e := router.NewEngine(f.table, "s1")
	ctx := context.Background()

	state, err := e.Submit(ctx, "/form", url.Values{})
	require.NoError(t, err)
	assert.Equal(t, "/items/42", state.Location)
	assert.Equal(t, http.StatusBadGateway, router.StatusOf(state.Err))
	assert.Equal(t, "root", state.Matches[state.Boundary].Route.ID)

	_, ok := e.TakeRedirect("/items/42")
	assert.False(t, ok, "a failed redirect target is loaded again")

	f.detailErr = nil
	state, err = e.Navigate(ctx, "/items/42")
	require.NoError(t, err)
	require.NoError(t, state.Err)
	data, _ := state.LoaderData("detail")
	assert.Equal(t, "item 42", data)
}

func TestEngine_Submit_SupersededRedirectKeepsTarget(t *testing.T) {
	f := newFixture(t)
	f.actionResult = router.Redirect("/items/42")
	f.actionGate = make(chan struct{})
	e := router.NewEngine(f.table, "s1")
	ctx := context.Background()

	type result struct {
		state router.State
		err   error
	}
	done := make(chan result, 1)
	go func() {
		state, err := e.Submit(ctx, "/form", url.Values{})
		done <- result{state, err}
	}()
	require.Eventually(t, func() bool { return f.actionCalls.Load() == 1 }, time.Second, time.Millisecond)

	_, err := e.Navigate(ctx, "/")
	require.NoError(t, err)
	close(f.actionGate)

	res := <-done
	assert.True(t, errors.Is(res.err, router.ErrSuperseded))
	assert.Equal(t, "/items/42", res.state.Location)
	assert.Equal(t, "/", e.State().Location)

	_, ok := e.TakeRedirect("/items/42")
	assert.False(t, ok)
}

func TestEngine_Submit_ActionError(t *testing.T) {
	f := newFixture(t)
	f.actionErr = router.NewError(http.StatusBadGateway, "Failed creating your order", errors.New("dial tcp"))
	e := router.NewEngine(f.table, "s1")

	state, err := e.Submit(context.Background(), "/form", url.Values{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, router.StatusOf(state.Err))
	assert.Equal(t, "Failed creating your order", router.MessageOf(state.Err))
	assert.Equal(t, "form", state.Matches[state.Boundary].Route.ID)
}
