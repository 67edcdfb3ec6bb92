// Package menu loads the restaurant menu for the menu route.
package menu

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/fast-pizza/internal/restaurant"
	"github.com/vasiliy-maslov/fast-pizza/internal/router"
)

type Fetcher interface {
	GetMenu(ctx context.Context) ([]restaurant.MenuItem, error)
}

// Loader fetches the whole menu on every navigation and hands it over unmodified.
func Loader(fetcher Fetcher) router.LoaderFunc {
	return func(ctx context.Context, _ router.Args) (any, error) {
		items, err := fetcher.GetMenu(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Failed to fetch menu")
			return nil, router.NewError(http.StatusBadGateway, "Failed getting menu", err)
		}

		return items, nil
	}
}

// Find returns the menu item with the given id.
func Find(items []restaurant.MenuItem, id int) (restaurant.MenuItem, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return restaurant.MenuItem{}, false
}
