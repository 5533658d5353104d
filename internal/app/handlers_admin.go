package app

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"storefront/internal/service"
)

// ── Products ───────────────────────────────────────────────

func (a *App) handleAdminListProducts(c echo.Context) error {
	products, err := a.catalog.ListAll(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, products)
}

func (a *App) handleCreateProduct(c echo.Context) error {
	var in service.ProductInput
	if err := bind(c, &in); err != nil {
		return err
	}
	p, err := a.catalog.CreateProduct(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (a *App) handleUpdateProduct(c echo.Context) error {
	var in service.ProductInput
	if err := bind(c, &in); err != nil {
		return err
	}
	p, err := a.catalog.UpdateProduct(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (a *App) handleDeleteProduct(c echo.Context) error {
	if err := a.catalog.DeleteProduct(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (a *App) handleClickStats(c echo.Context) error {
	stats, err := a.catalog.ClickStats(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// ── Content ────────────────────────────────────────────────

func (a *App) handleListContent(c echo.Context) error {
	entries, err := a.content.ListEntries(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

func (a *App) handleSetContent(c echo.Context) error {
	var req struct {
		Value string `json:"value"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	entry, err := a.content.SetContent(c.Request().Context(), c.Param("key"), req.Value)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entry)
}

func (a *App) handleDeleteContent(c echo.Context) error {
	if err := a.content.DeleteContent(c.Request().Context(), c.Param("key")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ── Navigation ─────────────────────────────────────────────

func (a *App) handleListNav(c echo.Context) error {
	links, err := a.content.ListNav(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, links)
}

func (a *App) handleCreateNav(c echo.Context) error {
	var in service.NavLinkInput
	if err := bind(c, &in); err != nil {
		return err
	}
	link, err := a.content.CreateNavLink(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, link)
}

func (a *App) handleUpdateNav(c echo.Context) error {
	var in service.NavLinkInput
	if err := bind(c, &in); err != nil {
		return err
	}
	link, err := a.content.UpdateNavLink(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, link)
}

func (a *App) handleDeleteNav(c echo.Context) error {
	if err := a.content.DeleteNavLink(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (a *App) handleReorderNav(c echo.Context) error {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	links, err := a.content.ReorderNav(c.Request().Context(), req.IDs)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, links)
}

// ── Uploads & subscribers ──────────────────────────────────

func (a *App) handleUpload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing file field").SetInternal(err)
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	up, err := a.uploads.SaveImage(f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, up)
}

func (a *App) handleListSubscribers(c echo.Context) error {
	subs, err := a.newsletter.ListSubscribers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, subs)
}

// ── Feeds & jobs ───────────────────────────────────────────

func (a *App) handleListFeeds(c echo.Context) error {
	return c.JSON(http.StatusOK, a.feeds.Feeds())
}

// handleRunFeed imports a feed now. Rows the catalog rejects are listed in
// the result, which is still a 200; an unreadable feed is a 502.
func (a *App) handleRunFeed(c echo.Context) error {
	res, err := a.feeds.Run(c.Request().Context(), c.Param("name"))
	switch {
	case err != nil && res != nil:
		return c.JSON(http.StatusBadGateway, res)
	case err != nil:
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (a *App) handleListJobs(c echo.Context) error {
	return c.JSON(http.StatusOK, a.scheduler.Jobs())
}

func (a *App) handleRunJob(c echo.Context) error {
	if err := a.scheduler.RunJob(c.Request().Context(), c.Param("name")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
