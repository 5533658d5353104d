package app

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"storefront/internal/domain"
	"storefront/internal/service"
)

func (a *App) handleHealth(c echo.Context) error {
	status := "ok"
	if err := a.backend.Ping(c.Request().Context()); err != nil {
		status = "degraded"
	}
	return c.JSON(http.StatusOK, map[string]string{"status": status})
}

func (a *App) handleListProducts(c echo.Context) error {
	featured, _ := strconv.ParseBool(c.QueryParam("featured"))
	products, fromFallback, err := a.catalog.ListPublic(c.Request().Context(), domain.ProductFilter{
		Category:     c.QueryParam("category"),
		FeaturedOnly: featured,
	})
	if err != nil {
		return err
	}
	withFallback(c, fromFallback)
	return c.JSON(http.StatusOK, products)
}

func (a *App) handleGetProduct(c echo.Context) error {
	p, fromFallback, err := a.catalog.PublicProduct(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return err
	}
	withFallback(c, fromFallback)
	return c.JSON(http.StatusOK, p)
}

func (a *App) handleTrackClick(c echo.Context) error {
	url, err := a.catalog.TrackClick(c.Request().Context(), service.ClickInput{
		ProductID: c.Param("id"),
		Referrer:  c.Request().Referer(),
		UserAgent: c.Request().UserAgent(),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"affiliateUrl": url})
}

func (a *App) handleGoRedirect(c echo.Context) error {
	url, err := a.catalog.TrackClick(c.Request().Context(), service.ClickInput{
		Slug:      c.Param("slug"),
		Referrer:  c.Request().Referer(),
		UserAgent: c.Request().UserAgent(),
	})
	if err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, url)
}

func (a *App) handleContent(c echo.Context) error {
	content, fromFallback, err := a.content.ContentMap(c.Request().Context())
	if err != nil {
		return err
	}
	withFallback(c, fromFallback)
	return c.JSON(http.StatusOK, content)
}

func (a *App) handleNav(c echo.Context) error {
	links, fromFallback, err := a.content.PublicNav(c.Request().Context())
	if err != nil {
		return err
	}
	withFallback(c, fromFallback)
	return c.JSON(http.StatusOK, links)
}

func (a *App) handlePublishedPage(c echo.Context) error {
	page, fromFallback, err := a.pages.PublishedPage(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return err
	}
	withFallback(c, fromFallback)
	return c.JSON(http.StatusOK, page)
}

type subscribeRequest struct {
	Email  string `json:"email"`
	Source string `json:"source"`
}

func (a *App) handleSubscribe(c echo.Context) error {
	var req subscribeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	created, err := a.newsletter.Subscribe(c.Request().Context(), req.Email, req.Source)
	if err != nil {
		return err
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, map[string]bool{"subscribed": true, "created": created})
}

// bind decodes the request body, reporting malformed input as a 400.
func bind(c echo.Context, target any) error {
	if err := c.Bind(target); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body").SetInternal(err)
	}
	return nil
}
