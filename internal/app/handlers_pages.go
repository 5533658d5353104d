package app

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"storefront/internal/pagebuilder"
	"storefront/internal/service"
)

// ── Pages ──────────────────────────────────────────────────

func (a *App) handleListPages(c echo.Context) error {
	pages, err := a.pages.ListPages(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pages)
}

func (a *App) handleCreatePage(c echo.Context) error {
	var in service.PageInput
	if err := bind(c, &in); err != nil {
		return err
	}
	page, err := a.pages.CreatePage(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, page)
}

func (a *App) handleGetPage(c echo.Context) error {
	page, err := a.pages.GetPage(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func (a *App) handleUpdatePage(c echo.Context) error {
	var in service.PageInput
	if err := bind(c, &in); err != nil {
		return err
	}
	page, err := a.pages.UpdatePage(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func (a *App) handleDeletePage(c echo.Context) error {
	if err := a.pages.DeletePage(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ── Builder session ────────────────────────────────────────

// builderResponse writes the state returned by every builder call.
func builderResponse(c echo.Context, state *service.BuilderState, err error) error {
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, state)
}

func (a *App) handleBuilderState(c echo.Context) error {
	state, err := a.pages.Builder(c.Request().Context(), c.Param("id"))
	return builderResponse(c, state, err)
}

func (a *App) handleDiscardSession(c echo.Context) error {
	if err := a.pages.DiscardSession(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (a *App) handleAddElement(c echo.Context) error {
	var in service.AddElementInput
	if err := bind(c, &in); err != nil {
		return err
	}
	state, err := a.pages.AddElement(c.Request().Context(), c.Param("id"), in)
	return builderResponse(c, state, err)
}

func (a *App) handleUpdateElement(c echo.Context) error {
	var patch pagebuilder.ElementPatch
	if err := bind(c, &patch); err != nil {
		return err
	}
	state, err := a.pages.UpdateElement(c.Request().Context(), c.Param("id"), c.Param("eid"), patch)
	return builderResponse(c, state, err)
}

func (a *App) handleRemoveElement(c echo.Context) error {
	state, err := a.pages.RemoveElement(c.Request().Context(), c.Param("id"), c.Param("eid"))
	return builderResponse(c, state, err)
}

func (a *App) handleDuplicateElement(c echo.Context) error {
	state, err := a.pages.DuplicateElement(c.Request().Context(), c.Param("id"), c.Param("eid"))
	return builderResponse(c, state, err)
}

func (a *App) handleMoveElement(c echo.Context) error {
	var in service.MoveInput
	if err := bind(c, &in); err != nil {
		return err
	}
	state, err := a.pages.MoveElement(c.Request().Context(), c.Param("id"), c.Param("eid"), in)
	return builderResponse(c, state, err)
}

func (a *App) handleUpdateSettings(c echo.Context) error {
	var patch pagebuilder.SettingsPatch
	if err := bind(c, &patch); err != nil {
		return err
	}
	state, err := a.pages.UpdateSettings(c.Request().Context(), c.Param("id"), patch)
	return builderResponse(c, state, err)
}

func (a *App) handleUndo(c echo.Context) error {
	state, err := a.pages.Undo(c.Request().Context(), c.Param("id"))
	return builderResponse(c, state, err)
}

func (a *App) handleRedo(c echo.Context) error {
	state, err := a.pages.Redo(c.Request().Context(), c.Param("id"))
	return builderResponse(c, state, err)
}

func (a *App) handleSave(c echo.Context) error {
	state, err := a.pages.SavePage(c.Request().Context(), c.Param("id"))
	return builderResponse(c, state, err)
}
