package echo

import (
	"net/http"

	"github.com/labstack/echo/v4"

	app "github.com/mohammadpnp/user-directory/internal/application/user"
)

type SystemHandler struct {
	checkStore app.CheckStoreConnection
}

func NewSystemHandler(checkStore app.CheckStoreConnection) *SystemHandler {
	return &SystemHandler{checkStore: checkStore}
}

func (h *SystemHandler) Index(c echo.Context) error {
	return c.String(http.StatusOK, "User Management Backend is running!")
}

func (h *SystemHandler) TestDBConnection(c echo.Context) error {
	version, err := h.checkStore.Execute(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse("An error occurred: "+err.Error()))
	}

	return c.JSON(http.StatusOK, apiResponse{
		Status:  statusSuccess,
		Message: "Connected to PostgreSQL DB version: " + version,
	})
}

func (h *SystemHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
