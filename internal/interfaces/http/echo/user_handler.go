package echo

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	app "github.com/mohammadpnp/user-directory/internal/application/user"
)

const msgBodyNotArray = "Request body must be a JSON array"

type UserHandler struct {
	listUsers   app.ListUsers
	updateBatch app.UpdateUsersBatch
}

func NewUserHandler(listUsers app.ListUsers, updateBatch app.UpdateUsersBatch) *UserHandler {
	return &UserHandler{listUsers: listUsers, updateBatch: updateBatch}
}

func (h *UserHandler) ListUsers(c echo.Context) error {
	users, err := h.listUsers.Execute(c.Request().Context())
	if err != nil {
		resp := errorResponse("Failed to fetch users")
		resp.Details = err.Error()
		return c.JSON(http.StatusInternalServerError, resp)
	}

	return c.JSON(http.StatusOK, apiResponse{Status: statusSuccess, Data: users})
}

func (h *UserHandler) UpdateUsersBatch(c echo.Context) error {
	updates, ok := decodeUpdates(c.Request().Body)
	if !ok {
		return c.JSON(http.StatusBadRequest, errorResponse(msgBodyNotArray))
	}

	out, err := h.updateBatch.Execute(c.Request().Context(), updates)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse("Batch update failed: "+err.Error()))
	}

	return c.JSON(http.StatusOK, apiResponse{
		Status:  statusSuccess,
		Message: out.Message(),
		Results: out.Results,
	})
}

// decodeUpdates accepts only a JSON array. Elements that do not decode into
// an update are kept as empty updates so they fail individually.
func decodeUpdates(body io.Reader) ([]app.UserUpdate, bool) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, false
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(trimmed, &elements); err != nil {
		return nil, false
	}

	updates := make([]app.UserUpdate, len(elements))
	for i, element := range elements {
		if err := json.Unmarshal(element, &updates[i]); err != nil {
			updates[i] = app.UserUpdate{}
		}
	}
	return updates, true
}
