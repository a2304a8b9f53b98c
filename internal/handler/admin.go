package handler

import (
    "context"
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/parking-slot-reservation/internal/lifecycle"
    "github.com/iliyamo/parking-slot-reservation/internal/sweeper"
)

// SweepRunner runs one expiry sweep.  *sweeper.Sweeper satisfies it.
type SweepRunner interface {
    RunOnce(ctx context.Context) (int, error)
}

// AdminHandler exposes maintenance operations to ADMIN tokens.
type AdminHandler struct {
    Sweeper SweepRunner
}

func NewAdminHandler(s SweepRunner) *AdminHandler {
    if s == nil {
        panic("nil sweeper passed to NewAdminHandler")
    }
    return &AdminHandler{Sweeper: s}
}

// Sweep handles POST /v1/admin/sweep.
func (h *AdminHandler) Sweep(c echo.Context) error {
    n, err := h.Sweeper.RunOnce(c.Request().Context())
    if errors.Is(err, sweeper.ErrBusy) {
        return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
    }
    return respond(c, lifecycle.ResultFrom("sweep completed", echo.Map{"expired": n}, err))
}
