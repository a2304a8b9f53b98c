package handler // handler defines http handlers

import (
    "errors"   // errors provides sentinel values used in getUserID
    "net/http" // net/http provides status codes
    "strconv"  // strconv converts strings to numeric types

    "github.com/labstack/echo/v4" // echo defines request context types

    "github.com/iliyamo/parking-slot-reservation/internal/lifecycle"  // lifecycle results
    "github.com/iliyamo/parking-slot-reservation/internal/middleware" // role names
)

// getUserID extracts the user_id from echo.Context and converts it to uint64
func getUserID(c echo.Context) (uint64, error) {
    switch t := c.Get("user_id").(type) {
    case uint64:
        return t, nil
    case int64:
        if t > 0 {
            return uint64(t), nil
        }
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil && n > 0 {
            return n, nil
        }
    }
    return 0, errors.New("invalid user_id in context")
}

// isStaff reports whether the caller may act on other users' bookings.
func isStaff(c echo.Context) bool {
    role, _ := c.Get("role").(string)
    return role == middleware.RoleAdmin || role == middleware.RoleOperator
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, false
    }
    return id, true
}

// httpStatus maps a result code to the HTTP status sent to the client.
func httpStatus(code lifecycle.Code) int {
    switch code {
    case lifecycle.CodeSuccess:
        return http.StatusOK
    case lifecycle.CodeInvalidInput:
        return http.StatusBadRequest
    case lifecycle.CodeNotFound:
        return http.StatusNotFound
    case lifecycle.CodeConflict:
        return http.StatusConflict
    case lifecycle.CodeInvalidState:
        return http.StatusUnprocessableEntity
    default:
        return http.StatusInternalServerError
    }
}

// respond writes r with the status of its code.
func respond(c echo.Context, r lifecycle.Result) error {
    return c.JSON(httpStatus(r.Code), r)
}

// invalid writes a 400 result without touching the engine.
func invalid(c echo.Context, msg string) error {
    return respond(c, lifecycle.Result{Outcome: lifecycle.OutcomeFailed, Code: lifecycle.CodeInvalidInput, Message: msg})
}

func unauthorized(c echo.Context) error {
    return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

func forbidden(c echo.Context) error {
    return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
}
