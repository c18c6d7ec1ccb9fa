// Package handler holds request helpers shared by the HTTP handlers.
package handler

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/dental-api/pkg/errors"
)

// RouteRegistrar is implemented by every handler package.
type RouteRegistrar interface {
	RegisterRoutes(*gin.RouterGroup)
}

// QueryInt reads an optional integer query parameter.
func QueryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewBadRequest(fmt.Sprintf("%s must be an integer", name), err)
	}
	return v, nil
}

// ParamInt reads an integer path parameter.
func ParamInt(c *gin.Context, name string) (int, error) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		return 0, apperrors.NewBadRequest(fmt.Sprintf("invalid %s", name), err)
	}
	return v, nil
}

// BadBody wraps a JSON binding failure.
func BadBody(err error) error {
	return apperrors.NewBadRequest(err.Error(), err)
}
