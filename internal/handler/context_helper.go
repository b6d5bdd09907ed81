package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campus-assist/rostering-api/internal/middleware"
	"github.com/campus-assist/rostering-api/internal/models"
	appErrors "github.com/campus-assist/rostering-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func pathInt(c *gin.Context, name string) (int, error) {
	raw := c.Param(name)
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, name+" must be an integer")
	}
	return value, nil
}
