package handler

import (
	"farmhub/backend/internal/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func errorBody(err error) gin.H {
	code := apperrors.CodeOf(err)
	if code == apperrors.CodeUnknown {
		code = apperrors.CodeInternal
	}
	return gin.H{"error": apperrors.PublicMessage(err), "code": code}
}

func logIfInternal(c *gin.Context, err error) {
	switch apperrors.CodeOf(err) {
	case apperrors.CodeInternal, apperrors.CodeUnknown:
		log.Error().Err(err).Str("method", c.Request.Method).Str("path", c.FullPath()).Msg("request failed")
	}
}

func respondError(c *gin.Context, err error) {
	logIfInternal(c, err)
	c.JSON(apperrors.HTTPStatus(err), errorBody(err))
}

func abortWithError(c *gin.Context, err error) {
	logIfInternal(c, err)
	c.AbortWithStatusJSON(apperrors.HTTPStatus(err), errorBody(err))
}
