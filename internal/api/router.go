package api

import (
	"github.com/gin-gonic/gin"

	"github.com/Belphemur/ImageTranslate/internal/config"
)

// NewRouter builds the HTTP API.
func NewRouter(cfg *config.Config, h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), RequestLogger(), Recovery(), Cors())

	maxUpload := int64(cfg.Server.MaxUploadMB) << 20
	if maxUpload <= 0 {
		maxUpload = 20 << 20
	}
	router.MaxMultipartMemory = maxUpload

	router.GET("/health", h.Health)

	// base64 inflates the payload by a third
	translate := router.Group("/translate", APIKey(cfg.APIKey))
	translate.POST("", BodyLimit(maxUpload+(1<<20)), h.Translate)
	translate.POST("/base64", BodyLimit(maxUpload*4/3+(1<<20)), h.TranslateBase64)

	return router
}
