package bootstrap

import "github.com/gin-gonic/gin"

// SetGinMode switches gin to release mode outside development.
func SetGinMode(env string) {
	if env == "production" || env == "staging" {
		gin.SetMode(gin.ReleaseMode)
	}
}
