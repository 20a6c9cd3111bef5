package handlers

import (
	"github.com/gin-gonic/gin"
)

// Error responses carry a stable machine-readable message plus an optional
// human detail; handlers never leak internal error strings to clients.
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func respondErrorDetail(c *gin.Context, status int, message, detail string) {
	c.JSON(status, gin.H{"error": message, "detail": detail})
}
