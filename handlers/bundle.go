package handlers

import "github.com/gin-gonic/gin"

// HandlerBundle groups all endpoint handlers into one struct for route
// registration.
type HandlerBundle struct {
	// Dialogue endpoints
	ChatHandler   gin.HandlerFunc
	SelectHandler gin.HandlerFunc
	CancelHandler gin.HandlerFunc
}
