package handlers

import (
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
)

// pathID parses a numeric path parameter. Zero means malformed.
func pathID(c *gin.Context, name string) uint {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0
	}
	return uint(id)
}

// pageParam parses the ?page= query parameter, defaulting to 1.
func pageParam(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func queryEscape(s string) string {
	return url.QueryEscape(s)
}
