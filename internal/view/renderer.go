package view

import "github.com/gin-gonic/gin"

// Renderer renders a named page. Templating is a collaborator the core only
// talks to through this interface; handler tests swap in a stub so no
// template files are needed.
type Renderer interface {
	HTML(c *gin.Context, code int, name string, data gin.H)
}

// ginRenderer delegates to gin's HTML renderer (templates loaded by the
// router via LoadHTMLGlob).
type ginRenderer struct{}

// NewGinRenderer returns the production Renderer.
func NewGinRenderer() Renderer {
	return ginRenderer{}
}

func (ginRenderer) HTML(c *gin.Context, code int, name string, data gin.H) {
	c.HTML(code, name, data)
}
