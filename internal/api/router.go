package api

import (
	"github.com/gin-gonic/gin"

	"github.com/wisemarket1122/wisemarket/internal/api/handlers"
	"github.com/wisemarket1122/wisemarket/internal/api/middleware"
	"github.com/wisemarket1122/wisemarket/internal/config"
	"github.com/wisemarket1122/wisemarket/internal/services"
	"github.com/wisemarket1122/wisemarket/internal/session"
	"github.com/wisemarket1122/wisemarket/internal/storage"
	"github.com/wisemarket1122/wisemarket/internal/view"
	"github.com/wisemarket1122/wisemarket/internal/ws"
)

// Deps bundles everything the route table needs.
type Deps struct {
	Cfg      *config.Config
	Users    services.IUserService
	Listings services.IListingService
	Boards   services.IBoardService
	Chats    services.IChatService
	Sessions session.Store
	Images   storage.ImageStore
	Hub      *ws.Hub
}

// SetupRouter configures the Gin engine with all application routes.
func SetupRouter(deps Deps) *gin.Engine {
	router := gin.Default()

	router.LoadHTMLGlob(deps.Cfg.TemplateGlob)
	router.Static("/uploads", deps.Cfg.UploadDir)

	renderer := view.NewGinRenderer()
	router.Use(middleware.CurrentUser(deps.Sessions, deps.Cfg.SessionTTL))

	homeHandler := handlers.NewHomeHandler(deps.Listings, renderer)
	authHandler := handlers.NewAuthHandler(deps.Users, deps.Sessions, deps.Cfg, renderer)
	marketHandler := handlers.NewMarketHandler(deps.Listings, deps.Images, renderer)
	communityHandler := handlers.NewCommunityHandler(deps.Boards, deps.Images, renderer)
	chatHandler := handlers.NewChatHandler(deps.Chats, deps.Hub, renderer)
	myPageHandler := handlers.NewMyPageHandler(deps.Users, deps.Listings, deps.Boards, deps.Sessions, renderer)

	router.GET("/", homeHandler.Index)

	// Credential endpoints sit behind the per-IP limiter.
	limiter := middleware.NewRateLimiter(deps.Cfg.RateLimitBucketSize, float64(deps.Cfg.RateLimitRefillRate))

	auth := router.Group("/auth")
	{
		auth.GET("/login", authHandler.ShowLogin)
		auth.POST("/login", limiter.Limit(), authHandler.Login)
		auth.GET("/signup", authHandler.ShowSignup)
		auth.POST("/signup", limiter.Limit(), authHandler.Signup)
		auth.GET("/verify", authHandler.Verify)
		auth.GET("/check-email", limiter.Limit(), authHandler.CheckEmail)
		auth.GET("/logout", authHandler.Logout)
	}

	market := router.Group("/market")
	{
		market.GET("", marketHandler.List)
		market.GET("/new", middleware.RequireLogin(), marketHandler.ShowNew)
		market.POST("", middleware.RequireLogin(), marketHandler.Create)
		market.GET("/:id", marketHandler.Detail)
		market.POST("/:id/status", middleware.RequireLogin(), marketHandler.UpdateStatus)
		market.POST("/:id/delete", middleware.RequireLogin(), marketHandler.Delete)
	}

	community := router.Group("/community")
	{
		community.GET("", communityHandler.Boards)
		community.GET("/:boardId", communityHandler.Posts)
		community.GET("/:boardId/new", middleware.RequireLogin(), communityHandler.ShowNewPost)
		community.POST("/:boardId", middleware.RequireLogin(), communityHandler.CreatePost)
		community.GET("/:boardId/:postId", communityHandler.PostDetail)
		community.GET("/:boardId/:postId/edit", middleware.RequireLogin(), communityHandler.ShowEditPost)
		community.POST("/:boardId/:postId/edit", middleware.RequireLogin(), communityHandler.UpdatePost)
		community.POST("/:boardId/:postId/delete", middleware.RequireLogin(), communityHandler.DeletePost)
		community.POST("/:boardId/:postId/comments", middleware.RequireLogin(), communityHandler.AddComment)
		community.POST("/:boardId/:postId/comments/:commentId/delete", middleware.RequireLogin(), communityHandler.DeleteComment)
	}

	chat := router.Group("/chat", middleware.RequireLogin())
	{
		chat.GET("", chatHandler.Rooms)
		chat.POST("/room", chatHandler.OpenRoom)
		chat.GET("/:roomId", chatHandler.Room)
		chat.POST("/:roomId/message", chatHandler.PostMessage)
	}

	router.GET("/ws", middleware.RequireLogin(), chatHandler.ServeWS)

	myPage := router.Group("/mypage", middleware.RequireLogin())
	{
		myPage.GET("", myPageHandler.Show)
		myPage.POST("/edit", myPageHandler.UpdateProfile)
		myPage.POST("/delete-account", myPageHandler.DeleteAccount)
	}

	return router
}
