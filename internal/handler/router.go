package handler

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/flicky/farm-market-api/internal/config"
	"github.com/flicky/farm-market-api/internal/middleware"
	"github.com/flicky/farm-market-api/internal/model"
	"github.com/flicky/farm-market-api/internal/token"
)

type Handlers struct {
	Auth    *AuthHandler
	Product *ProductHandler
	Cart    *CartHandler
	Order   *OrderHandler
	Chat    *ChatHandler
	Farmer  *FarmerHandler
	Health  *HealthHandler
}

func corsConfig(cfg config.CORSConfig) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           cfg.MaxAge,
	}
	if len(cfg.AllowOrigins) == 1 && cfg.AllowOrigins[0] == "*" {
		// "*" is not valid with credentials; echo the origin.
		c.AllowOriginFunc = func(string) bool { return true }
	} else {
		c.AllowOrigins = cfg.AllowOrigins
	}
	return c
}

// NewRouter mounts every route on a fresh engine. A nil Health handler
// leaves the probes unmounted.
func NewRouter(h Handlers, issuer *token.Issuer, cfg *config.Config) *gin.Engine {
	router := gin.Default()
	router.Use(cors.New(corsConfig(cfg.CORS)))

	if h.Health != nil {
		router.GET("/healthz", h.Health.Healthz)
		router.GET("/readyz", h.Health.Readyz)
	}

	router.POST("/register", h.Auth.Register)
	router.POST("/login", h.Auth.Login)
	router.POST("/logout", h.Auth.Logout)
	router.GET("/products", h.Product.List)
	router.GET("/products/:id", h.Product.GetByID)
	router.GET("/farmers/map", h.Farmer.Map)

	authed := router.Group("", middleware.Authenticate(issuer, cfg.Cookie.Name))
	authed.GET("/me", middleware.RequireRoles(), h.Auth.Me)

	farmer := authed.Group("/products", middleware.RequireRoles(model.RoleFarmer))
	farmer.POST("/add", h.Product.Create)
	farmer.POST("/edit/:id", h.Product.Update)
	farmer.POST("/delete/:id", h.Product.Delete)

	cart := authed.Group("/cart", middleware.RequireRoles(model.RoleCustomer))
	cart.GET("", h.Cart.GetCart)
	cart.POST("/add/:productId", h.Cart.AddItem)
	cart.POST("/remove/:productId", h.Cart.RemoveItem)
	cart.POST("/buy", h.Order.Checkout)

	orders := authed.Group("/orders", middleware.RequireRoles(model.RoleCustomer))
	orders.GET("", h.Order.ListOrders)
	orders.GET("/:id", h.Order.GetOrder)

	members := authed.Group("", middleware.RequireRoles(model.RoleCustomer, model.RoleFarmer))
	members.GET("/chats", h.Chat.List)
	members.GET("/chat/ws", h.Chat.Stream)
	members.GET("/chat/:peerId", h.Chat.Conversation)
	members.POST("/chat/send", h.Chat.Send)

	return router
}
