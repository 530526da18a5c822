package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/multitest-app/backend/internal/config"
	"github.com/multitest-app/backend/internal/handlers"
	"github.com/multitest-app/backend/internal/middleware"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	checkoutHandler *handlers.CheckoutHandler,
	subscriptionHandler *handlers.SubscriptionHandler,
	webhookHandler *handlers.WebhookHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Auth — public, with a stricter rate limit: 10 req/min per IP
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)

	// Protected routes (JWT required) - apply middleware per route so the
	// public routes above stay unaffected
	api.Post("/auth/logout", middleware.JWTProtected(cfg), authHandler.Logout)
	api.Delete("/auth/account", middleware.JWTProtected(cfg), authHandler.DeleteAccount)

	// Checkout and payments
	api.Post("/checkout/sessions", middleware.JWTProtected(cfg), checkoutHandler.CreateSession)
	api.Post("/checkout/verify", middleware.JWTProtected(cfg), checkoutHandler.VerifyPayment)
	api.Post("/payments/intent", middleware.JWTProtected(cfg), checkoutHandler.CreatePaymentIntent)

	// Entitlements
	api.Get("/subscriptions", middleware.JWTProtected(cfg), subscriptionHandler.List)
	api.Post("/subscriptions/:productId/usage", middleware.JWTProtected(cfg), subscriptionHandler.ConsumeUsage)

	// Webhooks — signature-authenticated, no JWT. The route receives the raw
	// body; no body-parsing middleware runs ahead of it.
	webhooks := api.Group("/webhooks")
	webhooks.Post("/stripe", webhookHandler.HandleStripe)
}
