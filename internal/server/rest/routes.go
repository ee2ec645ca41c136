package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *HTTPServer) setupRouter() *gin.Engine {
	r := gin.New()
	// ClientIP must come from the socket, not from forwarded headers
	_ = r.SetTrustedProxies(nil)

	r.Use(s.requestLogger(), s.metrics.Middleware(), gin.CustomRecovery(s.recoverPanic))

	r.GET("/health", s.health)
	r.GET("/ready", s.ready)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))

	limiter := newIPRateLimiter(s.opts.LoginRateLimit, s.opts.LoginRateBurst)

	r.POST("/sign-up", s.signUp)
	r.POST("/sign-in", rateLimit(limiter), s.signIn)
	r.POST("/deleteUser", s.deleteUser)
	r.POST("/changePassword", s.changePassword)
	r.POST("/verifyPayment", s.verifyPayment)

	authorized := r.Group("/", s.requireUser())
	{
		authorized.GET("/authorize-token", s.authorizeToken)
		authorized.GET("/fetch-user", s.fetchUser)
		authorized.GET("/authorize", s.authorize)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	})

	return r
}
