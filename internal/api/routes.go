package api

import "github.com/gin-gonic/gin"

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", s.health)
	if s.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		api.GET("/stats", s.stats)
		api.GET("/recommendations", s.listRecommendations)
		api.GET("/recommendations/:id", s.getRecommendation)
		api.POST("/recommendations/evaluate", s.evaluate)
		api.POST("/analyze", s.analyze)
		api.GET("/indicators/:symbol", s.indicators)
		api.GET("/price/:symbol", s.price)
	}
}
