package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerManager wires the session and websocket handlers into one router.
type HandlerManager struct {
	sessionHandler *SessionHandler
	wsHandler      *WSHandler
}

func NewHandlerManager(sessionHandler *SessionHandler, wsHandler *WSHandler) *HandlerManager {
	return &HandlerManager{
		sessionHandler: sessionHandler,
		wsHandler:      wsHandler,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", hm.sessionHandler.CreateSession)
			sessions.GET("/:id", hm.sessionHandler.GetSession)
			sessions.DELETE("/:id", hm.sessionHandler.DeleteSession)

			// Attempt lifecycle
			sessions.POST("/:id/start", hm.sessionHandler.StartSession)
			sessions.POST("/:id/next", hm.sessionHandler.NextQuestion)
			sessions.POST("/:id/previous", hm.sessionHandler.PreviousQuestion)
			sessions.PUT("/:id/answers/:question_id", hm.sessionHandler.SaveAnswer)

			// Submission flow
			sessions.POST("/:id/submit", hm.sessionHandler.RequestSubmit)
			sessions.POST("/:id/submit/confirm", hm.sessionHandler.ConfirmSubmit)
			sessions.POST("/:id/submit/cancel", hm.sessionHandler.CancelSubmit)

			// Environment
			sessions.POST("/:id/fullscreen", hm.sessionHandler.RequestFullscreen)
			sessions.GET("/:id/questions/:question_id/options", hm.sessionHandler.GetQuestionOptions)

			// Event stream + environment bridge
			sessions.GET("/:id/ws", hm.wsHandler.Stream)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "exam-session-engine",
		})
	})
}
