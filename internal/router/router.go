package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"textbook-gateway/internal/handlers"
	"textbook-gateway/internal/logger"
	"textbook-gateway/internal/middleware"
	"textbook-gateway/internal/websocket"
)

func New(
	catalogHandler *handlers.CatalogHandler,
	uploadHandler *handlers.UploadHandler,
	chatHandler *handlers.ChatHandler,
	quizHandler *handlers.QuizHandler,
	wsHub *websocket.Hub,
	chatLimiter middleware.Limiter,
	log *logger.Logger,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(frontendURL))

	// Health check
	r.Get("/health", handlers.Health)

	r.Route("/api", func(r chi.Router) {

		// ──── Catalog ────
		r.Get("/textbooks", catalogHandler.ListTextbooks)
		r.Post("/textbooks/upload", uploadHandler.Upload)
		r.Get("/textbooks/{id}/file", catalogHandler.TextbookFile)
		r.Delete("/textbooks/{id}", catalogHandler.DeleteTextbook)
		r.Get("/chapters/{textbookId}", catalogHandler.Chapters)
		r.Get("/pdf/{textbookId}/{chapterId}", catalogHandler.ChapterPDF)

		// ──── Conversation ────
		r.Group(func(r chi.Router) {
			if chatLimiter != nil {
				r.Use(middleware.RateLimit(chatLimiter))
			}
			r.Post("/chat", chatHandler.Chat)
			r.Get("/greeting", chatHandler.Greeting)
		})

		// ──── Quiz progress (bearer required) ────
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireBearer)
			r.Post("/quiz/answer", quizHandler.Answer)
			r.Get("/user/progress", quizHandler.Progress)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
