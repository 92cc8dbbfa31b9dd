package routes

import (
	"os"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"

	"github.com/sipstream/sipstream-services/internal/socketsvc/handlers"
	"github.com/sipstream/sipstream-services/internal/socketsvc/ws"
)

var tokenAuth *jwtauth.JWTAuth

func SetRoutes(r *chi.Mux, ws *ws.Ws) {
	h := handlers.NewHandler(ws)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/ws", h.HandleWebSocket)
		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Get("/health", h.HealthHandler)

		})
	})
}

func InitAuth() {
	// session tokens are signed with the shared service key
	var jwtKey = os.Getenv("SIPSTREAM_SERVICE_KEY")
	tokenAuth = jwtauth.New("HS256", []byte(jwtKey), nil)
}
