package stream

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"backend-petsancheck/internal/auth"
)

// OwnerFunc reports whether walkerID may watch walkID.
type OwnerFunc func(walkerID, walkID string) bool

// RegisterRoutes mounts the live stats socket. authMiddleware must put the walker into
// fiber locals; a walk the caller does not own is reported as not found.
func RegisterRoutes(r fiber.Router, hub *Hub, authMiddleware fiber.Handler, owns OwnerFunc) {
	r.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	r.Get("/ws/:walkID", authMiddleware, func(c *fiber.Ctx) error {
		walkerID := auth.WalkerID(c)
		if walkerID == "" || owns == nil || !owns(walkerID, c.Params("walkID")) {
			return fiber.NewError(fiber.StatusNotFound, "walk not found")
		}
		return c.Next()
	}, websocket.New(func(c *websocket.Conn) {
		client := hub.Register(c.Params("walkID"))
		defer hub.Unregister(client)

		done := make(chan struct{})
		go func() {
			defer close(done)
			for msg := range client.Send {
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			}
		}()

		// the read loop only notices the client going away
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
		hub.Unregister(client)
		<-done
	}))
}
