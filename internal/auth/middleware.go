package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// LocalWalkerID is the fiber locals key holding the authenticated walker.
const LocalWalkerID = "walker_id"

// JWTMiddleware validates bearer tokens and stores the walker id in locals.
func JWTMiddleware(secret string) fiber.Handler {
	return jwtMiddleware(secret, func(c *fiber.Ctx) string {
		return bearerFromHeader(c.Get("Authorization"))
	})
}

// StreamJWTMiddleware also accepts the token as a ?token= query parameter, since browser
// websocket clients cannot set headers. The header wins when both are present.
func StreamJWTMiddleware(secret string) fiber.Handler {
	return jwtMiddleware(secret, func(c *fiber.Ctx) string {
		if token := bearerFromHeader(c.Get("Authorization")); token != "" {
			return token
		}
		return strings.TrimSpace(c.Query("token"))
	})
}

func jwtMiddleware(secret string, tokenFrom func(*fiber.Ctx) string) fiber.Handler {
	secretBytes := []byte(secret)
	return func(c *fiber.Ctx) error {
		token := tokenFrom(c)
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		parsed, err := parseMiddlewareClaimsFn(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
			return secretBytes, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}

		claims, ok := parsed.Claims.(*Claims)
		if !ok || !parsed.Valid || claims.WalkerID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "token invalid")
		}

		c.Locals(LocalWalkerID, claims.WalkerID)
		return c.Next()
	}
}

// WalkerID returns the walker stored by JWTMiddleware, or "" on unauthenticated routes.
func WalkerID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalWalkerID).(string)
	return id
}

var parseMiddlewareClaimsFn = jwt.ParseWithClaims

func bearerFromHeader(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
