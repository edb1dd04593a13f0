package history

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"backend-petsancheck/internal/auth"
	"backend-petsancheck/internal/walk"
)

type detailResponse struct {
	Walk   Record            `json:"walk"`
	Points []walk.RoutePoint `json:"points"`
}

func RegisterRoutes(r fiber.Router, store Store, authMiddleware fiber.Handler) {
	r.Get("/walks", authMiddleware, func(c *fiber.Ctx) error {
		records, err := store.List(c.Context(), auth.WalkerID(c), c.QueryInt("limit", defaultListLimit))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if records == nil {
			records = []Record{}
		}
		return c.JSON(records)
	})

	r.Get("/walks/:id", authMiddleware, func(c *fiber.Ctx) error {
		rec, err := store.Get(c.Context(), c.Params("id"))
		if errors.Is(err, ErrNotFound) || (err == nil && rec.WalkerID != auth.WalkerID(c)) {
			return fiber.NewError(fiber.StatusNotFound, ErrNotFound.Error())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		points, err := store.Points(c.Context(), rec.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(detailResponse{Walk: rec, Points: points})
	})
}
