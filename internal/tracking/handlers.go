package tracking

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"backend-petsancheck/internal/auth"
	"backend-petsancheck/internal/walk"
)

type ingestResponse struct {
	walk.IngestResult
	Stats walk.Stats `json:"stats"`
}

type locateResponse struct {
	Fix     walk.Fix     `json:"fix"`
	Verdict walk.Verdict `json:"verdict"`
}

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/locate", func(c *fiber.Ctx) error {
		var req FixBatchRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		fixes, err := req.toFixes()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		fix, verdict := svc.Locate(fixes)
		return c.JSON(locateResponse{Fix: fix, Verdict: verdict})
	})

	r.Post("/walks", authMiddleware, func(c *fiber.Ctx) error {
		var req StartRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		session, err := svc.Start(c.Context(), auth.WalkerID(c), req)
		if err != nil {
			return httpError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(session)
	})

	r.Get("/walks/current", authMiddleware, func(c *fiber.Ctx) error {
		session, ok := svc.Current(auth.WalkerID(c))
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "no walk in progress")
		}
		return c.JSON(session)
	})

	r.Post("/walks/:id/fixes", authMiddleware, func(c *fiber.Ctx) error {
		var req FixBatchRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		fixes, err := req.toFixes()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		res, stats, err := svc.Ingest(c.Context(), auth.WalkerID(c), c.Params("id"), fixes)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(ingestResponse{IngestResult: res, Stats: stats})
	})

	r.Post("/walks/:id/pause", authMiddleware, func(c *fiber.Ctx) error {
		stats, err := svc.Pause(c.Context(), auth.WalkerID(c), c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(stats)
	})

	r.Post("/walks/:id/resume", authMiddleware, func(c *fiber.Ctx) error {
		stats, err := svc.Resume(c.Context(), auth.WalkerID(c), c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(stats)
	})

	r.Post("/walks/:id/stop", authMiddleware, func(c *fiber.Ctx) error {
		session, err := svc.Stop(c.Context(), auth.WalkerID(c), c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(session)
	})

	r.Get("/walks/:id/stats", authMiddleware, func(c *fiber.Ctx) error {
		stats, err := svc.Stats(auth.WalkerID(c), c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(stats)
	})

	r.Get("/walks/:id/points", authMiddleware, func(c *fiber.Ctx) error {
		points, err := svc.Points(auth.WalkerID(c), c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(points)
	})
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrWalkNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrWalkInProgress), errors.Is(err, walk.ErrInvalidStateTransition):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, walk.ErrPermissionRequired):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}
