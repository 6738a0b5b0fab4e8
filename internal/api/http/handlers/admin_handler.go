package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/studyshare-auth/internal/api/dto"
	"github.com/spec-kit/studyshare-auth/internal/worker"
	apperrors "github.com/spec-kit/studyshare-auth/pkg/util/errorutil"
)

// Sweeper runs one revocation sweep on demand.
type Sweeper interface {
	RunOnce(ctx context.Context) (int64, error)
}

// AdminHandler exposes operator endpoints.
type AdminHandler struct {
	sweeper Sweeper
}

// NewAdminHandler constructs handler.
func NewAdminHandler(sweeper Sweeper) *AdminHandler {
	return &AdminHandler{sweeper: sweeper}
}

// SweepRevocations handles POST /admin/revocations/sweep.
func (h *AdminHandler) SweepRevocations(c *fiber.Ctx) error {
	removed, err := h.sweeper.RunOnce(c.UserContext())
	if err != nil {
		if errors.Is(err, worker.ErrSweepInProgress) {
			return apperrors.NewConflict("revocation sweep already in progress", nil)
		}
		return apperrors.NewServiceUnavailable("revocation store unavailable", err)
	}
	return c.JSON(dto.SweepResponse{Removed: removed})
}
