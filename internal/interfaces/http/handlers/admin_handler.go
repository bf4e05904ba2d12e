package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MedKG-Intelligence/internal/application/engine"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/monitoring/logging"
)

// Reloader swaps in a freshly built snapshot.
type Reloader interface {
	Reload(ctx context.Context, trigger string) (engine.SnapshotInfo, error)
}

// AdminHandler serves operator endpoints.
type AdminHandler struct {
	reloader Reloader
	logger   logging.Logger
}

func NewAdminHandler(r Reloader, logger logging.Logger) *AdminHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &AdminHandler{reloader: r, logger: logger}
}

// Reload handles POST /admin/reload.  A failed reload leaves the previous
// snapshot serving; a concurrent one answers 409.
func (h *AdminHandler) Reload(c *gin.Context) {
	info, err := h.reloader.Reload(c.Request.Context(), engine.TriggerHTTP)
	if err != nil {
		h.logger.Warn("reload via HTTP failed", logging.Err(err))
		respondError(c, err)
		return
	}
	respondOK(c, info)
}

//Personal.AI order the ending
