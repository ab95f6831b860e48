package statistics

import (
	"context"
	"errors"
	"net/http"

	"lemmy_stats/internal/harvest"
	"lemmy_stats/internal/httputil"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Harvester выполняет один прогон сбора и записи.
type Harvester interface {
	Run(ctx context.Context) (*harvest.Result, error)
}

// Handler обслуживает HTTP-запросы, связанные со статистикой.
type Handler struct {
	Harvester Harvester
	Logger    *zap.Logger
}

// NewHandler создаёт новый обработчик статистики.
func NewHandler(h Harvester, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Harvester: h, Logger: logger}
}

// Collect собирает снимок и записывает его в InfluxDB.
func (h *Handler) Collect(c *gin.Context) {
	res, err := h.Harvester.Run(c.Request.Context())
	switch {
	case errors.Is(err, harvest.ErrRunInProgress):
		httputil.RespondError(c, http.StatusConflict, "сбор статистики уже выполняется")
		return
	case err != nil:
		h.Logger.Error("[HANDLER ERROR] прогон сбора завершился ошибкой", zap.Error(err))
		if res != nil && res.Stats != nil {
			httputil.RespondErrorWithResult(c, http.StatusBadGateway, err.Error(), res)
			return
		}
		httputil.RespondError(c, http.StatusBadGateway, err.Error())
		return
	}
	c.JSON(http.StatusOK, res)
}

// Health сообщает, что процесс жив.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
