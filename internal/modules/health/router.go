package health

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"margin_bot/internal/console"
	"margin_bot/internal/models"
	"margin_bot/internal/modules/health/service"
	strategy "margin_bot/internal/modules/strategy/service"
	"margin_bot/internal/runner"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Fleet interface {
	List() []models.BotSummary
	Pause(ctx context.Context, id int64) error
	Resume(ctx context.Context, id int64) error
	Kill(ctx context.Context, id int64, silent bool) error
	EmergencyStop(ctx context.Context) int
}

type IndicatorStats interface {
	Stats() []strategy.PairStat
}

type Commands interface {
	Exec(ctx context.Context, line string) (string, error)
}

// CheckOrigin не задан: gorilla пускает только запросы без Origin или с Origin того же хоста.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type handlers struct {
	token string
	state *service.State
	fleet Fleet
	stats IndicatorStats
	cmds  Commands
	log   *zap.Logger
}

func NewRouter(cfg Config, state *service.State, fleet Fleet, stats IndicatorStats, cmds Commands, log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	h := &handlers{token: cfg.Token, state: state, fleet: fleet, stats: stats, cmds: cmds, log: log}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/livez", func(c *gin.Context) {
		// liveness: процесс жив
		c.String(http.StatusOK, "ok")
	})
	r.GET("/readyz", func(c *gin.Context) {
		// readiness: модули стартовали
		if !state.Ready() {
			c.String(http.StatusServiceUnavailable, "not ready")
			return
		}
		c.String(http.StatusOK, "ready")
	})
	r.GET("/healthz", h.healthz)

	admin := r.Group("/", h.auth)
	admin.GET("/bots", func(c *gin.Context) { c.JSON(http.StatusOK, h.fleet.List()) })
	admin.POST("/bots/:id/:action", h.botAction)
	admin.POST("/stopall", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"liquidating": h.fleet.EmergencyStop(c.Request.Context())})
	})
	admin.GET("/indicators", func(c *gin.Context) { c.JSON(http.StatusOK, h.stats.Stats()) })
	admin.GET("/console", h.consoleWS)

	return r
}

// auth: при заданном токене управляющие ручки требуют "Authorization: Bearer <token>".
func (h *handlers) auth(c *gin.Context) {
	if h.token == "" {
		c.Next()
		return
	}
	got, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}

func (h *handlers) healthz(c *gin.Context) {
	var lastSweep int64
	if t := h.state.LastSweep(); !t.IsZero() {
		lastSweep = t.Unix()
	}
	c.JSON(http.StatusOK, gin.H{
		"ready":            h.state.Ready(),
		"channelConnected": h.state.ChannelConnected(),
		"uptimeSec":        int64(h.state.Uptime().Seconds()),
		"lastSweepUnix":    lastSweep,
		"bots":             len(h.fleet.List()),
		"indicators":       len(h.stats.Stats()),
	})
}

func (h *handlers) botAction(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bot id"})
		return
	}

	ctx := c.Request.Context()
	switch c.Param("action") {
	case "pause":
		err = h.fleet.Pause(ctx, id)
	case "resume":
		err = h.fleet.Resume(ctx, id)
	case "kill":
		err = h.fleet.Kill(ctx, id, c.Query("silent") == "true")
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown action"})
		return
	}

	switch {
	case errors.Is(err, runner.ErrBotNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"id": id, "action": c.Param("action")})
	}
}

// consoleWS: те же команды, что и в stdin-консоли, по одной на сообщение.
func (h *handlers) consoleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("console upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		out, err := h.cmds.Exec(ctx, string(msg))
		exit := errors.Is(err, console.ErrExit)
		if err != nil && !exit {
			out = "error: " + err.Error()
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte(out)); err != nil {
			return
		}
		if exit {
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
