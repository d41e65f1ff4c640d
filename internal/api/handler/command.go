package handler

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ayase/picvault/internal/logger"
	"github.com/ayase/picvault/internal/service"
)

// CommandHandler runs the long-lived batch commands: sync, auto-tag,
// auto-score, index rebuild and backup. One command runs at a time.
type CommandHandler struct {
	sync   *service.SyncService
	backup *service.BackupService

	mu            sync.RWMutex
	isRunning     bool
	runningName   string
	processed     int
	total         int
	lastRunTime   time.Time
	lastRunStatus string
}

// NewCommandHandler creates a new command handler.
// Parameters:
//   - syncService: pipeline service instance.
//   - backupService: backup service, may be nil when storage is off.
// Returns:
//   - *CommandHandler: initialized handler.
func NewCommandHandler(syncService *service.SyncService, backupService *service.BackupService) *CommandHandler {
	return &CommandHandler{
		sync:   syncService,
		backup: backupService,
	}
}

// acquire marks a command as running, or reports the one already going.
func (h *CommandHandler) acquire(name string) (ok bool, current string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.isRunning {
		return false, h.runningName
	}
	h.isRunning = true
	h.runningName = name
	h.processed, h.total = 0, 0
	return true, name
}

func (h *CommandHandler) release(status string) {
	h.mu.Lock()
	h.isRunning = false
	h.runningName = ""
	h.lastRunTime = time.Now()
	h.lastRunStatus = status
	h.mu.Unlock()
}

func (h *CommandHandler) progress(processed, total int) {
	h.mu.Lock()
	h.processed, h.total = processed, total
	h.mu.Unlock()
}

// runCommand executes fn under the single-command lock and writes the
// outcome. The job runs on a background context so a client timeout
// does not cancel it midway.
func (h *CommandHandler) runCommand(c *gin.Context, name string, fn func(ctx context.Context) (interface{}, error)) {
	reqCtx := c.Request.Context()
	if ok, current := h.acquire(name); !ok {
		logger.CtxWarn(reqCtx, "Command rejected, another is running: requested=%s, running=%s", name, current)
		c.JSON(http.StatusConflict, gin.H{"error": "Command already running: " + current})
		return
	}

	logger.CtxInfo(reqCtx, "Command started: name=%s, client_ip=%s", name, c.ClientIP())

	ctx := logger.FromContext(reqCtx).WithContext(context.Background())
	start := time.Now()
	result, err := fn(ctx)
	duration := time.Since(start)

	if err != nil {
		h.release("failed: " + err.Error())
		logger.With(logger.Fields{
			logger.FieldDurationMs: duration.Milliseconds(),
		}).Error(reqCtx, "Command failed: name=%s, error=%v", name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.release("success")
	logger.With(logger.Fields{
		logger.FieldDurationMs: duration.Milliseconds(),
	}).Info(reqCtx, "Command completed: name=%s", name)
	c.JSON(http.StatusOK, gin.H{
		"message": "Command completed",
		"stats":   result,
	})
}

// TriggerSync handles POST /api/v1/sync.
func (h *CommandHandler) TriggerSync(c *gin.Context) {
	h.runCommand(c, "sync", func(ctx context.Context) (interface{}, error) {
		return h.sync.Sync(ctx, h.progress)
	})
}

// TriggerAutoTag handles POST /api/v1/cmd/autotag. With ?id= it tags a
// single asset synchronously instead.
func (h *CommandHandler) TriggerAutoTag(c *gin.Context) {
	if raw := c.Query("id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid asset id"})
			return
		}
		if err := h.sync.AutoTagByID(c.Request.Context(), id); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Auto-tag failed: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Asset tagged"})
		return
	}

	h.runCommand(c, "autotag", func(ctx context.Context) (interface{}, error) {
		return h.sync.AutoTag(ctx, h.progress)
	})
}

// TriggerAutoScore handles POST /api/v1/cmd/autoscore.
func (h *CommandHandler) TriggerAutoScore(c *gin.Context) {
	h.runCommand(c, "autoscore", func(ctx context.Context) (interface{}, error) {
		return h.sync.AutoScore(ctx, h.progress)
	})
}

// TriggerReindex handles POST /api/v1/cmd/reindex.
func (h *CommandHandler) TriggerReindex(c *gin.Context) {
	h.runCommand(c, "reindex", func(ctx context.Context) (interface{}, error) {
		pushed, err := h.sync.RebuildIndex(ctx)
		return gin.H{"pushed": pushed}, err
	})
}

// TriggerBackup handles POST /api/v1/cmd/backup.
func (h *CommandHandler) TriggerBackup(c *gin.Context) {
	if h.backup == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Object storage is not configured"})
		return
	}
	h.runCommand(c, "backup", func(ctx context.Context) (interface{}, error) {
		return h.backup.Run(ctx, h.progress)
	})
}

// Status handles GET /api/v1/cmd/status.
func (h *CommandHandler) Status(c *gin.Context) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	resp := gin.H{
		"is_running": h.isRunning,
	}
	if h.isRunning {
		resp["command"] = h.runningName
		resp["processed"] = h.processed
		resp["total"] = h.total
	}
	if !h.lastRunTime.IsZero() {
		resp["last_run_time"] = h.lastRunTime.Format(time.RFC3339)
		resp["last_run_status"] = h.lastRunStatus
	}
	c.JSON(http.StatusOK, resp)
}
