package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/isdelr/insight-board-be/internal/models"
	"github.com/isdelr/insight-board-be/internal/services"
)

// DevHandler serves development-only diagnostics. The routes are mounted only
// when ENABLE_DEV_ROUTES is set; none of them are reachable in a default
// deployment.
type DevHandler struct {
	users services.UserServiceProvider
}

// NewDevHandler creates a new DevHandler.
func NewDevHandler(users services.UserServiceProvider) *DevHandler {
	return &DevHandler{users: users}
}

// TestDB probes database connectivity by counting users.
func (h *DevHandler) TestDB(w http.ResponseWriter, r *http.Request) {
	count, err := h.users.CountUsers()
	if err != nil {
		log.Error().Err(err).Msg("Database connectivity check failed")
		respondError(w, http.StatusInternalServerError, "Database connection failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "Database connection successful",
		"userCount": count,
	})
}

// ListUsers returns every user row, minus password hashes.
func (h *DevHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers()
	if err != nil {
		log.Error().Err(err).Msg("Failed to list users")
		respondError(w, http.StatusInternalServerError, "Failed to list users")
		return
	}
	if users == nil {
		users = []models.User{}
	}
	respondJSON(w, http.StatusOK, users)
}

// SystemInfo reports host resource usage for debugging a misbehaving
// deployment.
func (h *DevHandler) SystemInfo(w http.ResponseWriter, r *http.Request) {
	cpuPercents, err := cpu.Percent(0, false)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read CPU usage")
		respondError(w, http.StatusInternalServerError, "Failed to read system stats")
		return
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		log.Error().Err(err).Msg("Failed to read memory usage")
		respondError(w, http.StatusInternalServerError, "Failed to read system stats")
		return
	}
	du, err := disk.Usage("/")
	if err != nil {
		log.Error().Err(err).Msg("Failed to read disk usage")
		respondError(w, http.StatusInternalServerError, "Failed to read system stats")
		return
	}

	var cpuPercent float64
	if len(cpuPercents) > 0 {
		cpuPercent = cpuPercents[0]
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"cpu": map[string]interface{}{
			"percent": cpuPercent,
		},
		"memory": map[string]interface{}{
			"total":   vm.Total,
			"used":    vm.Used,
			"percent": vm.UsedPercent,
		},
		"disk": map[string]interface{}{
			"total":   du.Total,
			"used":    du.Used,
			"percent": du.UsedPercent,
		},
	})
}
