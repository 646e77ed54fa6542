package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// handleHealth reports liveness plus the resources jobs depend on. The status
// is "degraded" when free memory or free disk in the working directory drops
// below the configured thresholds.
func (h *Handler) handleHealth(c *gin.Context) {
	status := "ok"
	resp := gin.H{
		"subscribers": h.registry.Len(),
		"jobs":        len(h.jobs.List()),
	}

	if vm, err := mem.VirtualMemory(); err != nil {
		h.logger.Warn("could not get memory usage", "error", err)
	} else {
		resp["freeMem"] = vm.Available
		if h.cfg.ThrottleFreeMem > 0 && vm.Available < uint64(h.cfg.ThrottleFreeMem) {
			status = "degraded"
		}
	}

	if d, err := disk.Usage(h.paths.Dir()); err != nil {
		h.logger.Warn("could not get disk usage", "dir", h.paths.Dir(), "error", err)
	} else {
		resp["freeDisk"] = d.Free
		if h.cfg.ThrottleFreeDisk > 0 && d.Free < uint64(h.cfg.ThrottleFreeDisk) {
			status = "degraded"
		}
	}

	resp["status"] = status
	c.JSON(http.StatusOK, resp)
}
