package adminapi

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/mem"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/talkincode/retailhub/internal/app"
	"github.com/talkincode/retailhub/internal/webserver"
)

// ServerInfo describes the database and the host the service runs on
type ServerInfo struct {
	DatabaseType    string  `json:"database_type"`
	DatabaseVersion string  `json:"database_version"`
	DatabaseSize    string  `json:"database_size"`
	TableCount      int     `json:"table_count"`
	ServerTime      string  `json:"server_time"`
	Hostname        string  `json:"hostname,omitempty"`
	Platform        string  `json:"platform,omitempty"`
	Uptime          uint64  `json:"uptime,omitempty"`
	CPUCount        int     `json:"cpu_count"`
	CPUPercent      float64 `json:"cpu_percent"`
	MemTotalMB      uint64  `json:"mem_total_mb"`
	MemUsedPercent  float64 `json:"mem_used_percent"`
	GoVersion       string  `json:"go_version"`
	Goroutines      int     `json:"goroutines"`
}

func registerServerInfoRoutes() {
	webserver.ApiGET("/system/serverinfo", getServerInfo, adminOnly)
	webserver.ApiGET("/system/jobs", listJobs, adminOnly)
	webserver.ApiPOST("/system/jobs/:name/run", runJob, adminOnly)
}

func getServerInfo(c echo.Context) error {
	db := GetDB(c)
	info := ServerInfo{
		DatabaseType: db.Dialector.Name(),
		ServerTime:   time.Now().Format(time.DateTime),
		GoVersion:    runtime.Version(),
		Goroutines:   runtime.NumGoroutine(),
	}
	if err := databaseInfo(db, &info); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query database info", err.Error())
	}

	// host figures are best effort, containers may hide some of them
	if h, err := host.Info(); err == nil {
		info.Hostname = h.Hostname
		info.Platform = h.Platform + " " + h.PlatformVersion
		info.Uptime = h.Uptime
	} else {
		zap.L().Debug("read host info failed", zap.Error(err), zap.String("namespace", "api"))
	}
	if n, err := cpu.Counts(true); err == nil {
		info.CPUCount = n
	}
	if p, err := cpu.Percent(0, false); err == nil && len(p) > 0 {
		info.CPUPercent = p[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.MemTotalMB = vm.Total / 1024 / 1024
		info.MemUsedPercent = vm.UsedPercent
	}
	return ok(c, info)
}

func databaseInfo(db *gorm.DB, info *ServerInfo) error {
	var tables []string
	var sizeBytes int64
	switch info.DatabaseType {
	case "postgres":
		if err := db.Raw("SELECT table_name FROM information_schema.tables WHERE table_schema = 'public'").
			Scan(&tables).Error; err != nil {
			return err
		}
		if err := db.Raw("SELECT version()").Scan(&info.DatabaseVersion).Error; err != nil {
			return err
		}
		if err := db.Raw("SELECT pg_database_size(current_database())").Scan(&sizeBytes).Error; err != nil {
			return err
		}
	case "sqlite":
		if err := db.Raw("SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'").
			Scan(&tables).Error; err != nil {
			return err
		}
		var version string
		if err := db.Raw("SELECT sqlite_version()").Scan(&version).Error; err != nil {
			return err
		}
		info.DatabaseVersion = "SQLite " + version
		var pageCount, pageSize int64
		if err := db.Raw("PRAGMA page_count").Scan(&pageCount).Error; err != nil {
			return err
		}
		if err := db.Raw("PRAGMA page_size").Scan(&pageSize).Error; err != nil {
			return err
		}
		sizeBytes = pageCount * pageSize
	default:
		return fmt.Errorf("unsupported database type %q", info.DatabaseType)
	}
	info.TableCount = len(tables)
	info.DatabaseSize = formatBytes(sizeBytes)
	return nil
}

func formatBytes(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.2f KB", float64(n)/1024)
	case n < 1024*1024*1024:
		return fmt.Sprintf("%.2f MB", float64(n)/(1024*1024))
	default:
		return fmt.Sprintf("%.2f GB", float64(n)/(1024*1024*1024))
	}
}

func listJobs(c echo.Context) error {
	return ok(c, GetAppContext(c).Jobs())
}

// runJob starts a background job outside the regular schedule
func runJob(c echo.Context) error {
	err := GetAppContext(c).StartJob(c.Param("name"))
	if errors.Is(err, app.ErrJobNotFound) {
		return fail(c, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "RUN_FAILED", "Failed to run job", err.Error())
	}
	return c.NoContent(http.StatusAccepted)
}
