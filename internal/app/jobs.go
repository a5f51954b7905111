package app

import (
	"errors"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"github.com/shirou/gopsutil/process"
	"github.com/talkincode/retailhub/internal/domain"
	"github.com/talkincode/retailhub/pkg/metrics"
	"go.uber.org/zap"
)

const oprLogRetention = time.Hour * 24 * 365

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Background job names
const (
	JobSystemMonitor  = "system_monitor"
	JobProcessMonitor = "process_monitor"
	JobClearOprLogs   = "clear_expired_oprlogs"
)

// Gauges written by the monitor jobs
const (
	MetricSystemCPU  = "system_cpuuse"
	MetricSystemMem  = "system_memuse"
	MetricProcessCPU = "retailhub_cpuuse"
	MetricProcessMem = "retailhub_memuse"
)

var ErrJobNotFound = errors.New("job not found")

type job struct {
	name  string
	spec  string
	run   func()
	entry cron.EntryID
}

// JobInfo describes a registered background job
type JobInfo struct {
	Name      string     `json:"name"`
	Spec      string     `json:"spec"`
	NextRunAt *time.Time `json:"next_run_at,omitempty"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
}

func (a *Application) registerJobs() {
	a.jobs = []*job{
		{name: JobSystemMonitor, spec: "@every 30s", run: a.SchedSystemMonitorTask},
		{name: JobProcessMonitor, spec: "@every 30s", run: a.SchedProcessMonitorTask},
		{name: JobClearOprLogs, spec: "@daily", run: func() { a.SchedClearExpireData() }},
	}
}

func (a *Application) initJob() {
	loc, err := time.LoadLocation(a.appConfig.System.Location)
	if err != nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	for _, j := range a.jobs {
		run := j.run
		j.entry, err = a.sched.AddFunc(j.spec, func() {
			go run()
		})
		if err != nil {
			zap.S().Errorf("init job %s error %s", j.name, err.Error())
		}
	}

	a.sched.Start()
}

// Jobs lists the registered background jobs with their schedule
func (a *Application) Jobs() []JobInfo {
	result := make([]JobInfo, 0, len(a.jobs))
	for _, j := range a.jobs {
		info := JobInfo{Name: j.name, Spec: j.spec}
		if a.sched != nil && j.entry != 0 {
			entry := a.sched.Entry(j.entry)
			if !entry.Next.IsZero() {
				next := entry.Next
				info.NextRunAt = &next
			}
			if !entry.Prev.IsZero() {
				prev := entry.Prev
				info.LastRunAt = &prev
			}
		}
		result = append(result, info)
	}
	return result
}

// StartJob runs the named job in the background right away
func (a *Application) StartJob(name string) error {
	for _, j := range a.jobs {
		if j.name == name {
			go j.run()
			return nil
		}
	}
	return ErrJobNotFound
}

// SchedSystemMonitorTask system monitor
func (a *Application) SchedSystemMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	_cpuuse, err := cpu.Percent(0, false)
	if err == nil && len(_cpuuse) > 0 {
		metrics.SetGauge(MetricSystemCPU, int64(_cpuuse[0]*100)) // percentage * 100
	}

	_meminfo, err := mem.VirtualMemory()
	if err == nil {
		metrics.SetGauge(MetricSystemMem, int64(_meminfo.Used/1024/1024))
	}
}

// SchedProcessMonitorTask records cpu and resident memory of this process
func (a *Application) SchedProcessMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		zap.L().Warn("open process failed", zap.Error(err), zap.String("namespace", "jobs"))
		return
	}
	if cpuuse, err := p.CPUPercent(); err == nil {
		metrics.SetGauge(MetricProcessCPU, int64(cpuuse*100))
	}
	if meminfo, err := p.MemoryInfo(); err == nil {
		metrics.SetGauge(MetricProcessMem, int64(meminfo.RSS/1024/1024))
	}
}

// SchedClearExpireData removes operation logs older than a year
func (a *Application) SchedClearExpireData() int64 {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	res := a.gormDB.
		Where("opt_time < ?", time.Now().Add(-oprLogRetention)).
		Delete(&domain.SysOprLog{})
	if res.Error != nil {
		zap.L().Error("clear operation logs failed", zap.Error(res.Error), zap.String("namespace", "jobs"))
		return 0
	}
	if res.RowsAffected > 0 {
		zap.L().Info("cleared expired operation logs",
			zap.Int64("rows", res.RowsAffected), zap.String("namespace", "jobs"))
	}
	return res.RowsAffected
}
