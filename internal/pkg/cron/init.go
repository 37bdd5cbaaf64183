package cron

import (
	"fmt"
	log "log/slog"
)

// InitCron 启动时先跑一次停用巡检，从持久化的警告记录重建定时器，再注册周期任务
func InitCron(mgr *Manager) error {
	log.Info("Restoring deactivation timers before cron starts")
	mgr.sweepJob.Run()

	if err := mgr.RegisterJobs(); err != nil {
		return fmt.Errorf("register engagement jobs: %w", err)
	}
	mgr.Start()
	return nil
}
