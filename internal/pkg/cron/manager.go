package cron

import (
	"TradeTalent/internal/api/config"
	"TradeTalent/internal/job"
	log "log/slog"

	"github.com/robfig/cron/v3"
)

type Manager struct {
	engine   *cron.Cron
	cfg      config.EngagementConfig
	decayJob *job.DecayJob
	sweepJob *job.DeactivationSweepJob
}

func NewCronManager(cfg config.EngagementConfig, decayJob *job.DecayJob, sweepJob *job.DeactivationSweepJob) *Manager {
	return &Manager{
		engine:   cron.New(cron.WithSeconds(), cron.WithLocation(cfg.Location())),
		cfg:      cfg,
		decayJob: decayJob,
		sweepJob: sweepJob,
	}
}

// RegisterJobs 注册定时任务，衰减默认每天零点，停用巡检默认每小时
func (s *Manager) RegisterJobs() error {
	if _, err := s.engine.AddJob(s.cfg.DecayCron, cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(s.decayJob)); err != nil {
		return err
	}
	if _, err := s.engine.AddJob(s.cfg.SweepCron, cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(s.sweepJob)); err != nil {
		return err
	}
	return nil
}

func (s *Manager) Start() {
	log.Info("Cron 定时任务引擎启动", "decay", s.cfg.DecayCron, "sweep", s.cfg.SweepCron, "tz", s.cfg.Location().String())
	s.engine.Start()
}

func (s *Manager) Stop() {
	log.Info("Cron 定时任务引擎停止")
	<-s.engine.Stop().Done()
}
