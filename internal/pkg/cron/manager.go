package cron

import (
	"Haven/internal/job"
	log "log/slog"

	"github.com/robfig/cron/v3"
)

type Manager struct {
	engine    *cron.Cron
	digestJob *job.UnclaimedDigestJob
	spec      string
}

func NewCronManager(digestJob *job.UnclaimedDigestJob, spec string) *Manager {
	if spec == "" {
		spec = "@daily"
	}
	return &Manager{
		engine:    cron.New(cron.WithSeconds()),
		digestJob: digestJob,
		spec:      spec,
	}
}

// RegisterJobs 注册定时任务
func (s *Manager) RegisterJobs() error {
	if _, err := s.engine.AddJob(s.spec, s.digestJob); err != nil {
		return err
	}
	return nil
}

func (s *Manager) Start() {
	log.Info("Cron 定时任务引擎启动")
	s.engine.Start()
}

func (s *Manager) Stop() {
	log.Info("Cron 定时任务引擎停止")
	s.engine.Stop()
}
