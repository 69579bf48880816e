package cron

import (
	"KoraChat/internal/job"
	log "log/slog"

	"github.com/robfig/cron/v3"
)

const defaultHubStatsSpec = "0 */5 * * * *"

type Manager struct {
	engine       *cron.Cron
	hubStatsSpec string
	hubStatsJob  *job.HubStatsJob
}

func NewCronManager(hubStatsSpec string, hubStatsJob *job.HubStatsJob) *Manager {
	if hubStatsSpec == "" {
		hubStatsSpec = defaultHubStatsSpec
	}
	return &Manager{
		engine:       cron.New(cron.WithSeconds()),
		hubStatsSpec: hubStatsSpec,
		hubStatsJob:  hubStatsJob,
	}
}

// RegisterJobs 注册定时任务
func (s *Manager) RegisterJobs() error {
	if _, err := s.engine.AddJob(s.hubStatsSpec, s.hubStatsJob); err != nil {
		return err
	}
	return nil
}

func (s *Manager) Start() {
	log.Info("cron engine started")
	s.engine.Start()
}

// Stop 等待正在执行的任务结束
func (s *Manager) Stop() {
	log.Info("cron engine stopping")
	<-s.engine.Stop().Done()
}
