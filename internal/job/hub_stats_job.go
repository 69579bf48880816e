package job

import (
	"KoraChat/internal/pkg/hub"
	"KoraChat/internal/pkg/logger"
	"context"
	log "log/slog"
	"sync"

	"github.com/google/uuid"
)

// HubReport 一个周期内的在线与投递情况
type HubReport struct {
	Rooms          int
	Endpoints      int
	DeliveredDelta uint64
	EvictedDelta   uint64
}

// HubStatsJob 周期性输出本实例的房间统计，投递数按周期差值记录
type HubStatsJob struct {
	hub *hub.Hub

	mu   sync.Mutex
	last hub.Stats
}

func NewHubStatsJob(h *hub.Hub) *HubStatsJob {
	return &HubStatsJob{hub: h}
}

func (s *HubStatsJob) Run() {
	traceID := "job-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)

	report := s.Report()
	log.InfoContext(ctx, "hub stats",
		"rooms", report.Rooms,
		"endpoints", report.Endpoints,
		"delivered", report.DeliveredDelta,
		"evicted", report.EvictedDelta,
	)
	if report.EvictedDelta > 0 {
		log.WarnContext(ctx, "slow websocket clients evicted", "count", report.EvictedDelta)
	}
}

func (s *HubStatsJob) Report() HubReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.hub.Stats()
	report := HubReport{
		Rooms:          cur.Rooms,
		Endpoints:      cur.Endpoints,
		DeliveredDelta: cur.Delivered - s.last.Delivered,
		EvictedDelta:   cur.Evicted - s.last.Evicted,
	}
	s.last = cur
	return report
}
