package hub

import (
	"context"
	log "log/slog"
	"sync"
	"sync/atomic"
)

const defaultShards = 32

type room struct {
	members map[string]Endpoint
}

type shard struct {
	mu    sync.RWMutex
	rooms map[uint64]*room
}

// Hub 按会话分组的内存房间表，分片加锁
type Hub struct {
	shards []*shard
	broker Broker

	delivered atomic.Uint64
	evicted   atomic.Uint64
}

// Stats 运行时统计
type Stats struct {
	Rooms     int    `json:"rooms"`
	Endpoints int    `json:"endpoints"`
	Delivered uint64 `json:"delivered"`
	Evicted   uint64 `json:"evicted"`
}

// New 默认使用进程内 broker
func New(shards int) *Hub {
	if shards <= 0 {
		shards = defaultShards
	}
	h := &Hub{shards: make([]*shard, shards)}
	for i := range h.shards {
		h.shards[i] = &shard{rooms: make(map[uint64]*room)}
	}
	h.broker = localBroker{h: h}
	return h
}

// SetBroker 在开始接受连接前调用
func (h *Hub) SetBroker(b Broker) {
	h.broker = b
}

func (h *Hub) shardFor(convID uint64) *shard {
	return h.shards[convID%uint64(len(h.shards))]
}

// Join 第一个成员加入时创建房间，同 ID 重复加入会替换旧的端点
func (h *Hub) Join(convID uint64, ep Endpoint) {
	s := h.shardFor(convID)
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[convID]
	if !ok {
		r = &room{members: make(map[string]Endpoint)}
		s.rooms[convID] = r
	}
	r.members[ep.ID()] = ep
}

// Leave 移除端点，房间空了就删除；端点不在房间里返回 false
func (h *Hub) Leave(convID uint64, ep Endpoint) bool {
	s := h.shardFor(convID)
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[convID]
	if !ok {
		return false
	}
	cur, ok := r.members[ep.ID()]
	if !ok || cur != ep {
		return false
	}
	delete(r.members, ep.ID())
	if len(r.members) == 0 {
		delete(s.rooms, convID)
	}
	return true
}

// Publish 交给 broker，本地模式下同步 Dispatch
func (h *Hub) Publish(ctx context.Context, ev Event) error {
	return h.broker.Publish(ctx, ev)
}

// Dispatch 投递给本实例房间内的所有端点，投递失败的端点被踢出，不影响其他成员
func (h *Hub) Dispatch(ev Event) int {
	members := h.snapshot(ev.ConversationID)
	delivered := 0
	for _, ep := range members {
		if ep.Deliver(ev) {
			delivered++
			continue
		}
		if h.Leave(ev.ConversationID, ep) {
			h.evicted.Add(1)
			log.Warn("hub evict slow endpoint", "conversation_id", ev.ConversationID, "endpoint", ep.ID())
			ep.Evict()
		}
	}
	h.delivered.Add(uint64(delivered))
	return delivered
}

func (h *Hub) snapshot(convID uint64) []Endpoint {
	s := h.shardFor(convID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[convID]
	if !ok {
		return nil
	}
	members := make([]Endpoint, 0, len(r.members))
	for _, ep := range r.members {
		members = append(members, ep)
	}
	return members
}

// Members 房间当前成员数
func (h *Hub) Members(convID uint64) int {
	s := h.shardFor(convID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.rooms[convID]; ok {
		return len(r.members)
	}
	return 0
}

func (h *Hub) Stats() Stats {
	st := Stats{
		Delivered: h.delivered.Load(),
		Evicted:   h.evicted.Load(),
	}
	for _, s := range h.shards {
		s.mu.RLock()
		st.Rooms += len(s.rooms)
		for _, r := range s.rooms {
			st.Endpoints += len(r.members)
		}
		s.mu.RUnlock()
	}
	return st
}
