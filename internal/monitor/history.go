package monitor

import (
	"pulseguard/internal/models"
)

// ReadingHistory 读数环形缓冲（固定容量，写满后覆盖最旧）
// 只在监测主循环中访问，不加锁
type ReadingHistory struct {
	buf   []*models.HealthReading
	next  int
	count int
}

// NewReadingHistory 创建读数历史缓冲
func NewReadingHistory(capacity int) *ReadingHistory {
	if capacity <= 0 {
		capacity = 100
	}
	return &ReadingHistory{
		buf: make([]*models.HealthReading, capacity),
	}
}

// Add 追加一条读数
func (h *ReadingHistory) Add(r *models.HealthReading) {
	h.buf[h.next] = r
	h.next = (h.next + 1) % len(h.buf)
	if h.count < len(h.buf) {
		h.count++
	}
}

// Len 当前读数条数
func (h *ReadingHistory) Len() int {
	return h.count
}

// Recent 按时间先后返回全部缓冲内读数
func (h *ReadingHistory) Recent() []*models.HealthReading {
	result := make([]*models.HealthReading, 0, h.count)
	start := h.next - h.count
	if start < 0 {
		start += len(h.buf)
	}
	for i := 0; i < h.count; i++ {
		result = append(result, h.buf[(start+i)%len(h.buf)])
	}
	return result
}

// RecentByType 按时间先后返回指定类型的读数
func (h *ReadingHistory) RecentByType(t models.ReadingType) []*models.HealthReading {
	var result []*models.HealthReading
	for _, r := range h.Recent() {
		if r.Type == t {
			result = append(result, r)
		}
	}
	return result
}
