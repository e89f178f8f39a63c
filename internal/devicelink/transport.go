// Package devicelink 管理配对设备的链路生命周期
//
// 无线传输栈本身不在核心范围内（由 Transport 接口抽象），
// 核心只负责连接状态机、发现/重连调度和原始负载转发。
package devicelink

import (
	"pulseguard/internal/models"
)

// Announcement 设备发现公告
type Announcement struct {
	DeviceID string            `json:"device_id"`
	Name     string            `json:"name"`
	Type     models.DeviceType `json:"type"`
	Battery  int               `json:"battery"`
}

// AnnounceHandler 设备公告回调
type AnnounceHandler func(a Announcement)

// StatusHandler 设备在线状态回调
type StatusHandler func(deviceID string, online bool)

// DataHandler 设备数据通道回调（原始二进制负载）
type DataHandler func(deviceID, char string, payload []byte)

// Transport 设备传输层接口
// 实现必须线程安全；回调在传输层自己的 goroutine 上触发
type Transport interface {
	// StartPresence 开始跟踪设备在线状态（常驻订阅）
	StartPresence(onStatus StatusHandler) error

	// StartScan 开始监听设备发现公告
	StartScan(onAnnounce AnnounceHandler) error

	// StopScan 停止监听发现公告
	StopScan() error

	// OpenLink 打开设备数据链路并订阅其数据通道
	// 设备不在线时返回错误
	OpenLink(deviceID string, onData DataHandler) error

	// CloseLink 关闭设备数据链路
	CloseLink(deviceID string) error

	// LinkActive 判断设备链路是否活跃（链路已打开且设备在线）
	LinkActive(deviceID string) bool

	// Close 释放传输层资源
	Close()
}
