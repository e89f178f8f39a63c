package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"time"

	"pulseguard/pkg/database"
	"pulseguard/pkg/mqtt"
	"pulseguard/pkg/redis"
)

// Config pulseguard 服务配置
type Config struct {
	Database database.Config
	Redis    redis.Config
	MQTT     mqtt.Config

	// 设备链路配置
	DeviceLink struct {
		AnnounceTopic string        // 设备发现主题
		DataTopicBase string        // 设备数据主题前缀
		ScanTimeout   time.Duration // 扫描超时（默认 30s）
		SweepInterval time.Duration // 重连扫描间隔（默认 30s）
		RetryBudget   int           // 连续重连失败预算，超出后移除设备（默认 10）
	}

	// 监测配置
	Monitor struct {
		Profile         string        // 健康档案：diabetic / cardiovascular / general
		HistorySize     int           // 读数环形缓冲容量（默认 100）
		AlertHistory    int           // 报警历史保留条数（默认 200）
		CompoundWindow  time.Duration // 复合报警时间窗口（默认 30m）
		RateWindow      time.Duration // 变化率时间窗口（默认 15m）
		RateDelta       float64       // 变化率阈值（默认 50）
		EventStream     string        // 对外事件 Redis Stream 名
		VitalsKeyPrefix string        // 实时体征缓存键前缀
		VitalsTTL       time.Duration // 实时体征缓存 TTL
	}

	// 抑制配置
	Suppression struct {
		NightStartHour    int    // 夜间抑制开始小时（默认 22）
		NightEndHour      int    // 夜间抑制结束小时（默认 6）
		NightFloor        string // 夜间不抑制的最低级别（默认 critical）
		DuplicateLookback time.Duration
	}

	// 升级配置
	Escalation struct {
		ResponseTimeout time.Duration // 健康确认等待时间（默认 60s）
		StateKeyPrefix  string        // 会话快照 Redis 键前缀
	}

	// 存储配置
	Storage struct {
		EncryptionKey []byte // AES-256 密钥（base64 编码的环境变量）
	}

	Metrics struct {
		Addr string // Prometheus 指标监听地址
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "pulseguard")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "pulseguard")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = 1

	cfg.DeviceLink.AnnounceTopic = getEnv("DEVICE_ANNOUNCE_TOPIC", "pulseguard/announce")
	cfg.DeviceLink.DataTopicBase = getEnv("DEVICE_DATA_TOPIC_BASE", "pulseguard/device")
	cfg.DeviceLink.ScanTimeout = 30 * time.Second
	cfg.DeviceLink.SweepInterval = 30 * time.Second
	cfg.DeviceLink.RetryBudget = getEnvInt("DEVICE_RETRY_BUDGET", 10)

	cfg.Monitor.Profile = getEnv("HEALTH_PROFILE", "general")
	cfg.Monitor.HistorySize = 100
	cfg.Monitor.AlertHistory = 200
	cfg.Monitor.CompoundWindow = 30 * time.Minute
	cfg.Monitor.RateWindow = 15 * time.Minute
	cfg.Monitor.RateDelta = 50
	cfg.Monitor.EventStream = getEnv("EVENT_STREAM", "pulseguard:events")
	cfg.Monitor.VitalsKeyPrefix = getEnv("CACHE_VITALS_PREFIX", "pulseguard:device:")
	cfg.Monitor.VitalsTTL = 60 * time.Second

	cfg.Suppression.NightStartHour = getEnvInt("NIGHT_START_HOUR", 22)
	cfg.Suppression.NightEndHour = getEnvInt("NIGHT_END_HOUR", 6)
	cfg.Suppression.NightFloor = getEnv("NIGHT_FLOOR", "critical")
	cfg.Suppression.DuplicateLookback = 10 * time.Minute

	cfg.Escalation.ResponseTimeout = time.Duration(getEnvInt("ESCALATION_RESPONSE_TIMEOUT", 60)) * time.Second
	cfg.Escalation.StateKeyPrefix = getEnv("ESCALATION_STATE_PREFIX", "pulseguard:escalation:")

	// AES-256 密钥（base64 编码，解码后必须 32 字节）
	if keyStr := os.Getenv("STORAGE_ENCRYPTION_KEY"); keyStr != "" {
		key, err := base64.StdEncoding.DecodeString(keyStr)
		if err != nil {
			return nil, fmt.Errorf("invalid STORAGE_ENCRYPTION_KEY: %w", err)
		}
		cfg.Storage.EncryptionKey = key
	}

	cfg.Metrics.Addr = getEnv("METRICS_ADDR", ":9090")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
