package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"pulseguard/internal/config"
	"pulseguard/internal/devicelink"
	"pulseguard/internal/escalation"
	"pulseguard/internal/gateway"
	"pulseguard/internal/models"
	"pulseguard/internal/monitor"
	"pulseguard/internal/parser"
	"pulseguard/internal/repository"
	"pulseguard/internal/rules"
	"pulseguard/internal/storage"
	"pulseguard/internal/suppression"
	"pulseguard/pkg/crypto"
	"pulseguard/pkg/database"
	"pulseguard/pkg/logger"
	"pulseguard/pkg/mqtt"
	"pulseguard/pkg/redis"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "pulseguard")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	// 3. 连接基础设施
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	redisClient := redis.NewRedisClient(&cfg.Redis)
	defer redis.Close(redisClient)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := redis.Ping(ctx, redisClient); err != nil {
		log.Fatal("Failed to ping redis", zap.Error(err))
	}

	mqttClient, err := mqtt.NewClient(&cfg.MQTT)
	if err != nil {
		log.Fatal("Failed to connect to MQTT broker", zap.Error(err))
	}
	defer mqttClient.Disconnect()

	// 4. 设备链路层
	transport := devicelink.NewMQTTTransport(
		mqttClient,
		cfg.DeviceLink.AnnounceTopic,
		cfg.DeviceLink.DataTopicBase,
		log,
	)
	linkMgr := devicelink.NewManager(transport, devicelink.Config{
		ScanTimeout:   cfg.DeviceLink.ScanTimeout,
		SweepInterval: cfg.DeviceLink.SweepInterval,
		RetryBudget:   cfg.DeviceLink.RetryBudget,
	}, log)

	// 5. 解析与规则层
	readingParser := parser.NewParser(log)
	engine := rules.NewEngine(cfg.Monitor.Profile, log,
		rules.WithRateRule(int64(cfg.Monitor.RateWindow.Seconds()), cfg.Monitor.RateDelta),
		rules.WithCompoundWindow(int64(cfg.Monitor.CompoundWindow.Seconds())),
	)

	suppressor := suppression.NewManager(suppression.Config{
		NightStartHour:    cfg.Suppression.NightStartHour,
		NightEndHour:      cfg.Suppression.NightEndHour,
		NightFloor:        models.ParseSeverity(cfg.Suppression.NightFloor),
		DuplicateLookback: cfg.Suppression.DuplicateLookback,
	}, log)

	// 6. 外部协作者通道
	announcer := gateway.NewMQTTAnnouncer(mqttClient, "pulseguard/announce/speech", log)
	haptic := gateway.NewMQTTHaptic(mqttClient, "pulseguard/announce/haptic", log)
	caregiver := gateway.NewMQTTCaregiverGateway(mqttClient, "pulseguard/caregiver/alerts", log)

	// 7. 事件与升级状态机
	events := monitor.NewEventPublisher(redisClient, cfg.Monitor.EventStream, log)
	snapshots := escalation.NewStateStore(redisClient, cfg.Escalation.StateKeyPrefix, log)

	escalator := escalation.NewMachine(
		announcer,
		haptic,
		caregiver,
		nil, // 位置提供者由伴随应用注入，独立部署时不可用
		snapshots,
		cfg.Escalation.ResponseTimeout,
		func(eventType string, esc *models.EmergencyEscalation) {
			events.Publish(eventType, esc)
		},
		log,
	)

	// 8. 存储层
	var encryptor *crypto.Encryptor
	if len(cfg.Storage.EncryptionKey) > 0 {
		encryptor, err = crypto.NewEncryptor(cfg.Storage.EncryptionKey)
		if err != nil {
			log.Fatal("Failed to init encryptor", zap.Error(err))
		}
	} else {
		log.Warn("STORAGE_ENCRYPTION_KEY not set, readings will be stored unencrypted")
	}

	readingsRepo := repository.NewReadingsRepository(db, log)
	alertsRepo := repository.NewAlertsRepository(db, log)
	store := storage.NewStore(readingsRepo, encryptor, log)
	cache := monitor.NewVitalsCache(redisClient, cfg.Monitor.VitalsKeyPrefix, cfg.Monitor.VitalsTTL, log)

	// 9. 监测核心
	mon := monitor.NewMonitor(
		cfg,
		linkMgr,
		readingParser,
		engine,
		suppressor,
		escalator,
		announcer,
		store,
		cache,
		alertsRepo,
		events,
		log,
	)

	// 10. 指标端点
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
			log.Error("Metrics server stopped", zap.Error(err))
		}
	}()

	// 11. 启动各层（在 goroutine 中）
	serviceErrChan := make(chan error, 2)
	go func() {
		if err := linkMgr.Start(ctx); err != nil {
			serviceErrChan <- fmt.Errorf("device link manager: %w", err)
		}
	}()
	go func() {
		if err := mon.Run(ctx); err != nil {
			serviceErrChan <- fmt.Errorf("monitor: %w", err)
		}
	}()

	// 启动即开始设备发现
	if err := linkMgr.StartScan(devicelink.Filter{}); err != nil {
		log.Error("Failed to start device scan", zap.Error(err))
	}

	// 12. 等待信号（优雅关闭）
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down",
			zap.String("signal", sig.String()),
		)
		cancel()
	case err := <-serviceErrChan:
		log.Fatal("Service error", zap.Error(err))
	}

	log.Info("pulseguard stopped")
}
