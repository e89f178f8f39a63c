package monitor

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEventPublisher_InProcessSubscribe(t *testing.T) {
	p := NewEventPublisher(nil, "", zap.NewNop())

	p.Publish(EventAlertTriggered, map[string]string{"alert_id": "a-1"})

	select {
	case e := <-p.Subscribe():
		assert.Equal(t, EventAlertTriggered, e.Type)
		assert.WithinDuration(t, time.Now(), e.Timestamp, time.Second)
	default:
		t.Fatal("expected event on subscriber channel")
	}
}

func TestEventPublisher_WritesToStream(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	p := NewEventPublisher(client, "monitor:events", zap.NewNop())
	p.Publish(EventEmergencyActivated, map[string]string{"escalation_id": "esc-1"})

	// Stream 写入是异步的
	require.Eventually(t, func() bool {
		return mr.Exists("monitor:events")
	}, 2*time.Second, 10*time.Millisecond)

	entries, err := mr.Stream("monitor:events")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestEventPublisher_DropsWhenChannelFull(t *testing.T) {
	p := NewEventPublisher(nil, "", zap.NewNop())

	// 无消费者时填满缓冲通道，多余事件被丢弃而非阻塞
	for i := 0; i < 200; i++ {
		p.Publish(EventDeviceConnected, nil)
	}

	count := 0
	for {
		select {
		case <-p.Subscribe():
			count++
		default:
			assert.Equal(t, 128, count)
			return
		}
	}
}
