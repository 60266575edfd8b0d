package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	commonredis "siteclock/internal/common/redis"
	"siteclock/internal/domain"
)

// Attendance event actions
const (
	ActionRecorded = "recorded"
	ActionForced   = "forced"
)

// AttendanceEvent is what subscribers receive for every new record
type AttendanceEvent struct {
	Action     string                  `json:"action"`
	Record     domain.AttendanceRecord `json:"record"`
	LocalTime  string                  `json:"localTime"`
	OccurredAt time.Time               `json:"occurredAt"`
}

// MessagePublisher is the MQTT surface the publisher needs
type MessagePublisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	QoS() byte
}

// EventPublisher fans attendance events out to a Redis stream and MQTT.
// Both sinks are optional; failures are logged and never returned.
type EventPublisher struct {
	redis       *redis.Client
	stream      string
	mqtt        MessagePublisher
	topicPrefix string
	logger      *zap.Logger
}

func NewEventPublisher(redisClient *redis.Client, stream string, mqttClient MessagePublisher, topicPrefix string, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{
		redis:       redisClient,
		stream:      stream,
		mqtt:        mqttClient,
		topicPrefix: topicPrefix,
		logger:      logger,
	}
}

// SiteTopic is the MQTT topic carrying the events of one site
func (p *EventPublisher) SiteTopic(siteID *int64) string {
	id := "unassigned"
	if siteID != nil {
		id = strconv.FormatInt(*siteID, 10)
	}
	return fmt.Sprintf("%s/worksites/%s/attendance", p.topicPrefix, id)
}

func (p *EventPublisher) PublishAttendance(ctx context.Context, action string, rec domain.AttendanceRecord) {
	evt := AttendanceEvent{
		Action:     action,
		Record:     rec,
		LocalTime:  domain.FormatLocal(rec.Timestamp),
		OccurredAt: time.Now(),
	}

	if p.redis != nil && p.stream != "" {
		if id, err := commonredis.PublishJSONToStream(ctx, p.redis, p.stream, evt); err != nil {
			p.logger.Warn("Failed to publish attendance to stream", zap.String("stream", p.stream), zap.Error(err))
		} else {
			p.logger.Debug("Attendance published to stream", zap.String("stream", p.stream), zap.String("id", id))
		}
	}

	if p.mqtt != nil {
		payload, err := json.Marshal(evt)
		if err != nil {
			p.logger.Warn("Failed to encode attendance event", zap.Error(err))
			return
		}
		topic := p.SiteTopic(rec.WorkSiteID)
		if err := p.mqtt.Publish(topic, p.mqtt.QoS(), false, payload); err != nil {
			p.logger.Warn("Failed to publish attendance to MQTT", zap.String("topic", topic), zap.Error(err))
		}
	}
}
