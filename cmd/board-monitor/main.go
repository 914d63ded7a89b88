package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stitchboard/stitchboard/internal/events"
)

// board-monitor tails the order event topics and logs board activity.
// Useful to watch a shop's day without opening the UI.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	kafkaBrokers := getEnv("KAFKA_BROKERS", "localhost:9092")
	groupID := getEnv("KAFKA_GROUP_ID", "board-monitor-group")

	activity := &activityLogger{logger: logger}

	var consumer *events.KafkaConsumer
	var err error
	for i := 0; i < 10; i++ {
		consumer, err = events.NewKafkaConsumer(kafkaBrokers, groupID, activity, logger)
		if err == nil {
			logger.Info("Connected to Kafka")
			break
		}
		logger.WithError(err).WithField("attempt", i+1).Warn("Failed to connect to Kafka, retrying...")
		time.Sleep(5 * time.Second)
	}
	if err != nil {
		logger.WithError(err).Fatal("Failed to create Kafka consumer after retries")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		logger.WithField("brokers", kafkaBrokers).Info("Board monitor started")
		if err := consumer.Start(ctx); err != nil {
			logger.WithError(err).Error("Kafka consumer error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down board monitor...")
	cancel()
	if err := consumer.Close(); err != nil {
		logger.WithError(err).Error("Failed to close Kafka consumer")
	}
}

type activityLogger struct {
	logger *logrus.Logger
}

func (a *activityLogger) HandleOrderCreated(event events.OrderCreatedEvent) error {
	a.logger.WithFields(logrus.Fields{
		"order_id": event.OrderID,
		"customer": event.CustomerName,
		"status":   event.Status,
	}).Info("Order placed")
	return nil
}

func (a *activityLogger) HandleOrderStatusChanged(event events.OrderStatusChangedEvent) error {
	a.logger.WithFields(logrus.Fields{
		"order_id": event.OrderID,
		"from":     event.OldStatus,
		"to":       event.NewStatus,
	}).Info("Order moved")
	return nil
}

func (a *activityLogger) HandleOrderDeleted(event events.OrderDeletedEvent) error {
	a.logger.WithField("order_id", event.OrderID).Info("Order removed")
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
