package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-account-service/config"
	"github.com/oksasatya/go-account-service/pkg/helpers"
	"github.com/oksasatya/go-account-service/pkg/mailer"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-email-worker", cfg.Env)

	if cfg.RabbitMQURL == "" || cfg.RabbitMQEmailQueue == "" {
		log.Fatal("RabbitMQ not configured")
	}

	var sender mailer.Sender
	switch {
	case !cfg.MailSendEnabled:
		logger.Warn("MAIL_SEND_ENABLED=false; emails are logged, not sent")
		sender = mailer.LogSender{Logger: logger}
	case cfg.MailProvider == config.MailProviderMailgun:
		if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" {
			log.Fatal("Mailgun not configured")
		}
		sender = mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.NoReplyAddress)
	default:
		sender = mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.NoReplyAddress)
	}

	var dead mailer.DeadLetterSink
	if cfg.RedisAddr != "" {
		rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer func() { _ = rdb.Close() }()
		dead = helpers.NewRedisDeadLetters(rdb)
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("amqp dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("amqp channel: %v", err)
	}
	defer func() { _ = ch.Close() }()

	// Prefetch for fair dispatch
	if err := ch.Qos(16, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}
	if _, err := helpers.DeclareQueue(ch, cfg.RabbitMQEmailQueue); err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitMQEmailQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		for msg := range msgs {
			handle(logger, sender, dead, msg)
		}
		close(done)
	}()

	logger.WithField("queue", cfg.RabbitMQEmailQueue).Info("email worker listening")
	<-stop
	logger.Info("shutting down...")
	_ = ch.Close()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
	}
}

// handle delivers one message. Malformed and unrenderable jobs are dropped;
// send failures are requeued once, then dead-lettered.
func handle(logger *logrus.Logger, sender mailer.Sender, dead mailer.DeadLetterSink, msg amqp.Delivery) {
	var job mailer.EmailJob
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		logger.WithError(err).Warn("bad message")
		_ = msg.Nack(false, false)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	err := mailer.Deliver(ctx, sender, job)
	if err == nil {
		_ = msg.Ack(false)
		return
	}

	fields := logrus.Fields{"to": job.To, "template": job.Template, "redelivered": msg.Redelivered}
	if errors.Is(err, mailer.ErrEmptyRecipient) || isRenderError(job) {
		logger.WithError(err).WithFields(fields).Warn("dropping undeliverable email")
		_ = msg.Nack(false, false)
		return
	}
	if !msg.Redelivered {
		logger.WithError(err).WithFields(fields).Warn("send failed; requeueing")
		_ = msg.Nack(false, true)
		return
	}
	logger.WithError(err).WithFields(fields).Error("send failed again; dead-lettering")
	if dead != nil {
		if derr := dead.Push(ctx, job, err); derr != nil {
			logger.WithError(derr).Warn("failed to record dead letter")
		}
	}
	_ = msg.Nack(false, false)
}

func isRenderError(job mailer.EmailJob) bool {
	_, _, _, err := mailer.Render(job)
	return err != nil
}
