package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"homeboard/auth"
	"homeboard/internal/config"
	"homeboard/internal/logging"
	"homeboard/internal/mqtt"
	"homeboard/internal/redis"
	"homeboard/internal/scheduler"
	"homeboard/internal/session"
	"homeboard/internal/taskqueue"
	"homeboard/internal/web"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pion/mdns/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel)

	pool, err := pgxpool.New(context.Background(), cfg.DBURL)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to DB")
	}
	defer pool.Close()

	redisClient := redis.NewRedisClient(cfg.RedisAddr)

	mqttClient, err := mqtt.NewMQTTClient(cfg.MQTTBroker, cfg.MQTTClientID)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MQTT")
	}

	taskqueue.SetGlobalInstances(pool, redisClient, log)
	taskqueue.Init(cfg.RedisAddr)
	go taskqueue.StartWorkers(cfg.RedisAddr)

	sched := scheduler.New()
	sched.Start()

	sessions := session.NewManager(pool, redisClient, mqttClient, sched, cfg.SimulatorSpec, log)
	authModule := auth.NewAuthModule(pool, redisClient, cfg.JWTSecret)

	webServer := web.NewWebServer(authModule, sessions, redisClient, log)
	go func() {
		if err := webServer.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			log.WithError(err).Fatal("Web server failed")
		}
	}()

	go startMDNSServer(cfg.MDNSLocalName, log)

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	sessions.CloseAll()
	sched.Stop()
	taskqueue.StopWorkers()
	mqttClient.Disconnect(250)
	log.Info("Shutdown complete")
}

func startMDNSServer(localName string, log *logrus.Logger) {
	addr4, err := net.ResolveUDPAddr("udp4", mdns.DefaultAddressIPv4)
	if err != nil {
		log.WithError(err).Warn("Failed to resolve UDP4 address for mDNS")
		return
	}

	addr6, err := net.ResolveUDPAddr("udp6", mdns.DefaultAddressIPv6)
	if err != nil {
		log.WithError(err).Warn("Failed to resolve UDP6 address for mDNS")
		return
	}

	l4, err := net.ListenUDP("udp4", addr4)
	if err != nil {
		log.WithError(err).Warn("Failed to listen on UDP4 for mDNS")
		return
	}

	l6, err := net.ListenUDP("udp6", addr6)
	if err != nil {
		log.WithError(err).Warn("Failed to listen on UDP6 for mDNS")
		return
	}

	_, err = mdns.Server(ipv4.NewPacketConn(l4), ipv6.NewPacketConn(l6), &mdns.Config{
		LocalNames: []string{localName},
	})
	if err != nil {
		log.WithError(err).Warn("Failed to start mDNS server")
	}
}
