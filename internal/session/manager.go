package session

import (
	"context"
	"fmt"
	"sync"

	"homeboard/internal/dispatch"
	"homeboard/internal/engine"
	"homeboard/internal/feed"
	"homeboard/internal/scheduler"
	"homeboard/internal/simulator"
	"homeboard/internal/store"
	"homeboard/internal/taskqueue"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Manager opens one Session per user identity on demand and closes them all
// on shutdown. Store access is gated on the auth provider's ready identity;
// the manager only ever sees a resolved user id (real or anonymous).
type Manager struct {
	pool    *pgxpool.Pool
	rdb     *redis.Client
	mqtt    mqtt.Client
	sched   *scheduler.Scheduler
	simSpec string
	log     *logrus.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(pool *pgxpool.Pool, rdb *redis.Client, mqttClient mqtt.Client, sched *scheduler.Scheduler, simSpec string, log *logrus.Logger) *Manager {
	return &Manager{
		pool:     pool,
		rdb:      rdb,
		mqtt:     mqttClient,
		sched:    sched,
		simSpec:  simSpec,
		log:      log,
		sessions: make(map[string]*Session),
	}
}

// Get returns the user's session, opening it on first use.
func (m *Manager) Get(userID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		return s, nil
	}
	s, err := m.open(userID)
	if err != nil {
		return nil, err
	}
	m.sessions[userID] = s
	return s, nil
}

// CloseAll tears down every open session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		s.Close()
		delete(m.sessions, id)
	}
}

func (m *Manager) open(userID string) (*Session, error) {
	ctx, cancel := context.WithCancel(context.Background())
	log := m.log.WithField("session", userID)

	f := feed.New(m.pool, m.rdb, userID, m.log)
	devices := store.NewDeviceStore(f, m.log)
	rules := store.NewRuleStore(m.log)
	history := store.NewHistoryBuffer(f, m.log)
	notifier := dispatch.NewRedisNotifier(m.rdb, userID, m.log)
	dispatcher := dispatch.New(userID, f, devices, notifier, taskqueue.EnqueueApply, m.log)

	s := &Session{
		UserID:     userID,
		Feed:       f,
		Devices:    devices,
		Rules:      rules,
		History:    history,
		Dispatcher: dispatcher,
		mqtt:       m.mqtt,
		readTopic:  simulator.TopicFilter(userID),
		cancel:     cancel,
		log:        log,
	}

	devCh, devStop, err := f.Subscribe(ctx, feed.Devices)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe devices: %w", err)
	}
	s.unsubs = append(s.unsubs, devStop)

	ruleCh, ruleStop, err := f.Subscribe(ctx, feed.Rules)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("subscribe rules: %w", err)
	}
	s.unsubs = append(s.unsubs, ruleStop)

	histCh, histStop, err := f.Subscribe(ctx, feed.History)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("subscribe history: %w", err)
	}
	s.unsubs = append(s.unsubs, histStop)

	eng := engine.New(devices, rules, history, dispatcher, m.log)
	go eng.Run(ctx, devCh, ruleCh, histCh)

	if token := m.mqtt.Subscribe(s.readTopic, 1, s.onReading); token.Wait() && token.Error() != nil {
		s.Close()
		return nil, fmt.Errorf("subscribe readings: %w", token.Error())
	}

	s.sim = simulator.New(m.mqtt, m.rdb, m.sched, userID, m.simSpec, m.log)
	if err := s.sim.Start(); err != nil {
		s.Close()
		return nil, err
	}

	log.Info("session opened")
	return s, nil
}
