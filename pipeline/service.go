package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// consumerAckWait allows for the slowest stage, which chains several
// generator calls.
const consumerAckWait = 10 * time.Minute

// stageConsumers maps each stage to its durable consumer and trigger
// subject.
var stageConsumers = []struct {
	stage   string
	durable string
	subject string
}{
	{StageIngest, "dealflow-ingest", SubjectIngest},
	{StageEnrich, "dealflow-enrich", SubjectEnrich},
	{StageDiligence, "dealflow-diligence", SubjectDiligence},
	{StageMatch, "dealflow-match", SubjectMatch},
}

// Service consumes stage messages from JetStream and dispatches them to
// the stage handlers.
type Service struct {
	js       jetstream.JetStream
	handlers *Handlers
	logger   *slog.Logger

	stream    jetstream.Stream
	consumers []jetstream.Consumer

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewService creates the pipeline consumer service.
func NewService(js jetstream.JetStream, handlers *Handlers, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{js: js, handlers: handlers, logger: logger}
}

// Start ensures the stream and the per-stage durable consumers exist and
// begins consuming. It returns once all consume loops are running.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("pipeline service already running")
	}
	s.running = true
	subCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	stream, err := s.js.CreateOrUpdateStream(subCtx, jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: []string{"dealflow.>"},
		Storage:  jetstream.FileStorage,
		MaxAge:   24 * time.Hour,
	})
	if err != nil {
		s.rollbackStart(cancel)
		return fmt.Errorf("ensure stream %s: %w", StreamName, err)
	}
	s.stream = stream

	for _, sc := range stageConsumers {
		consumer, err := stream.CreateOrUpdateConsumer(subCtx, jetstream.ConsumerConfig{
			Durable:       sc.durable,
			FilterSubject: sc.subject,
			AckPolicy:     jetstream.AckExplicitPolicy,
			AckWait:       consumerAckWait,
			MaxDeliver:    3,
		})
		if err != nil {
			s.rollbackStart(cancel)
			return fmt.Errorf("create consumer %s: %w", sc.durable, err)
		}
		s.consumers = append(s.consumers, consumer)

		s.wg.Add(1)
		go s.consumeLoop(subCtx, sc.stage, consumer)
	}

	s.logger.Info("Pipeline service started",
		"stream", StreamName, "consumers", len(s.consumers))
	return nil
}

// Stop cancels the consume loops and waits for in-flight handlers.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	s.logger.Info("Pipeline service stopped")
}

func (s *Service) rollbackStart(cancel context.CancelFunc) {
	s.mu.Lock()
	s.running = false
	s.cancel = nil
	s.mu.Unlock()
	cancel()
	s.wg.Wait()
}

func (s *Service) consumeLoop(ctx context.Context, stage string, consumer jetstream.Consumer) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgs, err := consumer.Fetch(1, jetstream.FetchMaxWait(5*time.Second))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Debug("Fetch timeout or error", "stage", stage, "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			s.handleMessage(ctx, stage, msg)
		}

		if msgs.Error() != nil && !errors.Is(msgs.Error(), context.DeadlineExceeded) {
			s.logger.Warn("Message fetch error", "stage", stage, "error", msgs.Error())
		}
	}
}

// handleMessage dispatches a single stage message. Malformed payloads and
// transient handler errors are NAKed for redelivery; terminal errors have
// already been recorded as FAILED documents and are acknowledged.
func (s *Service) handleMessage(ctx context.Context, stage string, msg jetstream.Msg) {
	if ctx.Err() != nil {
		s.nak(msg, stage)
		return
	}

	err := s.dispatch(ctx, stage, msg.Data())
	if err == nil || IsTerminal(err) {
		if err != nil {
			s.logger.Warn("Stage terminally failed", "stage", stage, "error", err)
		}
		if ackErr := msg.Ack(); ackErr != nil {
			s.logger.Warn("Failed to ACK message", "stage", stage, "error", ackErr)
		}
		return
	}

	s.logger.Error("Stage failed, requesting redelivery", "stage", stage, "error", err)
	s.nak(msg, stage)
}

func (s *Service) dispatch(ctx context.Context, stage string, data []byte) error {
	switch stage {
	case StageIngest:
		var m IngestMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("parse ingest message: %w", err)
		}
		return s.handlers.HandleIngest(ctx, m)
	case StageEnrich:
		var m EnrichMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("parse enrich message: %w", err)
		}
		return s.handlers.HandleEnrichAndValidate(ctx, m)
	case StageDiligence:
		var m DiligenceMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("parse diligence message: %w", err)
		}
		return s.handlers.HandleDiligence(ctx, m)
	case StageMatch:
		var m MatchMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("parse match message: %w", err)
		}
		return s.handlers.HandleMatch(ctx, m)
	}
	return fmt.Errorf("unknown stage %q", stage)
}

func (s *Service) nak(msg jetstream.Msg, stage string) {
	if err := msg.Nak(); err != nil {
		s.logger.Warn("Failed to NAK message", "stage", stage, "error", err)
	}
}

// JetStreamPublisher publishes stage messages through JetStream so they
// land on the work-queue stream.
type JetStreamPublisher struct {
	js jetstream.JetStream
}

// NewJetStreamPublisher wraps a JetStream context as a Publisher.
func NewJetStreamPublisher(js jetstream.JetStream) *JetStreamPublisher {
	return &JetStreamPublisher{js: js}
}

// Publish sends one message and waits for the stream ack.
func (p *JetStreamPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	_, err := p.js.Publish(ctx, subject, data)
	return err
}
