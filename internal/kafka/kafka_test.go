package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dhoini/affiliate-service/internal/domain"
	"github.com/Dhoini/affiliate-service/internal/repository"
	"github.com/Dhoini/affiliate-service/pkg/logger"
	"github.com/IBM/sarama"
	"github.com/cenkalti/backoff/v4"
	kafkaGo "github.com/segmentio/kafka-go"
)

type fakePropagator struct {
	calls []string
	err   error
}

func (f *fakePropagator) UpdateSubscriptionStatus(ctx context.Context, subscriptionID, status string) (repository.StatusChangeResult, error) {
	f.calls = append(f.calls, subscriptionID+":"+status)
	return repository.StatusChangeResult{UpdatedReferrals: 1}, f.err
}

func TestLifecycleHandler(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		propErr   error
		wantErr   bool
		wantCalls int
	}{
		{name: "valid event", value: `{"subscription_id":"sub_1","status":"cancelled"}`, wantCalls: 1},
		{name: "malformed json", value: `{not json`, wantCalls: 0},
		{name: "unknown status", value: `{"subscription_id":"sub_1","status":"paused"}`, wantCalls: 0},
		{name: "missing subscription", value: `{"status":"active"}`, wantCalls: 0},
		{name: "rejected by service", value: `{"subscription_id":"sub_1","status":"active"}`, propErr: domain.ErrInvalidStatus, wantCalls: 1},
		{name: "storage failure", value: `{"subscription_id":"sub_1","status":"active"}`, propErr: errors.New("db down"), wantErr: true, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prop := &fakePropagator{err: tt.propErr}
			h := &lifecycleHandler{propagator: prop, log: logger.NewNop()}

			err := h.handle(context.Background(), &sarama.ConsumerMessage{Value: []byte(tt.value)})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(prop.calls) != tt.wantCalls {
				t.Fatalf("calls = %v, want %d", prop.calls, tt.wantCalls)
			}
		})
	}
}

type fakeWriter struct {
	failures int
	written  []kafkaGo.Message
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafkaGo.Message) error {
	if w.failures > 0 {
		w.failures--
		return errors.New("leader not available")
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func testProducer(w messageWriter) *Producer {
	p := newProducer(w, logger.NewNop())
	p.retry = func() backoff.BackOff {
		return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), maxPublishRetries)
	}
	return p
}

func TestProducerRetriesTransientFailures(t *testing.T) {
	w := &fakeWriter{failures: 2}
	p := testProducer(w)

	err := p.Publish(context.Background(), domain.TopicReferralTracked, "sub_1", domain.ReferralTrackedEvent{SubscriptionID: "sub_1"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(w.written) != 1 {
		t.Fatalf("written = %d, want 1", len(w.written))
	}
	msg := w.written[0]
	if msg.Topic != domain.TopicReferralTracked || string(msg.Key) != "sub_1" {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestProducerGivesUp(t *testing.T) {
	w := &fakeWriter{failures: 100}
	p := testProducer(w)

	if err := p.Publish(context.Background(), "t", "k", map[string]string{"a": "b"}); err == nil {
		t.Fatal("expected error after retries")
	}
	if w.failures != 100-(maxPublishRetries+1) {
		t.Fatalf("unexpected number of attempts, %d failures left", w.failures)
	}
}

func TestMissingTopics(t *testing.T) {
	required := RequiredTopics("")
	partitions := []kafkaGo.Partition{{Topic: domain.TopicReferralTracked}, {Topic: domain.TopicReferralTracked, ID: 1}}

	missing := missingTopics(required, partitions)
	if len(missing) != len(required)-1 {
		t.Fatalf("missing = %v", topicNames(missing))
	}
	for _, m := range missing {
		if m.Topic == domain.TopicReferralTracked {
			t.Fatal("existing topic reported as missing")
		}
	}
}

func TestValidateBroker(t *testing.T) {
	if err := validateBroker("localhost:9092"); err != nil {
		t.Fatal(err)
	}
	if err := validateBroker("localhost"); err == nil {
		t.Fatal("expected error for address without port")
	}
	if err := validateBroker("localhost:abc"); err == nil {
		t.Fatal("expected error for non-numeric port")
	}
}
