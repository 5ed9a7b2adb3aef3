package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
	"github.com/kirillkom/leave-policy-bot/internal/infrastructure/resilience"
)

type publisherFake struct {
	subject string
	data    [][]byte
	errs    []error
}

func (f *publisherFake) Publish(subject string, data []byte) error {
	f.subject = subject
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return err
	}
	f.data = append(f.data, data)
	return nil
}

func TestPublishIngestJobEncodesJSON(t *testing.T) {
	pub := &publisherFake{}
	q := newQueue(pub, "leavebot.ingest", Options{})

	job := domain.IngestJob{StorageKey: "k1_policy.pdf", Filename: "policy.pdf", Name: "policy", CountryCode: "IN"}
	if err := q.PublishIngestJob(context.Background(), job); err != nil {
		t.Fatalf("PublishIngestJob() error = %v", err)
	}
	if pub.subject != "leavebot.ingest" || len(pub.data) != 1 {
		t.Fatalf("unexpected publish %q %d", pub.subject, len(pub.data))
	}
	var got domain.IngestJob
	if err := json.Unmarshal(pub.data[0], &got); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if got.StorageKey != job.StorageKey || got.CountryCode != "IN" {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestPublishRetriesDisconnect(t *testing.T) {
	pub := &publisherFake{errs: []error{nats.ErrDisconnected}}
	exec := resilience.NewExecutor(resilience.Config{RetryMaxAttempts: 2, RetryInitialBackoff: time.Millisecond, RetryMaxBackoff: time.Millisecond})
	q := newQueue(pub, "s", Options{ResilienceExecutor: exec})

	if err := q.PublishIngestJob(context.Background(), domain.IngestJob{StorageKey: "k"}); err != nil {
		t.Fatalf("PublishIngestJob() error = %v", err)
	}
	if len(pub.data) != 1 {
		t.Fatalf("expected retried publish to land")
	}
}

func TestPublishFailureIsTemporary(t *testing.T) {
	pub := &publisherFake{errs: []error{nats.ErrNoServers}}
	q := newQueue(pub, "s", Options{})

	err := q.PublishIngestJob(context.Background(), domain.IngestJob{StorageKey: "k"})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary, got %v", err)
	}
}

func TestHandleAppliesJobTimeout(t *testing.T) {
	q := newQueue(&publisherFake{}, "s", Options{JobTimeout: 50 * time.Millisecond})
	payload, _ := json.Marshal(domain.IngestJob{StorageKey: "k1"})

	var (
		got      domain.IngestJob
		deadline bool
	)
	q.handle(context.Background(), payload, func(ctx context.Context, job domain.IngestJob) error {
		got = job
		_, deadline = ctx.Deadline()
		return errors.New("ignored")
	})
	if got.StorageKey != "k1" || !deadline {
		t.Fatalf("handler got %+v deadline=%v", got, deadline)
	}
}

func TestHandleDropsMalformedPayload(t *testing.T) {
	q := newQueue(&publisherFake{}, "s", Options{})
	called := false
	q.handle(context.Background(), []byte("not json"), func(context.Context, domain.IngestJob) error {
		called = true
		return nil
	})
	if called {
		t.Fatalf("handler must not run for malformed payload")
	}
}

func TestRelayRoundTrip(t *testing.T) {
	pub := &publisherFake{}
	relay := &EventRelay{pub: pub, subject: "leavebot.events"}
	relay.Forward(domain.Event{Type: domain.EventDocumentIndexed, Origin: "worker-1", DocumentID: "d1", ChunkCount: 3})

	if len(pub.data) != 1 {
		t.Fatalf("expected one relayed event")
	}
	var got domain.Event
	decodeEvent(pub.data[0], func(e domain.Event) { got = e })
	if got.DocumentID != "d1" || got.Origin != "worker-1" || got.ChunkCount != 3 {
		t.Fatalf("unexpected event %+v", got)
	}
}
