package webhook

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pawsitter-settlement/internal/domain/payment"
	"github.com/pawsitter-settlement/internal/domain/shared"
	"github.com/pawsitter-settlement/internal/platform/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test"

type reconcilerFixture struct {
	tx       *fakeTxManager
	events   *MockEventLog
	registry *Registry
	handled  []string
	result   payment.EventOutcome
	err      error
	r        *Reconciler
}

func newReconcilerFixture() *reconcilerFixture {
	f := &reconcilerFixture{
		tx:       &fakeTxManager{},
		events:   new(MockEventLog),
		registry: NewRegistry(),
		result:   payment.OutcomeApplied,
	}
	f.registry.Register(EventPaymentCaptured, HandlerFunc(func(ctx context.Context, tx pgx.Tx, event *Event) (payment.EventOutcome, error) {
		f.handled = append(f.handled, event.ID)
		return f.result, f.err
	}))
	f.r = NewReconciler(discardLogger(), testSecret, f.tx, f.events, f.registry)
	return f
}

func signed(body string) ([]byte, string) {
	raw := []byte(body)
	return raw, Sign([]byte(testSecret), raw)
}

func TestReconciler_HandleWebhook(t *testing.T) {
	ctx := context.Background()

	t.Run("TamperedBodyIsRejectedBeforeAnyWrite", func(t *testing.T) {
		f := newReconcilerFixture()
		_, signature := signed(`{"id":"evt_1","event":"payment.captured"}`)
		tampered := []byte(`{"id":"evt_1","event":"payment.captured","payload":{"payment":{"entity":{"amount":1}}}}`)

		outcome, err := f.r.HandleWebhook(ctx, tampered, signature, "")

		assert.Empty(t, outcome)
		assert.IsType(t, shared.ErrSignatureInvalid{}, err)
		assert.Equal(t, 0, f.tx.calls)
		assert.Empty(t, f.handled)
		f.events.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})

	t.Run("MalformedSignedBody", func(t *testing.T) {
		f := newReconcilerFixture()
		raw, signature := signed(`{"id":`)

		_, err := f.r.HandleWebhook(ctx, raw, signature, "")

		assert.True(t, errors.Is(err, shared.ErrValidation{}))
		assert.Equal(t, 0, f.tx.calls)
	})

	t.Run("DispatchesAndStoresOutcome", func(t *testing.T) {
		f := newReconcilerFixture()
		raw, signature := signed(`{"id":"evt_1","event":"payment.captured"}`)
		f.events.On("Record", mock.Anything, mock.MatchedBy(func(e *payment.ProcessedEvent) bool {
			return e.EventID == "evt_1" && e.EventType == EventPaymentCaptured
		})).Return(true, nil).Once()
		f.events.On("SetOutcome", mock.Anything, "evt_1", payment.OutcomeApplied).Return(nil).Once()

		outcome, err := f.r.HandleWebhook(ctx, raw, signature, "")

		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, outcome)
		assert.Equal(t, []string{"evt_1"}, f.handled)
		f.events.AssertExpectations(t)
	})

	t.Run("RedeliveryIsDuplicate", func(t *testing.T) {
		f := newReconcilerFixture()
		raw, signature := signed(`{"id":"evt_1","event":"payment.captured"}`)
		f.events.On("Record", mock.Anything, mock.Anything).Return(false, nil).Once()

		outcome, err := f.r.HandleWebhook(ctx, raw, signature, "")

		require.NoError(t, err)
		assert.Equal(t, OutcomeDuplicate, outcome)
		assert.Empty(t, f.handled)
		f.events.AssertNotCalled(t, "SetOutcome", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("UnknownTypeIsIgnored", func(t *testing.T) {
		f := newReconcilerFixture()
		raw, signature := signed(`{"event":"settlement.processed"}`)
		f.events.On("Record", mock.Anything, mock.Anything).Return(true, nil).Once()
		f.events.On("SetOutcome", mock.Anything, "hdr_9", payment.OutcomeIgnored).Return(nil).Once()

		outcome, err := f.r.HandleWebhook(ctx, raw, signature, "hdr_9")

		require.NoError(t, err)
		assert.Equal(t, OutcomeIgnored, outcome)
		f.events.AssertExpectations(t)
	})

	t.Run("HandlerNoop", func(t *testing.T) {
		f := newReconcilerFixture()
		f.result = payment.OutcomeNoop
		raw, signature := signed(`{"id":"evt_2","event":"payment.captured"}`)
		f.events.On("Record", mock.Anything, mock.Anything).Return(true, nil).Once()
		f.events.On("SetOutcome", mock.Anything, "evt_2", payment.OutcomeNoop).Return(nil).Once()

		outcome, err := f.r.HandleWebhook(ctx, raw, signature, "")

		require.NoError(t, err)
		assert.Equal(t, OutcomeNoop, outcome)
	})

	t.Run("HandlerErrorSkipsOutcome", func(t *testing.T) {
		f := newReconcilerFixture()
		f.err = errors.New("db unavailable")
		raw, signature := signed(`{"id":"evt_3","event":"payment.captured"}`)
		f.events.On("Record", mock.Anything, mock.Anything).Return(true, nil).Once()

		outcome, err := f.r.HandleWebhook(ctx, raw, signature, "")

		assert.Empty(t, outcome)
		assert.EqualError(t, err, "db unavailable")
		f.events.AssertNotCalled(t, "SetOutcome", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("SignedEventWithoutEntityIsRejected", func(t *testing.T) {
		tx := &fakeTxManager{}
		events := new(MockEventLog)
		registry := NewRegistry()
		NewHandlers(discardLogger(), nil, nil, nil, "INR").RegisterAll(registry)
		r := NewReconciler(discardLogger(), testSecret, tx, events, registry)
		raw, signature := signed(`{"id":"evt_5","event":"payment.captured","payload":{}}`)
		events.On("Record", mock.Anything, mock.Anything).Return(true, nil).Once()
		events.On("SetOutcome", mock.Anything, "evt_5", payment.OutcomeRejected).Return(nil).Once()

		outcome, err := r.HandleWebhook(ctx, raw, signature, "")

		require.NoError(t, err)
		assert.Equal(t, OutcomeRejected, outcome)
		events.AssertExpectations(t)
	})

	t.Run("UnregisteredTypesShareOneMetricLabel", func(t *testing.T) {
		f := newReconcilerFixture()
		f.events.On("Record", mock.Anything, mock.Anything).Return(true, nil)
		f.events.On("SetOutcome", mock.Anything, mock.Anything, payment.OutcomeIgnored).Return(nil)
		before := testutil.ToFloat64(metrics.WebhookEventsTotal.WithLabelValues("unhandled", "ignored"))

		for _, body := range []string{`{"id":"evt_6","event":"order.paid"}`, `{"id":"evt_7","event":"invoice.expired"}`} {
			raw, signature := signed(body)
			_, err := f.r.HandleWebhook(ctx, raw, signature, "")
			require.NoError(t, err)
		}

		assert.Equal(t, before+2, testutil.ToFloat64(metrics.WebhookEventsTotal.WithLabelValues("unhandled", "ignored")))
	})

	t.Run("RecordError", func(t *testing.T) {
		f := newReconcilerFixture()
		raw, signature := signed(`{"id":"evt_4","event":"payment.captured"}`)
		f.events.On("Record", mock.Anything, mock.Anything).Return(false, errors.New("insert failed")).Once()

		_, err := f.r.HandleWebhook(ctx, raw, signature, "")

		assert.Error(t, err)
		assert.Empty(t, f.handled)
	})
}
