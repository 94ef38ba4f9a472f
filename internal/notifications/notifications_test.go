package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"seatflow/internal/sales"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler remembers which handler method received each notification
type recordingHandler struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (h *recordingHandler) record(name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, name)
	return h.err
}

func (h *recordingHandler) HandleNewEvent(context.Context, NewEvent) error {
	return h.record("new")
}
func (h *recordingHandler) HandleEventUpdated(context.Context, EventUpdated) error {
	return h.record("updated")
}
func (h *recordingHandler) HandleEventCancelled(context.Context, EventCancelled) error {
	return h.record("cancelled")
}
func (h *recordingHandler) HandleSeatLocked(context.Context, SeatLocked) error {
	return h.record("locked")
}
func (h *recordingHandler) HandleSeatSold(context.Context, SeatSold) error {
	return h.record("sold")
}
func (h *recordingHandler) HandleSeatReleased(context.Context, SeatReleased) error {
	return h.record("released")
}

func TestDecodeDispatchesEachVariant(t *testing.T) {
	cases := []struct {
		payload string
		kind    Kind
		handler string
	}{
		{`{"tipo":"NUEVO_EVENTO","eventoId":7,"nombre":"Recital"}`, KindNewEvent, "new"},
		{`{"tipo":"EVENTO_ACTUALIZADO","eventoId":7}`, KindEventUpdated, "updated"},
		{`{"tipo":"evento_cancelado","eventoId":7}`, KindEventCancelled, "cancelled"},
		{`{"tipo":"ASIENTO_BLOQUEADO","eventoId":7,"fila":2,"columna":3,"nuevoEstado":"BLOQUEADO"}`, KindSeatLocked, "locked"},
		{`{"tipo":"ASIENTO_VENDIDO","eventoId":7,"fila":2,"columna":3}`, KindSeatSold, "sold"},
		{`{"tipo":"ASIENTO_LIBERADO","eventoId":7,"fila":2,"columna":3}`, KindSeatReleased, "released"},
		{`{"operacion":"CREATE","eventoId":7,"usuario":"admin"}`, KindNewEvent, "new"},
		{`{"operacion":"update","eventoId":7}`, KindEventUpdated, "updated"},
		{`{"operacion":"DELETE","eventoId":7}`, KindEventCancelled, "cancelled"},
	}

	for _, tc := range cases {
		t.Run(tc.payload, func(t *testing.T) {
			n, err := Decode([]byte(tc.payload))
			require.NoError(t, err)
			assert.Equal(t, tc.kind, n.Kind())
			assert.Equal(t, int64(7), n.ExternalEventID())

			h := &recordingHandler{}
			require.NoError(t, n.Dispatch(context.Background(), h))
			assert.Equal(t, []string{tc.handler}, h.calls)
		})
	}
}

func TestDecodeSeatPayload(t *testing.T) {
	n, err := Decode([]byte(`{"tipo":"ASIENTO_VENDIDO","eventoId":3,"fila":4,"columna":9,"nuevoEstado":"VENDIDO"}`))
	require.NoError(t, err)

	sold, ok := n.(SeatSold)
	require.True(t, ok)
	assert.Equal(t, 4, sold.Row)
	assert.Equal(t, 9, sold.Column)
	assert.Equal(t, "VENDIDO", sold.NewState)
}

func TestDecodeRejects(t *testing.T) {
	cases := map[string]struct {
		payload string
		want    error
	}{
		"not json":          {`{`, ErrMalformed},
		"missing event id":  {`{"tipo":"NUEVO_EVENTO"}`, ErrMalformed},
		"zero event id":     {`{"tipo":"NUEVO_EVENTO","eventoId":0}`, ErrMalformed},
		"unknown tipo":      {`{"tipo":"EVENTO_ARCHIVADO","eventoId":1}`, ErrUnknownKind},
		"unknown operacion": {`{"operacion":"MERGE","eventoId":1}`, ErrUnknownKind},
		"no tag at all":     {`{"eventoId":1}`, ErrUnknownKind},
		"seat without fila": {`{"tipo":"ASIENTO_VENDIDO","eventoId":1,"columna":2}`, ErrMalformed},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(tc.payload))
			assert.ErrorIs(t, err, tc.want)
			assert.True(t, IsPermanent(err))
		})
	}
}

// Webhook tests

func newWebhookRouter(h Handler, token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	SetupNotificationRoutes(router.Group("/api/v1"), NewController(NewProcessor(h)), token)
	return router
}

func post(router *gin.Engine, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-Proxy-Token", token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestWebhookRequiresToken(t *testing.T) {
	h := &recordingHandler{}
	router := newWebhookRouter(h, "s3cret")

	w := post(router, "/api/v1/notifications/events", `{"tipo":"NUEVO_EVENTO","eventoId":1}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = post(router, "/api/v1/notifications/events", `{"tipo":"NUEVO_EVENTO","eventoId":1}`, "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, h.calls)

	w = post(router, "/api/v1/notifications/events", `{"tipo":"NUEVO_EVENTO","eventoId":1}`, "s3cret")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"new"}, h.calls)
}

func TestWebhookRoutesByEndpoint(t *testing.T) {
	h := &recordingHandler{}
	router := newWebhookRouter(h, "")

	w := post(router, "/api/v1/notifications/seats", `{"tipo":"ASIENTO_LIBERADO","eventoId":1,"fila":1,"columna":1}`, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = post(router, "/api/v1/notifications/seats", `{"tipo":"NUEVO_EVENTO","eventoId":1}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(router, "/api/v1/notifications/events", `{"tipo":"RARO","eventoId":1}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, []string{"released"}, h.calls)
}

func TestWebhookHandlerFailureIsRetryable(t *testing.T) {
	h := &recordingHandler{err: errors.New("inventory unreachable")}
	router := newWebhookRouter(h, "")

	w := post(router, "/api/v1/notifications/events", `{"tipo":"EVENTO_ACTUALIZADO","eventoId":5}`, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// Kafka tests

func TestConsumerRetriesHandlerFailures(t *testing.T) {
	h := &recordingHandler{err: errors.New("boom")}
	handler := &ConsumerGroupHandler{
		consumer:  &KafkaChangeFeedConsumer{config: &ConsumerConfig{MaxRetries: 2, RetryBackoffDuration: time.Millisecond}},
		processor: NewProcessor(h),
	}

	handler.processMessage(context.Background(), &sarama.ConsumerMessage{
		Topic: "eventos-actualizacion",
		Value: []byte(`{"operacion":"UPDATE","eventoId":9}`),
	})

	assert.Len(t, h.calls, 3, "first try plus two retries")
}

func TestConsumerDropsUndecodableMessages(t *testing.T) {
	h := &recordingHandler{}
	handler := &ConsumerGroupHandler{processor: NewProcessor(h)}

	handler.processMessage(context.Background(), &sarama.ConsumerMessage{Value: []byte(`{"tipo":"???","eventoId":1}`)})

	assert.Empty(t, h.calls)
}

func TestSaleEventProducerPublishesConfirmation(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	producer := NewSaleEventProducerWith(sp, "seatflow-sales")

	confirmationID := int64(9001)
	confirmedAt := time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)
	sale := &sales.Sale{
		ID:              uuid.New(),
		UserID:          uuid.New(),
		EventID:         uuid.New(),
		ExternalEventID: 42,
		ConfirmationID:  &confirmationID,
		ConfirmedAt:     &confirmedAt,
		Total:           200,
		Attempts:        1,
		Outcome:         sales.OutcomeConfirmed,
		Seats:           []sales.SaleSeat{{Row: 2, Column: 1}, {Row: 2, Column: 2}},
	}

	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var msg SaleConfirmedMessage
		if err := json.Unmarshal(val, &msg); err != nil {
			return err
		}
		if msg.Type != SaleConfirmedType || msg.ConfirmationID != 9001 || msg.Seats != 2 || msg.SaleID != sale.ID.String() {
			return errors.New("unexpected sale event payload")
		}
		return nil
	})

	require.NoError(t, producer.PublishSaleConfirmed(context.Background(), sale))
	require.NoError(t, producer.Close())
}

func TestSaleEventProducerReportsFailure(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	producer := NewSaleEventProducerWith(sp, "seatflow-sales")
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := producer.PublishSaleConfirmed(context.Background(), &sales.Sale{ID: uuid.New()})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, producer.Close())
}
