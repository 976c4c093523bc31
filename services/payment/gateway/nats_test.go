package gateway

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/piresc/payrelay/internal/pkg/constants"
	"github.com/piresc/payrelay/internal/pkg/models"
	natspkg "github.com/piresc/payrelay/internal/pkg/nats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	natsserver "github.com/nats-io/nats-server/v2/test"
)

func TestNATSGateway_PublishPaymentEvent(t *testing.T) {
	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	srv := natsserver.RunServer(&opts)
	defer srv.Shutdown()

	client, err := natspkg.NewClient(srv.ClientURL())
	require.NoError(t, err)
	defer client.Close()

	subConn, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	defer subConn.Close()

	msgCh := make(chan *nats.Msg, 1)
	_, err = subConn.Subscribe(constants.SubjectPaymentSucceeded, func(msg *nats.Msg) {
		msgCh <- msg
	})
	require.NoError(t, err)
	require.NoError(t, subConn.Flush())

	gw := NewNATSGateway(client)
	tx := &models.Transaction{
		ID:               "tx-1",
		GatewayReference: "ref_123",
		Amount:           150,
		Currency:         "KES",
		Status:           models.TransactionStatusSuccess,
		GatewayData:      models.GatewayData{models.CryptoTransactionHashKey: "simulated_tx_hash_1"},
	}
	require.NoError(t, gw.PublishPaymentEvent(context.Background(), models.NewPaymentEvent(models.PaymentEventSucceeded, tx)))

	select {
	case msg := <-msgCh:
		var event models.PaymentEvent
		require.NoError(t, json.Unmarshal(msg.Data, &event))
		assert.Equal(t, "ref_123", event.Reference)
		assert.Equal(t, models.TransactionStatusSuccess, event.Status)
		assert.Equal(t, "simulated_tx_hash_1", event.CryptoTransactionHash)
	case <-time.After(2 * time.Second):
		t.Fatal("did not receive payment event")
	}
}

func TestNATSGateway_UnknownEventType(t *testing.T) {
	gw := NewNATSGateway(nil)

	err := gw.PublishPaymentEvent(context.Background(), models.PaymentEvent{Type: "refunded"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown payment event type")
}

func TestNoopEventGW(t *testing.T) {
	assert.NoError(t, NoopEventGW{}.PublishPaymentEvent(context.Background(), models.PaymentEvent{}))
}
