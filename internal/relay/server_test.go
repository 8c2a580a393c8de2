package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rudransh-shrivastava/peer-assist/internal/logger"
	"github.com/rudransh-shrivastava/peer-assist/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSummarizer struct{}

func (stubSummarizer) Summarize(_ context.Context, text string) (string, error) {
	return "summary of " + text, nil
}

func newTestRelay(t *testing.T) (*httptest.Server, *Client) {
	t.Helper()
	srv := NewServer(Options{Logger: logger.Discard(), Summarizer: stubSummarizer{}})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, NewClient(ts.URL, ts.Client())
}

func TestOfferIsDeliveredOnce(t *testing.T) {
	_, client := newTestRelay(t)
	ctx := context.Background()

	offer := transport.Description{ID: "desk", Type: transport.SDPTypeOffer, SDP: "v=0 offer"}
	require.NoError(t, client.PublishOffer(ctx, offer))

	got, err := client.TakeOffer(ctx)
	require.NoError(t, err)
	assert.Equal(t, offer, got)

	_, err = client.TakeOffer(ctx)
	assert.ErrorIs(t, err, transport.ErrNotPresent)
}

func TestAnswerIsDeliveredOnce(t *testing.T) {
	_, client := newTestRelay(t)
	ctx := context.Background()

	answer := transport.Description{ID: "phone", Type: transport.SDPTypeAnswer, SDP: "v=0 answer"}
	require.NoError(t, client.PublishAnswer(ctx, answer))

	got, err := client.TakeAnswer(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v=0 answer", got.SDP)

	_, err = client.TakeAnswer(ctx)
	assert.ErrorIs(t, err, transport.ErrNotPresent)

	_, err = client.TakeOffer(ctx)
	assert.ErrorIs(t, err, transport.ErrNotPresent, "answers must not leak into the offer mailbox")
}

func TestSecondOfferOverwritesFirst(t *testing.T) {
	_, client := newTestRelay(t)
	ctx := context.Background()

	require.NoError(t, client.PublishOffer(ctx, transport.Description{ID: "a", Type: transport.SDPTypeOffer, SDP: "first"}))
	require.NoError(t, client.PublishOffer(ctx, transport.Description{ID: "b", Type: transport.SDPTypeOffer, SDP: "second"}))

	got, err := client.TakeOffer(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", got.SDP)
}

func TestPublishWrongTypeIsRejected(t *testing.T) {
	_, client := newTestRelay(t)

	err := client.PublishOffer(context.Background(), transport.Description{ID: "x", Type: transport.SDPTypeAnswer, SDP: "sdp"})

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr), "expected StatusError, got %v", err)
	assert.Equal(t, http.StatusBadRequest, statusErr.Code)
}

func TestPublishAcceptsJSON(t *testing.T) {
	ts, client := newTestRelay(t)

	resp, err := ts.Client().Post(ts.URL+"/answer", "application/json",
		strings.NewReader(`{"id":"phone","type":"answer","sdp":"v=0"}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	got, err := client.TakeAnswer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "phone", got.ID)
}

func TestPublishMissingSDPIsRejected(t *testing.T) {
	ts, _ := newTestRelay(t)

	resp, err := ts.Client().PostForm(ts.URL+"/offer", url.Values{"id": {"x"}, "type": {"offer"}})
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTakeEmptyReturns503(t *testing.T) {
	ts, _ := newTestRelay(t)

	resp, err := ts.Client().Get(ts.URL + "/get_offer")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	_, client := newTestRelay(t)
	assert.NoError(t, client.Health(context.Background()))
}

func TestHealthReportsPendingDescriptions(t *testing.T) {
	ts, client := newTestRelay(t)
	ctx := context.Background()

	health := func() map[string]any {
		resp, err := ts.Client().Get(ts.URL + "/test")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return body
	}

	body := health()
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["offer_pending"])
	assert.Equal(t, false, body["answer_pending"])

	require.NoError(t, client.PublishOffer(ctx, transport.Description{ID: "desk", Type: transport.SDPTypeOffer, SDP: "v=0 offer"}))
	body = health()
	assert.Equal(t, true, body["offer_pending"])
	assert.Equal(t, false, body["answer_pending"])

	_, err := client.TakeOffer(ctx)
	require.NoError(t, err)
	assert.Equal(t, false, health()["offer_pending"])
}

func TestHealthFailsWhenRelayIsDown(t *testing.T) {
	ts, client := newTestRelay(t)
	ts.Close()

	assert.Error(t, client.Health(context.Background()))
}

func TestSummarize(t *testing.T) {
	ts, _ := newTestRelay(t)

	resp, err := ts.Client().Post(ts.URL+"/summarize", "application/json", strings.NewReader(`{"text":"shoes"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	plain := httptest.NewServer(NewServer(Options{Logger: logger.Discard()}).Handler())
	defer plain.Close()
	resp2, err := plain.Client().Post(plain.URL+"/summarize", "application/json", strings.NewReader(`{"text":"shoes"}`))
	require.NoError(t, err)
	_ = resp2.Body.Close()
	assert.Equal(t, http.StatusNotImplemented, resp2.StatusCode)
}

func TestServeStopsOnCancel(t *testing.T) {
	srv := NewServer(Options{Addr: "127.0.0.1:0", Logger: logger.Discard()})
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	client := NewClient("http://"+srv.Addr(), nil)
	require.Eventually(t, func() bool { return client.Health(context.Background()) == nil },
		defaultHTTPTimeout, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestMemorySignaler(t *testing.T) {
	sig := NewMemorySignaler()
	ctx := context.Background()

	require.NoError(t, sig.PublishOffer(ctx, transport.Description{ID: "a", Type: transport.SDPTypeOffer, SDP: "o"}))
	assert.Error(t, sig.PublishAnswer(ctx, transport.Description{ID: "a", Type: transport.SDPTypeOffer, SDP: "o"}))

	got, err := sig.TakeOffer(ctx)
	require.NoError(t, err)
	assert.Equal(t, "o", got.SDP)

	_, err = sig.TakeOffer(ctx)
	assert.ErrorIs(t, err, transport.ErrNotPresent)
}
