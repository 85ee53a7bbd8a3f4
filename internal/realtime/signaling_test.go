package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signalingEnv(t *testing.T) (*testEnv, *Client, *Client, *Client) {
	t.Helper()
	env := newTestEnv(t)
	env.waitingStream("s1", "u-streamer")
	streamer := env.newClient("u-streamer", "hosty", "streamer")
	v1 := env.newClient("u1", "alice", "viewer")
	v2 := env.newClient("u2", "bob", "viewer")
	env.join(t, streamer, "s1")
	env.join(t, v1, "s1")
	env.join(t, v2, "s1")
	drain(streamer)
	drain(v1)
	drain(v2)
	return env, streamer, v1, v2
}

func TestOfferBroadcastExcludesSender(t *testing.T) {
	env, streamer, v1, v2 := signalingEnv(t)

	env.coord.HandleEvent(streamer, EventWebRTCOffer,
		json.RawMessage(`{"streamId":"s1","offer":{"type":"offer","sdp":"v=0..."}}`))

	for _, c := range []*Client{v1, v2} {
		msgs := drain(c)
		offer := findEvent(msgs, EventWebRTCOffer)
		require.NotNil(t, offer, "got %v", eventNames(msgs))
		var p OfferPayload
		require.NoError(t, json.Unmarshal(offer.Data, &p))
		assert.Equal(t, "u-streamer", p.From)
		assert.JSONEq(t, `{"type":"offer","sdp":"v=0..."}`, string(p.Offer), "payload must pass through untouched")
	}
	assert.Empty(t, drain(streamer), "sender must not receive its own offer")
}

func TestOfferUnicastToTarget(t *testing.T) {
	env, streamer, v1, v2 := signalingEnv(t)

	env.coord.HandleEvent(streamer, EventWebRTCOffer,
		json.RawMessage(`{"streamId":"s1","offer":{"sdp":"x"},"targetUserId":"u1"}`))

	require.NotNil(t, findEvent(drain(v1), EventWebRTCOffer))
	assert.Empty(t, drain(v2))
	assert.Empty(t, drain(streamer))
}

func TestAnswerIsAlwaysUnicast(t *testing.T) {
	env, streamer, v1, v2 := signalingEnv(t)

	env.coord.HandleEvent(v1, EventWebRTCAnswer,
		json.RawMessage(`{"streamId":"s1","answer":{"sdp":"a"},"targetUserId":"u-streamer"}`))

	msgs := drain(streamer)
	answer := findEvent(msgs, EventWebRTCAnswer)
	require.NotNil(t, answer)
	var p AnswerPayload
	require.NoError(t, json.Unmarshal(answer.Data, &p))
	assert.Equal(t, "u1", p.From)
	assert.Empty(t, drain(v2), "an answer is never broadcast")
}

func TestAnswerRequiresTarget(t *testing.T) {
	env, streamer, v1, v2 := signalingEnv(t)

	env.coord.HandleEvent(v1, EventWebRTCAnswer,
		json.RawMessage(`{"streamId":"s1","answer":{"sdp":"a"}}`))

	require.NotNil(t, findEvent(drain(v1), EventError))
	assert.Empty(t, drain(streamer))
	assert.Empty(t, drain(v2))
}

func TestICECandidateRouting(t *testing.T) {
	env, streamer, v1, v2 := signalingEnv(t)

	// targeted: only the target sees it
	env.coord.HandleEvent(v1, EventWebRTCICE,
		json.RawMessage(`{"streamId":"s1","candidate":{"candidate":"c0"},"targetUserId":"u-streamer"}`))
	require.NotNil(t, findEvent(drain(streamer), EventWebRTCICE))
	assert.Empty(t, drain(v2))

	// untargeted: everyone but the sender
	env.coord.HandleEvent(streamer, EventWebRTCICE,
		json.RawMessage(`{"streamId":"s1","candidate":{"candidate":"c1"}}`))
	require.NotNil(t, findEvent(drain(v1), EventWebRTCICE))
	require.NotNil(t, findEvent(drain(v2), EventWebRTCICE))
	assert.Empty(t, drain(streamer))
}

func TestSignalingTargetNotConnectedIsDropped(t *testing.T) {
	env, streamer, v1, v2 := signalingEnv(t)

	env.coord.HandleEvent(streamer, EventWebRTCOffer,
		json.RawMessage(`{"streamId":"s1","offer":{"sdp":"x"},"targetUserId":"u-gone"}`))

	// drop-and-log: no error event, no delivery, no retry
	assert.Empty(t, drain(streamer))
	assert.Empty(t, drain(v1))
	assert.Empty(t, drain(v2))
}

func TestRequestOfferRoutesToStreamer(t *testing.T) {
	env, streamer, v1, v2 := signalingEnv(t)

	// streamerUserId in the payload is not trusted; routing uses the stream
	// document's broadcaster
	env.coord.HandleEvent(v1, EventRequestOffer,
		json.RawMessage(`{"streamId":"s1","streamerUserId":"u2","requestingUserId":"someone-else"}`))

	msgs := drain(streamer)
	req := findEvent(msgs, EventRequestOffer)
	require.NotNil(t, req, "got %v", eventNames(msgs))
	var p RequestOfferPayload
	require.NoError(t, json.Unmarshal(req.Data, &p))
	assert.Equal(t, "u1", p.RequestingUserID, "requester is the sender's own identity")
	assert.Empty(t, drain(v2))
}

func TestSignalingRequiresMembership(t *testing.T) {
	env, streamer, _, _ := signalingEnv(t)

	outsider := env.newClient("u9", "eve", "viewer")
	env.coord.HandleEvent(outsider, EventWebRTCOffer,
		json.RawMessage(`{"streamId":"s1","offer":{"sdp":"x"}}`))

	require.NotNil(t, findEvent(drain(outsider), EventError))
	assert.Empty(t, drain(streamer))
}

func TestOfferRequiresPayload(t *testing.T) {
	env, streamer, _, _ := signalingEnv(t)

	env.coord.HandleEvent(streamer, EventWebRTCOffer,
		json.RawMessage(`{"streamId":"s1"}`))

	require.NotNil(t, findEvent(drain(streamer), EventError))
}
