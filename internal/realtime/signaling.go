package realtime

import (
	"encoding/json"

	"go.uber.org/zap"
)

// WebRTC signaling relay: content-opaque store-and-forward. Payloads are
// checked only for presence, never decoded. Delivery is at-most-once and
// best-effort; a missing target means drop-and-log, never queue or retry.

func (co *Coordinator) handleOffer(c *Client, data json.RawMessage) {
	var req offerRequest
	if err := json.Unmarshal(data, &req); err != nil || len(req.Offer) == 0 {
		c.sendError("offer payload is required")
		return
	}
	streamID, ok := co.boundStreamID(c, data)
	if !ok {
		return
	}
	co.hub.Dispatch(streamID, func(r *Room) {
		payload := OfferPayload{StreamID: streamID, From: c.session.UserID, Offer: req.Offer}
		if req.TargetUserID != "" {
			if !r.unicast(req.TargetUserID, EventWebRTCOffer, payload) {
				co.logDropped(streamID, EventWebRTCOffer, req.TargetUserID)
			}
			return
		}
		// Streamer's initial fan-out: everyone but the sender.
		r.broadcast(EventWebRTCOffer, payload, c.session.ConnectionID)
	})
}

func (co *Coordinator) handleAnswer(c *Client, data json.RawMessage) {
	var req answerRequest
	if err := json.Unmarshal(data, &req); err != nil || len(req.Answer) == 0 {
		c.sendError("answer payload is required")
		return
	}
	// An answer responds to one specific offer; it is never broadcast.
	if req.TargetUserID == "" {
		c.sendError("targetUserId is required for an answer")
		return
	}
	streamID, ok := co.boundStreamID(c, data)
	if !ok {
		return
	}
	co.hub.Dispatch(streamID, func(r *Room) {
		payload := AnswerPayload{StreamID: streamID, From: c.session.UserID, Answer: req.Answer}
		if !r.unicast(req.TargetUserID, EventWebRTCAnswer, payload) {
			co.logDropped(streamID, EventWebRTCAnswer, req.TargetUserID)
		}
	})
}

func (co *Coordinator) handleICECandidate(c *Client, data json.RawMessage) {
	var req iceCandidateRequest
	if err := json.Unmarshal(data, &req); err != nil || len(req.Candidate) == 0 {
		c.sendError("candidate payload is required")
		return
	}
	streamID, ok := co.boundStreamID(c, data)
	if !ok {
		return
	}
	co.hub.Dispatch(streamID, func(r *Room) {
		payload := ICECandidatePayload{StreamID: streamID, From: c.session.UserID, Candidate: req.Candidate}
		if req.TargetUserID != "" {
			if !r.unicast(req.TargetUserID, EventWebRTCICE, payload) {
				co.logDropped(streamID, EventWebRTCICE, req.TargetUserID)
			}
			return
		}
		r.broadcast(EventWebRTCICE, payload, c.session.ConnectionID)
	})
}

// handleRequestOffer routes a renegotiation request to the streamer's
// connection, asking it to send a fresh offer targeted at the requester.
// The target is the stream document's streamer (cached on the room), not
// whatever the payload claims; the requesting identity is the sender's own.
func (co *Coordinator) handleRequestOffer(c *Client, data json.RawMessage) {
	streamID, ok := co.boundStreamID(c, data)
	if !ok {
		return
	}
	co.hub.Dispatch(streamID, func(r *Room) {
		payload := RequestOfferPayload{StreamID: streamID, RequestingUserID: c.session.UserID}
		if !r.unicast(r.streamerUserID, EventRequestOffer, payload) {
			co.logDropped(streamID, EventRequestOffer, r.streamerUserID)
		}
	})
}

func (co *Coordinator) logDropped(streamID, event, targetUserID string) {
	co.logger.Warn("dropping signaling message",
		zap.String("stream_id", streamID),
		zap.String("event", event),
		zap.String("target_user_id", targetUserID),
		zap.Error(ErrTargetNotConnected))
}
