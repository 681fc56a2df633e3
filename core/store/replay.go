package store

import (
	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/model"
)

// replay applies one recovered WAL frame directly to the in-memory tiers,
// bypassing WAL.Append (the frame is already durable). Tier changes into
// or out of Cold re-apply their ColdStore put or delete as well; both are
// idempotent. A recovering store replays forward only as far as bringing
// Hot/Warm back to the state they were in when the engine last shut down
// or crashed.
func (s *Store) replay(fr Frame) error {
	switch fr.Op {
	case OpRemember:
		var n model.Node
		if err := DecodeFrame(fr.Body, &n); err != nil {
			return err
		}
		s.placeByTier(n.ID, &n)

	case OpUpdate:
		var p updatePayload
		if err := DecodeFrame(fr.Body, &p); err != nil {
			return err
		}
		if n, ok := s.liveNodeLocked(p.ID); ok {
			n.Payload = []byte(p.Payload)
		}

	case OpAddTag:
		var p tagPayload
		if err := DecodeFrame(fr.Body, &p); err != nil {
			return err
		}
		if n, ok := s.liveNodeLocked(p.ID); ok {
			n.AddTag(p.Tag)
		}

	case OpRemoveTag:
		var p tagPayload
		if err := DecodeFrame(fr.Body, &p); err != nil {
			return err
		}
		if n, ok := s.liveNodeLocked(p.ID); ok {
			n.RemoveTag(p.Tag)
		}

	case OpConnect:
		var p edgePayload
		if err := DecodeFrame(fr.Body, &p); err != nil {
			return err
		}
		if n, ok := s.liveNodeLocked(p.Source); ok {
			if i := model.FindEdge(n.Edges, p.Target, p.Type); i >= 0 {
				n.Edges[i].Weight = p.Weight
			} else {
				n.Edges = append(n.Edges, model.Edge{Target: p.Target, Type: p.Type, Weight: p.Weight})
			}
		}

	case OpDisconnect:
		var p edgePayload
		if err := DecodeFrame(fr.Body, &p); err != nil {
			return err
		}
		if n, ok := s.liveNodeLocked(p.Source); ok {
			if i := model.FindEdge(n.Edges, p.Target, p.Type); i >= 0 {
				n.Edges = append(n.Edges[:i], n.Edges[i+1:]...)
			}
		}

	case OpForget:
		var id ident.ID
		if err := DecodeFrame(fr.Body, &id); err != nil {
			return err
		}
		delete(s.hot, id)
		delete(s.warm, id)

	case OpTierChange:
		var p tierChangePayload
		if err := DecodeFrame(fr.Body, &p); err != nil {
			return err
		}
		s.replayTierChange(p)

	case OpFeedback:
		var p feedbackPayload
		if err := DecodeFrame(fr.Body, &p); err != nil {
			return err
		}
		if n, ok := s.liveNodeLocked(p.ID); ok {
			n.Confidence = n.Confidence.ApplyEvidence(p.Magnitude)
		}

	case OpDecay:
		var p decayPayload
		if err := DecodeFrame(fr.Body, &p); err != nil {
			return err
		}
		if n, ok := s.liveNodeLocked(p.ID); ok {
			n.Confidence = p.Confidence
		}

	case OpCheckpoint:
		// marker only; snapshot generation bookkeeping happens via the
		// snapshot file itself, not the WAL.
	}
	return nil
}

func (s *Store) replayTierChange(p tierChangePayload) {
	switch {
	case p.From == model.TierHot && p.To == model.TierWarm:
		if n, ok := s.hot[p.ID]; ok {
			s.applyDemoteToWarm(n)
		}
	case p.From == model.TierWarm && p.To == model.TierHot:
		if n, ok := s.warm[p.ID]; ok {
			s.applyPromoteToHot(n)
		}
	case p.From == model.TierWarm && p.To == model.TierCold:
		if n, ok := s.warm[p.ID]; ok {
			_ = s.applyDemoteToCold(n)
		}
	case p.From == model.TierCold && p.To == model.TierHot:
		if n, err := s.cold.Get(p.ID); err == nil {
			n.Tier = model.TierHot
			s.hot[p.ID] = n
			s.coldCache.Remove(p.ID)
			_ = s.cold.Delete(p.ID)
		}
	}
}
