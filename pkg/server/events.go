package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pointsbot/holdem/pkg/poker"
)

// archiveTimeout bounds saving one hand log.
const archiveTimeout = 5 * time.Second

// pumpEvents forwards room events to Events, archiving each finished
// hand's log on the way when the ledger keeps hand history.
func (s *Server) pumpEvents() {
	defer close(s.pumpDone)
	for {
		select {
		case <-s.quit:
			s.drainEvents()
			close(s.out)
			return
		case ev := <-s.roomEvents:
			s.handleEvent(ev)
		}
	}
}

// drainEvents handles events published before shutdown.
func (s *Server) drainEvents() {
	for {
		select {
		case ev := <-s.roomEvents:
			s.handleEvent(ev)
		default:
			return
		}
	}
}

func (s *Server) handleEvent(ev poker.RoomEvent) {
	s.mu.RLock()
	ev.Channel = s.channels[ev.RoomID]
	s.mu.RUnlock()
	if ev.Type == poker.EventGameOver {
		defer func() {
			s.mu.Lock()
			delete(s.channels, ev.RoomID)
			s.mu.Unlock()
		}()
	}

	if ev.Type == poker.EventHandComplete {
		if p, ok := ev.Payload.(poker.HandCompletePayload); ok && p.Log != nil {
			s.archiveHand(p.Log)
		}
	}

	select {
	case s.out <- ev:
	default:
		s.log.Warnf("Event queue full, dropping %s for room %s", ev.Type, ev.RoomID)
	}
}

func (s *Server) archiveHand(l *poker.HandLog) {
	if s.history == nil {
		return
	}
	data, err := json.Marshal(l)
	if err != nil {
		s.log.Errorf("Failed to encode hand %d of room %s: %v", l.HandNum, l.RoomID, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()
	if err := s.history.SaveHandLog(ctx, l.RoomID, l.HandNum, data); err != nil {
		s.log.Errorf("Failed to archive hand %d of room %s: %v", l.HandNum, l.RoomID, err)
	}
}

// HandLog loads an archived hand log.
func (s *Server) HandLog(ctx context.Context, roomID string, handNum int) (*poker.HandLog, error) {
	if s.history == nil {
		return nil, ErrNoHistory
	}
	data, err := s.history.LoadHandLog(ctx, roomID, handNum)
	if err != nil {
		return nil, err
	}
	var l poker.HandLog
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, err
	}
	return &l, nil
}
