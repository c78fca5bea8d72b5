package server

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pointsbot/holdem/pkg/poker"
)

// CreateRoom seats players in a new room for channel using the configured
// blinds. A buyIn of 0 seats each player with their whole balance;
// otherwise every player needs at least buyIn points. Players may only sit
// in one room at a time.
func (s *Server) CreateRoom(ctx context.Context, channel string, players []string, buyIn int64) (string, error) {
	return s.createRoom(ctx, channel, players, buyIn, s.cfg.SmallBlind, s.cfg.BigBlind)
}

func (s *Server) createRoom(ctx context.Context, channel string, players []string, buyIn, sb, bb int64) (string, error) {
	if buyIn < 0 {
		return "", fmt.Errorf("invalid buy-in %d", buyIn)
	}
	if len(players) < 2 {
		return "", fmt.Errorf("need at least 2 players, got %d", len(players))
	}
	if len(players) > s.cfg.MaxPlayers {
		return "", fmt.Errorf("too many players: %d > %d", len(players), s.cfg.MaxPlayers)
	}

	seats := make([]poker.Seat, 0, len(players))
	for _, id := range players {
		bal, err := s.ledger.GetBalance(ctx, id)
		if err != nil {
			return "", fmt.Errorf("failed to get balance of %s: %w", id, err)
		}
		stack := bal
		if buyIn > 0 {
			if bal < buyIn {
				return "", fmt.Errorf("%s has %d points, buy-in is %d: %w", id, bal, buyIn, ErrInsufficientFunds)
			}
			stack = buyIn
		} else if bal <= 0 {
			return "", fmt.Errorf("%s has no points: %w", id, ErrInsufficientFunds)
		}
		seats = append(seats, poker.Seat{ID: id, Stack: stack})
	}

	roomID := uuid.New().String()
	room, err := poker.NewRoom(poker.RoomConfig{
		ID:            roomID,
		Log:           s.logBackend.Logger("ROOM"),
		SmallBlind:    sb,
		BigBlind:      bb,
		TurnTimeout:   s.cfg.TurnTimeout,
		NextHandDelay: s.cfg.NextHandDelay,
		RandomButton:  s.cfg.RandomButton,
		NewDeck:       s.cfg.NewDeck,
		Settler:       s,
		Events:        s.roomEvents,
		OnGameOver:    s.roomFinished,
	}, seats)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrServerClosed
	}
	if _, ok := s.rooms[channel]; ok {
		return "", ErrChannelBusy
	}
	if _, ok := s.lobbies[channel]; ok {
		return "", ErrChannelBusy
	}
	for _, id := range players {
		if ch, ok := s.seated[id]; ok {
			return "", fmt.Errorf("%s is in %s: %w", id, ch, ErrAlreadySeated)
		}
	}
	for _, id := range players {
		s.seated[id] = channel
	}
	s.rooms[channel] = &roomEntry{channel: channel, room: room}
	s.channels[roomID] = channel
	s.log.Infof("Created room %s in %s for %v (blinds %d/%d)", roomID, channel, players, sb, bb)
	return roomID, nil
}

// room returns the channel's room. The server lock is released before the
// caller touches the room.
func (s *Server) room(channel string) (*poker.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.rooms[channel]
	if !ok {
		return nil, fmt.Errorf("no room in %s: %w", channel, ErrRoomNotFound)
	}
	return e.room, nil
}

// Room returns the channel's room.
func (s *Server) Room(channel string) (*poker.Room, error) {
	return s.room(channel)
}

// PlayerChannel returns the channel a player is seated in, if any.
func (s *Server) PlayerChannel(playerID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.seated[playerID]
	return ch, ok
}

// StartHand deals the next hand in the channel's room.
func (s *Server) StartHand(channel string) error {
	r, err := s.room(channel)
	if err != nil {
		return err
	}
	return r.StartHand()
}

// ApplyAction applies a player's action in the channel's room.
func (s *Server) ApplyAction(channel, playerID string, a poker.Action) error {
	r, err := s.room(channel)
	if err != nil {
		return err
	}
	return r.ApplyAction(playerID, a)
}

// Controls returns the legal actions for a player in the channel's room.
func (s *Server) Controls(channel, playerID string) (poker.Controls, error) {
	r, err := s.room(channel)
	if err != nil {
		return poker.Controls{}, err
	}
	return r.LegalActions(playerID), nil
}

// View returns the public table state of the channel's room.
func (s *Server) View(channel string) (poker.RoomView, error) {
	r, err := s.room(channel)
	if err != nil {
		return poker.RoomView{}, err
	}
	return r.View(), nil
}

// HoleCards returns a player's private cards in the channel's room.
func (s *Server) HoleCards(channel, playerID string) ([]poker.Card, error) {
	r, err := s.room(channel)
	if err != nil {
		return nil, err
	}
	return r.HoleCards(playerID), nil
}

// StopRoom ends the channel's room, refunding any hand in progress, and
// returns its final settlement.
func (s *Server) StopRoom(channel, reason string) (poker.Settlement, error) {
	s.mu.Lock()
	e, ok := s.rooms[channel]
	if !ok {
		s.mu.Unlock()
		return poker.Settlement{}, fmt.Errorf("no room in %s: %w", channel, ErrRoomNotFound)
	}
	s.removeRoomLocked(e)
	s.mu.Unlock()

	st := e.room.Stop(reason)
	s.log.Infof("Stopped room %s in %s: %s", st.RoomID, channel, reason)
	return st, nil
}

// roomFinished is the rooms' game-over callback. Rooms that end on their
// own are dropped from the registry here.
func (s *Server) roomFinished(roomID string, st poker.Settlement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.rooms {
		if e.room.ID() == roomID {
			s.removeRoomLocked(e)
			s.log.Infof("Room %s in %s is over after %d hands: %s", roomID, e.channel, st.Hands, st.Reason)
			return
		}
	}
}

func (s *Server) removeRoomLocked(e *roomEntry) {
	for _, id := range e.room.PlayerIDs() {
		if s.seated[id] == e.channel {
			delete(s.seated, id)
		}
	}
	delete(s.rooms, e.channel)
}
