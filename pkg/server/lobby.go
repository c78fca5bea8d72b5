package server

import (
	"context"
	"fmt"
	"time"
)

// Lobby gathers players in a channel before a room is dealt. The host
// opens it, picks the big blind and decides when to start.
type Lobby struct {
	Channel    string
	HostID     string
	SmallBlind int64
	BigBlind   int64
	Players    []string // join order, host first
	CreatedAt  time.Time
}

func (l *Lobby) has(playerID string) bool {
	for _, id := range l.Players {
		if id == playerID {
			return true
		}
	}
	return false
}

func (l *Lobby) clone() *Lobby {
	c := *l
	c.Players = append([]string(nil), l.Players...)
	return &c
}

// addUser adds a player to the lobby.
func (l *Lobby) addUser(playerID string, maxPlayers int) error {
	if len(l.Players) >= maxPlayers {
		return fmt.Errorf("lobby is full")
	}
	if l.has(playerID) {
		return fmt.Errorf("%s already in lobby", playerID)
	}
	l.Players = append(l.Players, playerID)
	return nil
}

// removeUser removes a player from the lobby, handing host to the next
// player in join order if the host leaves.
func (l *Lobby) removeUser(playerID string) error {
	for i, id := range l.Players {
		if id != playerID {
			continue
		}
		l.Players = append(l.Players[:i], l.Players[i+1:]...)
		if playerID == l.HostID && len(l.Players) > 0 {
			l.HostID = l.Players[0]
		}
		return nil
	}
	return fmt.Errorf("%s not in lobby", playerID)
}

// OpenLobby opens a lobby in channel hosted by host. A bigBlind of 0 uses
// the configured default; the small blind is half the big blind. The host
// must have points to play with.
func (s *Server) OpenLobby(ctx context.Context, channel, host string, bigBlind int64) (*Lobby, error) {
	if bigBlind < 0 {
		return nil, fmt.Errorf("invalid big blind %d", bigBlind)
	}
	if bigBlind == 0 {
		bigBlind = s.cfg.BigBlind
	}
	smallBlind := bigBlind / 2
	if smallBlind <= 0 {
		return nil, fmt.Errorf("big blind %d is too small", bigBlind)
	}
	if err := s.checkBalance(ctx, host); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkFreeLocked(channel, host); err != nil {
		return nil, err
	}
	l := &Lobby{
		Channel:    channel,
		HostID:     host,
		SmallBlind: smallBlind,
		BigBlind:   bigBlind,
		Players:    []string{host},
		CreatedAt:  time.Now(),
	}
	s.lobbies[channel] = l
	s.seated[host] = channel
	s.log.Infof("%s opened a lobby in %s (blinds %d/%d)", host, channel, smallBlind, bigBlind)
	return l.clone(), nil
}

// JoinLobby adds a player to the channel's lobby.
func (s *Server) JoinLobby(ctx context.Context, channel, playerID string) (*Lobby, error) {
	if err := s.checkBalance(ctx, playerID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lobbies[channel]
	if !ok {
		return nil, fmt.Errorf("no lobby in %s: %w", channel, ErrLobbyNotFound)
	}
	if ch, ok := s.seated[playerID]; ok {
		return nil, fmt.Errorf("%s is in %s: %w", playerID, ch, ErrAlreadySeated)
	}
	if err := l.addUser(playerID, s.cfg.MaxPlayers); err != nil {
		return nil, err
	}
	s.seated[playerID] = channel
	return l.clone(), nil
}

// LeaveLobby removes a player from the channel's lobby. The lobby closes
// when its last player leaves.
func (s *Server) LeaveLobby(channel, playerID string) (*Lobby, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lobbies[channel]
	if !ok {
		return nil, fmt.Errorf("no lobby in %s: %w", channel, ErrLobbyNotFound)
	}
	if err := l.removeUser(playerID); err != nil {
		return nil, err
	}
	delete(s.seated, playerID)
	if len(l.Players) == 0 {
		delete(s.lobbies, channel)
		s.log.Infof("Lobby in %s closed: everyone left", channel)
		return nil, nil
	}
	return l.clone(), nil
}

// CloseLobby cancels the channel's lobby. Only the host may close it.
func (s *Server) CloseLobby(channel, host string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lobbies[channel]
	if !ok {
		return fmt.Errorf("no lobby in %s: %w", channel, ErrLobbyNotFound)
	}
	if l.HostID != host {
		return ErrNotHost
	}
	s.dropLobbyLocked(l)
	return nil
}

// Lobby returns a copy of the channel's lobby, if any.
func (s *Server) Lobby(channel string) (*Lobby, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.lobbies[channel]
	if !ok {
		return nil, false
	}
	return l.clone(), true
}

// StartLobby turns the channel's lobby into a room and deals the first
// hand. Only the host can start it, and it needs at least two players.
func (s *Server) StartLobby(ctx context.Context, channel, host string) (string, error) {
	s.mu.Lock()
	l, ok := s.lobbies[channel]
	if !ok {
		s.mu.Unlock()
		return "", fmt.Errorf("no lobby in %s: %w", channel, ErrLobbyNotFound)
	}
	if l.HostID != host {
		s.mu.Unlock()
		return "", ErrNotHost
	}
	if len(l.Players) < 2 {
		s.mu.Unlock()
		return "", fmt.Errorf("need at least 2 players to start, have %d", len(l.Players))
	}
	lobby := l.clone()
	s.dropLobbyLocked(l)
	s.mu.Unlock()

	roomID, err := s.createRoom(ctx, channel, lobby.Players, s.cfg.BuyIn, lobby.SmallBlind, lobby.BigBlind)
	if err != nil {
		return "", err
	}
	if err := s.StartHand(channel); err != nil {
		return roomID, err
	}
	return roomID, nil
}

func (s *Server) dropLobbyLocked(l *Lobby) {
	for _, id := range l.Players {
		if s.seated[id] == l.Channel {
			delete(s.seated, id)
		}
	}
	delete(s.lobbies, l.Channel)
}

// checkBalance fails with ErrInsufficientFunds if the player has nothing
// to play with.
func (s *Server) checkBalance(ctx context.Context, playerID string) error {
	bal, err := s.ledger.GetBalance(ctx, playerID)
	if err != nil {
		return fmt.Errorf("failed to get balance of %s: %w", playerID, err)
	}
	if bal <= 0 {
		return fmt.Errorf("%s has no points: %w", playerID, ErrInsufficientFunds)
	}
	return nil
}

// checkFreeLocked verifies the channel has no game and the player sits
// nowhere.
func (s *Server) checkFreeLocked(channel, playerID string) error {
	if s.closed {
		return ErrServerClosed
	}
	if _, ok := s.lobbies[channel]; ok {
		return ErrChannelBusy
	}
	if _, ok := s.rooms[channel]; ok {
		return ErrChannelBusy
	}
	if ch, ok := s.seated[playerID]; ok {
		return fmt.Errorf("%s is in %s: %w", playerID, ch, ErrAlreadySeated)
	}
	return nil
}
