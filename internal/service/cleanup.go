package service

import (
	"context"
	"time"
)

const (
	cleanupInterval = time.Minute
	emptyChatTTL    = 20 * time.Minute
)

// RunCleanup sweeps abandoned chats until the context is canceled. A chat
// that never received a message within emptyChatTTL of creation is
// deleted; anything with at least one message is kept forever.
func (s *ChatService) RunCleanup(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-emptyChatTTL)
			if err := s.chats.DeleteEmptyBefore(ctx, cutoff); err != nil {
				s.log.Warnf("cleanup: delete empty chats: %v", err)
			}
		}
	}
}
