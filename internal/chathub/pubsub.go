package chathub

import (
	"context"
	"errors"
	"fmt"
)

// Run serves the hub until ctx is cancelled. With a bus configured it first
// subscribes to every room channel and delivers incoming events to local
// members; the subscription is live when Run starts blocking. On return all
// connections have been closed.
func (m *ManagerService) Run(ctx context.Context) error {
	defer func() {
		m.cancel()
		m.closeAll()
	}()

	if m.Bus == nil {
		m.log.Info().Msg("hub running with local delivery")
		<-ctx.Done()
		return nil
	}

	events, closeSub, err := m.Bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("chathub: %w", err)
	}
	defer func() {
		if err := closeSub(); err != nil {
			m.log.Warn().Err(err).Msg("closing room subscription")
		}
	}()
	m.log.Info().Msg("hub running with redis fan-out")

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("chathub: room subscription closed")
			}
			m.deliver(evt)
		}
	}
}
