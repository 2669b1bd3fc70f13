package sshclient

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// DefaultKeepaliveSchedule is the cron spec used when none is configured.
const DefaultKeepaliveSchedule = "@every 30s"

// Requester sends global requests on an SSH connection. *ssh.Client
// satisfies it.
type Requester interface {
	SendRequest(name string, wantReply bool, payload []byte) (bool, []byte, error)
}

// Keepalive pings the server on a cron schedule. The first failed ping is
// reported through onFail and stops further pings.
type Keepalive struct {
	cron   *cron.Cron
	conn   Requester
	onFail func(error)

	mu     sync.Mutex
	failed bool
}

// StartKeepalive schedules keepalive@openssh.com requests on conn.
func StartKeepalive(conn Requester, schedule string, onFail func(error)) (*Keepalive, error) {
	if schedule == "" {
		schedule = DefaultKeepaliveSchedule
	}
	k := &Keepalive{
		cron:   cron.New(cron.WithSeconds()),
		conn:   conn,
		onFail: onFail,
	}
	if _, err := k.cron.AddFunc(schedule, k.ping); err != nil {
		return nil, fmt.Errorf("invalid keepalive schedule %q: %w", schedule, err)
	}
	k.cron.Start()
	log.Debug().Str("schedule", schedule).Msg("keepalive started")
	return k, nil
}

func (k *Keepalive) ping() {
	k.mu.Lock()
	if k.failed {
		k.mu.Unlock()
		return
	}
	k.mu.Unlock()

	// Servers without a handler answer false, which still proves liveness.
	if _, _, err := k.conn.SendRequest("keepalive@openssh.com", true, nil); err != nil {
		k.mu.Lock()
		k.failed = true
		k.mu.Unlock()
		log.Warn().Err(err).Msg("keepalive failed")
		if k.onFail != nil {
			k.onFail(err)
		}
	}
}

// Stop halts the schedule and waits for a running ping to finish.
func (k *Keepalive) Stop() {
	ctx := k.cron.Stop()
	<-ctx.Done()
}
