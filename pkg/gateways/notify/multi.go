package notify

import (
	"context"
	"strings"

	"github.com/janael-pinheiro/room-monitor-golang/pkg/monitor"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Named pairs a transport with the name used in logs.
type Named struct {
	Name     string
	Notifier monitor.Notifier
}

// Multi sends every notification through all transports. Delivery counts as
// confirmed when at least one transport confirms it.
type Multi struct {
	transports []Named
	log        *logrus.Entry
}

func NewMulti(log *logrus.Entry, transports ...Named) *Multi {
	return &Multi{transports: transports, log: log}
}

func (m *Multi) Notify(ctx context.Context, title, body string) error {
	if len(m.transports) == 0 {
		return errors.New("no notification transport configured")
	}

	var failures []string
	delivered := 0
	for _, transport := range m.transports {
		if err := transport.Notifier.Notify(ctx, title, body); err != nil {
			m.log.WithError(err).Warnf("%s failed to deliver %q", transport.Name, title)
			failures = append(failures, transport.Name+": "+err.Error())
			continue
		}
		delivered++
	}

	if delivered == 0 {
		return errors.Errorf("no transport delivered the notification (%s)", strings.Join(failures, "; "))
	}
	return nil
}
