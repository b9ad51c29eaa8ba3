package notify

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/iliyamo/smartcity-intake/internal/model"
	"github.com/iliyamo/smartcity-intake/internal/service/ports"
)

// Dispatcher sends a notification to the applicant through primary and
// copies it to every alert channel.  Only the primary result is reported.
type Dispatcher struct {
	primary ports.Notifier
	alerts  []ports.Notifier
	log     *zap.Logger
}

func NewDispatcher(primary ports.Notifier, log *zap.Logger, alerts ...ports.Notifier) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	d := &Dispatcher{primary: primary, log: log}
	for _, a := range alerts {
		if a != nil {
			d.alerts = append(d.alerts, a)
		}
	}
	return d
}

func (d *Dispatcher) Notify(ctx context.Context, n model.Notification) (bool, error) {
	for _, a := range d.alerts {
		if _, err := a.Notify(ctx, n); err != nil {
			d.log.Warn("admin alert failed", zap.String("kind", string(n.Kind)), zap.Error(err))
		}
	}
	if d.primary == nil {
		return false, nil
	}
	return d.primary.Notify(ctx, n)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
