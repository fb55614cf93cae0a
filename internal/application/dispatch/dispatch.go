// Package dispatch implements the Dispatch Publisher: the step that takes a
// user's approved, assembled applications and routes each to its downstream
// applier queue: the native-portal providers_queue, or the
// browser-automation skyvern_queue for everything else.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/careerdocs/pipeline/internal/apperrors"
	"github.com/careerdocs/pipeline/internal/core"
)

const (
	// ProvidersQueue receives applications for portals with a native,
	// non-browser-automation applier.
	ProvidersQueue = "providers_queue"
	// SkyvernQueue receives everything else, driven by browser automation.
	SkyvernQueue = "skyvern_queue"
)

// Config controls which applier queues are enabled and which portals route
// to the native-provider path. Runtime-configurable rather than a
// compiled-in closed set, so new portals can be onboarded without a
// redeploy.
type Config struct {
	ProviderPortals  map[core.Portal]struct{}
	ProvidersEnabled bool
	SkyvernEnabled   bool
}

// message is the wire shape published to an applier queue: one application
// per message, keyed under content by its correlation id so the shape
// matches what a consumer already expects from assembled_applications.
type message struct {
	UserID  int64                                `json:"user_id"`
	Content map[string]core.AssembledApplication `json:"content"`
}

// Dispatcher routes and publishes assembled applications to applier queues.
type Dispatcher struct {
	repo   Repository
	bus    Bus
	config Config
}

// New creates a Dispatcher.
func New(repo Repository, bus Bus, config Config) *Dispatcher {
	return &Dispatcher{repo: repo, bus: bus, config: config}
}

// SubmitAll dispatches every unsent assembled application for userID. A
// per-application failure is logged and does not stop the rest of the
// batch from being attempted; the returned error is non-nil only if the
// repository lookup itself failed.
func (d *Dispatcher) SubmitAll(ctx context.Context, userID int64) error {
	apps, err := d.repo.GetUnsentApplications(ctx, userID)
	if err != nil {
		return fmt.Errorf("list unsent applications for user %d: %w", userID, err)
	}
	d.submitEach(ctx, userID, apps)
	return nil
}

// SubmitSelected dispatches only the unsent applications among ids, so a
// user can resend a specific subset without re-dispatching everything
// already sent. If none of ids resolves to an unsent application, it
// returns apperrors.NoApplicationsResolved rather than silently doing
// nothing.
func (d *Dispatcher) SubmitSelected(ctx context.Context, userID int64, ids []string) error {
	apps, err := d.repo.GetApplications(ctx, userID, ids)
	if err != nil {
		return fmt.Errorf("list selected applications for user %d: %w", userID, err)
	}

	unsent := make([]core.AssembledApplication, 0, len(apps))
	for _, app := range apps {
		if !app.Sent {
			unsent = append(unsent, app)
		}
	}
	if len(unsent) == 0 {
		return apperrors.NoApplicationsResolved{UserID: userID, IDs: ids}
	}

	d.submitEach(ctx, userID, unsent)
	return nil
}

func (d *Dispatcher) submitEach(ctx context.Context, userID int64, apps []core.AssembledApplication) {
	for _, app := range apps {
		if err := d.submitOne(ctx, userID, app); err != nil {
			slog.WarnContext(ctx, "failed to dispatch application",
				"user_id", userID, "correlation_id", app.ID, "portal", app.Job.Portal, "err", err)
		}
	}
}

func (d *Dispatcher) submitOne(ctx context.Context, userID int64, app core.AssembledApplication) error {
	queue, err := d.route(app.Job.Portal)
	if err != nil {
		return err
	}

	body, err := json.Marshal(message{
		UserID:  userID,
		Content: map[string]core.AssembledApplication{app.ID: app},
	})
	if err != nil {
		return fmt.Errorf("marshal applier message for %s: %w", app.ID, err)
	}

	if err := d.bus.Publish(ctx, queue, body); err != nil {
		return apperrors.Transient(fmt.Errorf("publish to %s: %w", queue, err))
	}

	// sent is flipped only after a successful publish; a publish failure
	// must leave the application eligible for a later resubmission.
	if err := d.repo.MarkSent(ctx, userID, app.ID, time.Now()); err != nil {
		return fmt.Errorf("mark application %s sent: %w", app.ID, err)
	}

	slog.InfoContext(ctx, "dispatched application", "user_id", userID, "correlation_id", app.ID, "queue", queue)
	return nil
}

// route decides which applier queue portal targets, honoring the
// enabled/disabled flags in Config.
func (d *Dispatcher) route(portal core.Portal) (string, error) {
	_, isProvider := d.config.ProviderPortals[portal]

	if isProvider {
		if !d.config.ProvidersEnabled {
			return "", apperrors.RoutingDisabled{Portal: string(portal), Queue: ProvidersQueue}
		}
		return ProvidersQueue, nil
	}

	if !d.config.SkyvernEnabled {
		return "", apperrors.RoutingDisabled{Portal: string(portal), Queue: SkyvernQueue}
	}
	return SkyvernQueue, nil
}
