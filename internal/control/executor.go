// Package control executes smart-plug commands against the vendor cloud and
// orchestrates speech-driven commands.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kalambet/plugvox/internal/cloud"
	"github.com/kalambet/plugvox/internal/credentials"
	"github.com/kalambet/plugvox/internal/device"
	"github.com/kalambet/plugvox/internal/intent"
)

const (
	// DefaultTimeout bounds a whole vendor session.
	DefaultTimeout = 15 * time.Second
	logoutTimeout  = 5 * time.Second
)

// ErrNoAction is returned when the requested action does not switch a device.
var ErrNoAction = errors.New("control: no device action requested")

// AuthError reports that the vendor rejected the account credentials.
type AuthError struct {
	Email string
	Err   error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("control: signing in as %s: %v", e.Email, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// DeviceNotFoundError reports a device identity absent from the account.
type DeviceNotFoundError struct {
	Query string
}

func (e *DeviceNotFoundError) Error() string {
	return fmt.Sprintf("control: device %q not found", e.Query)
}

// Target selects the device for a command. A non-empty UUID is looked up by
// identity; otherwise Query is resolved by name, and an empty Query means the
// default device.
type Target struct {
	UUID  string
	Query string
}

// Result is the outcome of a device command. Success is false when the vendor
// refused or failed the command.
type Result struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Device  device.Record `json:"device"`
}

// Executor runs device commands, opening one vendor session per call.
type Executor struct {
	cloud    cloud.Cloud
	resolver device.Resolver
	timeout  time.Duration
}

// NewExecutor creates an Executor. A zero timeout uses DefaultTimeout.
func NewExecutor(c cloud.Cloud, resolver device.Resolver, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{cloud: c, resolver: resolver, timeout: timeout}
}

// Resolver returns the resolver used for name lookups.
func (e *Executor) Resolver() device.Resolver { return e.resolver }

// Execute switches the target device on or off. The vendor session is always
// closed before Execute returns, including when the command fails or panics.
// Commands are sent once and never retried.
func (e *Executor) Execute(ctx context.Context, creds credentials.Record, target Target, action intent.Action) (Result, error) {
	if !action.Actionable() {
		return Result{}, ErrNoAction
	}

	var res Result
	err := e.withSession(ctx, creds, func(ctx context.Context, sess cloud.Session) error {
		devices, err := sess.Devices(ctx)
		if err != nil {
			return err
		}

		dev, err := e.pick(target, devices)
		if err != nil {
			return err
		}
		res.Device = dev

		on := action == intent.ActionTurnOn
		if err := sess.SetPower(ctx, dev.UUID, on); err != nil {
			var ce *cloud.CommandError
			if errors.As(err, &ce) {
				slog.Warn("vendor rejected command", "device", dev.Name, "uuid", dev.UUID, "message", ce.Message)
				res.Message = ce.Message
				return nil
			}
			return err
		}

		res.Success = true
		if on {
			res.Message = "Turned on " + dev.Name
		} else {
			res.Message = "Turned off " + dev.Name
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	slog.Info("device command", "action", string(action), "device", res.Device.Name, "success", res.Success)
	return res, nil
}

// Devices lists the account's devices after the configured type filter.
func (e *Executor) Devices(ctx context.Context, creds credentials.Record) ([]device.Record, error) {
	var out []device.Record
	err := e.withSession(ctx, creds, func(ctx context.Context, sess cloud.Session) error {
		devices, err := sess.Devices(ctx)
		if err != nil {
			return err
		}
		out = device.FilterType(devices, e.resolver.TypeFilter)
		return nil
	})
	return out, err
}

// Probe signs in to check the credentials and reports how many devices the
// account has.
func (e *Executor) Probe(ctx context.Context, creds credentials.Record) (int, error) {
	devices, err := e.Devices(ctx, creds)
	if err != nil {
		return 0, err
	}
	return len(devices), nil
}

func (e *Executor) pick(target Target, devices []device.Record) (device.Record, error) {
	if target.UUID != "" {
		dev, ok := device.ByUUID(device.FilterType(devices, e.resolver.TypeFilter), target.UUID)
		if !ok {
			return device.Record{}, &DeviceNotFoundError{Query: target.UUID}
		}
		return dev, nil
	}

	r, err := e.resolver.Resolve(target.Query, devices)
	if err != nil {
		return device.Record{}, err
	}
	slog.Debug("resolved device", "query", target.Query, "device", r.Device.Name, "tier", r.Tier.String())
	return r.Device, nil
}

// withSession opens a vendor session bounded by the executor timeout, runs fn,
// and logs out exactly once on every path.
func (e *Executor) withSession(ctx context.Context, creds credentials.Record, fn func(context.Context, cloud.Session) error) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	sess, err := e.cloud.Login(ctx, creds.Email, creds.Password)
	if err != nil {
		if errors.Is(err, cloud.ErrAuth) {
			return &AuthError{Email: creds.Email, Err: err}
		}
		return fmt.Errorf("opening vendor session: %w", err)
	}

	defer func() {
		lctx, lcancel := context.WithTimeout(context.WithoutCancel(ctx), logoutTimeout)
		defer lcancel()
		if err := sess.Logout(lctx); err != nil {
			slog.Warn("vendor logout failed", "error", err)
		}
	}()

	return fn(ctx, sess)
}
