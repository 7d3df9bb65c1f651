// Package cloud talks to the smart-plug vendor cloud through a JSON bridge.
package cloud

import (
	"context"
	"errors"
	"fmt"

	"github.com/kalambet/plugvox/internal/device"
)

// ErrAuth is returned when the vendor rejects the account credentials.
var ErrAuth = errors.New("cloud: authentication failed")

// CommandError reports a device command the vendor refused or could not run.
type CommandError struct {
	UUID    string
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("cloud: command on %s failed: %s", e.UUID, e.Message)
}

// Cloud opens authenticated sessions against a vendor account.
type Cloud interface {
	Login(ctx context.Context, email, password string) (Session, error)
}

// Session is a live authenticated connection. Every Session returned by Login
// must be closed with Logout.
type Session interface {
	Devices(ctx context.Context) ([]device.Record, error)
	SetPower(ctx context.Context, uuid string, on bool) error
	Logout(ctx context.Context) error
}
