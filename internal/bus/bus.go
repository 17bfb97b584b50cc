// Package bus exports the engine on the D-Bus session bus. Requests and
// responses use the same JSON as the socket protocol.
package bus

import (
	"context"

	"github.com/godbus/dbus/v5"

	"github.com/austinkregel/local-media/audiod/internal/ipc"
)

const (
	busName       = "org.audiod.Engine"
	busInterface  = "org.audiod.Engine1"
	busObjectPath = "/org/audiod/Engine"
)

// Bus is an exported engine; Close releases the bus name
type Bus interface {
	Close() error
}

// engineObject is the value exported at busObjectPath
type engineObject struct {
	ctx    context.Context
	router *ipc.Router
}

// Dispatch runs one JSON-encoded request and returns the JSON response
func (o *engineObject) Dispatch(request string) (string, *dbus.Error) {
	resp := o.router.Handle(o.ctx, []byte(request))
	data, err := ipc.EncodeResponse(resp)
	if err != nil {
		return "", dbus.MakeFailedError(err)
	}
	return string(data), nil
}

// Ping lets clients check that the engine is exported
func (o *engineObject) Ping() (string, *dbus.Error) {
	return "pong", nil
}
