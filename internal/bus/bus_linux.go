//go:build linux

package bus

import (
	"context"
	"fmt"
	"log"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/austinkregel/local-media/audiod/internal/ipc"
)

const introspectXML = `
<node>
	<interface name="` + busInterface + `">
		<method name="Dispatch">
			<arg direction="in" type="s" name="request"/>
			<arg direction="out" type="s" name="response"/>
		</method>
		<method name="Ping">
			<arg direction="out" type="s" name="reply"/>
		</method>
	</interface>` + introspect.IntrospectDataString + `</node>`

// DBusBus owns the session bus connection
type DBusBus struct {
	conn *dbus.Conn
}

// New connects to the session bus and exports the engine. ctx is the parent
// of every request dispatched over the bus.
func New(ctx context.Context, router *ipc.Router) (Bus, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	reply, err := conn.RequestName(busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to request bus name: %w", err)
	}

	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return nil, fmt.Errorf("bus name already taken")
	}

	obj := &engineObject{ctx: ctx, router: router}
	if err := conn.Export(obj, dbus.ObjectPath(busObjectPath), busInterface); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to export engine: %w", err)
	}
	if err := conn.Export(introspect.Introspectable(introspectXML), dbus.ObjectPath(busObjectPath), "org.freedesktop.DBus.Introspectable"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to export introspection: %w", err)
	}

	log.Printf("[DBUS] Exported %s at %s", busName, busObjectPath)
	return &DBusBus{conn: conn}, nil
}

// Close releases the bus name and closes the connection
func (b *DBusBus) Close() error {
	if b.conn == nil {
		return nil
	}
	if _, err := b.conn.ReleaseName(busName); err != nil {
		log.Printf("[DBUS] Failed to release name: %v", err)
	}
	return b.conn.Close()
}
