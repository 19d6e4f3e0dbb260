package servicebus

import "fmt"

// Activity service naming convention: each activity process claims
// "<prefix><xid>" on the bus and exports its control interface at
// "<path>/<xid>".
const objectPathBase = "/org/hearth/Activity"

// ServiceName returns the bus name an activity claims for a window.
func ServiceName(prefix string, xid uint32) string {
	return fmt.Sprintf("%s%d", prefix, xid)
}

// ObjectPath returns the object path an activity exports for a window.
func ObjectPath(xid uint32) string {
	return fmt.Sprintf("%s/%d", objectPathBase, xid)
}
