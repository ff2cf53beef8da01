// Package capture records audio from host input devices.
//
// The Provider interface abstracts the host capability set (enumerate, open,
// read chunks, close) so the Session state machine stays testable without
// real hardware. ALSAProvider is the production implementation, shelling out
// to arecord; Monitor watches udev for sound-card hotplug events.
//
// The one invariant worth internalizing: the capture device is open if and
// only if the session is recording or paused. Stop and Reset always release
// it, and both are safe no-ops when nothing is active.
package capture
