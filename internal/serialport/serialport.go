// Package serialport lists the serial ports of the host and checks whether a
// board answers on one of them.
package serialport

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"ampyfm/internal/errors"
	"ampyfm/internal/log"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// Port describes one candidate serial port
type Port struct {
	Name    string
	IsUSB   bool
	VID     string
	PID     string
	Product string
}

// Label renders the port for a chooser list
func (p Port) Label() string {
	if !p.IsUSB {
		return p.Name
	}
	desc := fmt.Sprintf("%s:%s", p.VID, p.PID)
	if p.Product != "" {
		desc += " " + p.Product
	}
	return fmt.Sprintf("%s (%s)", p.Name, desc)
}

// Prober checks that a port can be opened at baud
type Prober func(port string, baud int) error

// Lister enumerates the available ports
type Lister func() ([]Port, error)

// open is swapped in tests
var open = func(name string, mode *serial.Mode) (serial.Port, error) {
	return serial.Open(name, mode)
}

// Probe opens and immediately closes port. Any failure is reported as a
// *errors.DeviceError for port.
func Probe(port string, baud int) error {
	s, err := open(port, &serial.Mode{BaudRate: baud})
	if err != nil {
		log.LogWithFields(log.F("port", port), log.F("baud", baud)).Debugf("probe failed: %v", err)
		return errors.NewDeviceError(port, err)
	}
	if err := s.Close(); err != nil {
		log.LogWithFields(log.F("port", port)).Debugf("close after probe: %v", err)
	}
	return nil
}

// IsBusy reports whether a probe failure looks like another program holding
// the port rather than the port being absent.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	var portErr *serial.PortError
	if errors.As(err, &portErr) && portErr.Code() == serial.PortBusy {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "busy") ||
		strings.Contains(msg, "denied") ||
		strings.Contains(msg, "in use")
}

// List returns the ports sorted by name. On macOS the /dev/tty.* nodes are
// listed, elsewhere the detailed enumerator is used with the plain port list
// as fallback.
func List() ([]Port, error) {
	var ports []Port
	switch runtime.GOOS {
	case "darwin":
		names, err := filepath.Glob("/dev/tty.*")
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			ports = append(ports, Port{Name: n})
		}
	default:
		details, err := enumerator.GetDetailedPortsList()
		if err == nil && len(details) > 0 {
			for _, d := range details {
				ports = append(ports, Port{
					Name:    d.Name,
					IsUSB:   d.IsUSB,
					VID:     d.VID,
					PID:     d.PID,
					Product: d.Product,
				})
			}
			break
		}
		if err != nil {
			log.Debugf("detailed port enumeration failed: %v", err)
		}
		names, err := serial.GetPortsList()
		if err != nil {
			return nil, errors.Wrap(err, "listing serial ports")
		}
		for _, n := range names {
			ports = append(ports, Port{Name: n})
		}
	}

	sortPorts(ports)
	return ports, nil
}

func sortPorts(ports []Port) {
	sort.Slice(ports, func(i, j int) bool { return ports[i].Name < ports[j].Name })
}
