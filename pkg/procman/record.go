package procman

import (
	"net"
	"strings"
	"time"

	"github.com/nadare881/rvc-webui/pkg/kv"
)

// recordPrefix is the kv prefix under which server records live.
var recordPrefix = kv.Key{"server"}

// Instance identifies one server by the address it listens on.
type Instance struct {
	Host string
	Port string
}

// Addr returns host:port.
func (i Instance) Addr() string { return net.JoinHostPort(i.Host, i.Port) }

func (i Instance) String() string { return i.Addr() }

// segmentEscaper keeps host and port from spilling across kv key segments,
// so IPv6 hosts like "::1" stay in one segment and distinct instances never
// share a key.
var segmentEscaper = strings.NewReplacer("%", "%25", ":", "%3A")

func (i Instance) key() kv.Key {
	return kv.Key{"server", segmentEscaper.Replace(i.Host), segmentEscaper.Replace(i.Port)}
}

// Record is the persisted state of a started server.
type Record struct {
	Host      string    `msgpack:"host" json:"host" yaml:"host"`
	Port      string    `msgpack:"port" json:"port" yaml:"port"`
	PID       int       `msgpack:"pid" json:"pid" yaml:"pid"`
	Command   []string  `msgpack:"command" json:"command" yaml:"command"`
	LogFile   string    `msgpack:"log_file,omitempty" json:"log_file,omitempty" yaml:"log_file,omitempty"`
	StartedAt time.Time `msgpack:"started_at" json:"started_at" yaml:"started_at"`

	// StartTicks is the platform's start time of PID, when it can be read.
	// It tells the recorded process apart from a later one reusing the pid.
	StartTicks uint64 `msgpack:"start_ticks,omitempty" json:"start_ticks,omitempty" yaml:"start_ticks,omitempty"`

	// Running is computed on read and never stored.
	Running bool `msgpack:"-" json:"running" yaml:"running"`
}

// Instance returns the instance the record belongs to.
func (r *Record) Instance() Instance { return Instance{Host: r.Host, Port: r.Port} }

// Uptime returns how long the server has been up, or zero if it is not
// running.
func (r *Record) Uptime() time.Duration {
	if !r.Running || r.StartedAt.IsZero() {
		return 0
	}
	return time.Since(r.StartedAt).Truncate(time.Second)
}

// sameProcess reports whether rec.PID still belongs to the server that was
// started for rec.
func sameProcess(rec *Record) bool {
	if !alive(rec.PID) {
		return false
	}
	if rec.StartTicks != 0 {
		if st, ok := processStart(rec.PID); ok && st != rec.StartTicks {
			return false
		}
	}
	return true
}
