package ichor

import (
	"time"

	"github.com/volt-software/ichor-go/internal/kconfig"
)

// Config is the kernel's own tunable surface: the ring-queue backend's
// knobs plus the choice of queue backend. It is
// a plain struct so embedding Kernel construction in a larger
// application never forces that application onto koanf; LoadConfig is
// offered for processes that do want the layered
// defaults/file/environment behavior of internal/kconfig.
type Config struct {
	QuitTimeout           time.Duration
	PollTimeout           time.Duration
	EmulatedKernelVersion string
	RingEntries           uint32
	RingEntrySize         uint32

	// QueueBackend selects "multimap" or "ring". Any other value, or
	// "ring" on a platform/kernel without io_uring support, falls back
	// to "multimap".
	QueueBackend string

	LogLevel       string
	LogFormat      string
	MetricsEnabled bool
}

// DefaultConfig returns the kernel's built-in defaults.
func DefaultConfig() Config {
	return fromKconfig(kconfig.Default())
}

// LoadConfig loads configuration the way the rest of this module's
// ambient stack does: built-in defaults layered under an optional YAML
// file and ICHOR_-prefixed environment variables.
func LoadConfig() (Config, error) {
	c, err := kconfig.Load()
	if err != nil {
		return Config{}, err
	}
	return fromKconfig(c), nil
}

func fromKconfig(c kconfig.Config) Config {
	return Config{
		QuitTimeout:           c.QuitTimeout,
		PollTimeout:           c.PollTimeout,
		EmulatedKernelVersion: c.EmulatedKernelVersion,
		RingEntries:           c.Ring.Entries,
		RingEntrySize:         c.Ring.EntrySize,
		QueueBackend:          c.QueueBackend,
		LogLevel:              c.LogLevel,
		LogFormat:             c.LogFormat,
		MetricsEnabled:        c.MetricsEnabled,
	}
}
