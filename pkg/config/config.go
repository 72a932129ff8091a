// Package config holds the flat configuration surface consumed by the
// core, built programmatically by the caller rather than parsed from
// a file — the same posture the StackConfig/ManagerConfig types take.
package config

// EncryptionPolicy mirrors server_av_encryption_policy.
type EncryptionPolicy int

const (
	EncryptionObeyServer EncryptionPolicy = iota
	EncryptionRejected
	EncryptionOptional
	EncryptionRequired
)

// PortRange is an inclusive [Min, Max] port interval.
type PortRange struct {
	Min int
	Max int
}

// Config is the full configuration surface named in the external
// interfaces section of this core.
type Config struct {
	MinMediaPort int
	MaxMediaPort int
	MinAudioPort int
	MaxAudioPort int
	MinVideoPort int
	MinFTPort int
	MaxFTPort int
	MinAppShare int
	MaxAppShare int

	EncryptionPolicy EncryptionPolicy

	MRASURI string
	TestCallBotURI string
	UCLineURI string

	OCS2007 bool
	Lync2013 bool
	RemoteUser bool
}

// Option mutates a Config at construction time.
type Option func(*Config)

// Default returns the port ranges and policy the manager's own
// DefaultManagerConfig uses for its analogous fields, adapted to the
// five named ranges this core requires.
func Default(opts ...Option) *Config {
	c := &Config{
		MinMediaPort: 49152,
		MaxMediaPort: 65535,
		MinAudioPort: 50000,
		MaxAudioPort: 50199,
		// The video range ends at MaxAudioPort (see VideoPortRange), so
		// MinVideoPort must not exceed it.
		MinVideoPort: 50100,
		MinFTPort: 50200,
		MaxFTPort: 50299,
		MinAppShare: 50300,
		MaxAppShare: 50399,
		EncryptionPolicy: EncryptionObeyServer,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithMRASURI(uri string) Option { return func(c *Config) { c.MRASURI = uri } }
func WithTestCallBotURI(uri string) Option { return func(c *Config) { c.TestCallBotURI = uri } }
func WithUCLineURI(uri string) Option { return func(c *Config) { c.UCLineURI = uri } }
func WithEncryptionPolicy(p EncryptionPolicy) Option {
	return func(c *Config) { c.EncryptionPolicy = p }
}
func WithOCS2007(v bool) Option { return func(c *Config) { c.OCS2007 = v } }
func WithLync2013(v bool) Option { return func(c *Config) { c.Lync2013 = v } }
func WithRemoteUser(v bool) Option { return func(c *Config) { c.RemoteUser = v } }

// VideoPortRange returns [MinVideoPort, MaxAudioPort] — reproducing
// the upstream copy-paste bug verbatim rather than silently fixing it
// (see the Stream Manager open question).
func (c *Config) VideoPortRange() PortRange {
	return PortRange{Min: c.MinVideoPort, Max: c.MaxAudioPort}
}

func (c *Config) AudioPortRange() PortRange {
	return PortRange{Min: c.MinAudioPort, Max: c.MaxAudioPort}
}

func (c *Config) DataPortRange() PortRange {
	return PortRange{Min: c.MinFTPort, Max: c.MaxFTPort}
}

func (c *Config) AppSharingPortRange() PortRange {
	return PortRange{Min: c.MinAppShare, Max: c.MaxAppShare}
}

func (c *Config) MediaPortRange() PortRange {
	return PortRange{Min: c.MinMediaPort, Max: c.MaxMediaPort}
}
