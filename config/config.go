// Package config loads the controller settings from a YAML file.
package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"tinygo.org/x/baseband"
	"tinygo.org/x/baseband/filter"
)

// File is the layout of the configuration file. Durations are in
// microseconds unless the key says otherwise.
type File struct {
	Roles         []string `yaml:"roles"`
	SetupDelay    uint32   `yaml:"setup_delay_us"`
	MaxScanPeriod uint32   `yaml:"max_scan_period_us"`

	Advertising Advertising `yaml:"advertising"`
	Connection  Connection  `yaml:"connection"`
	Filter      Filter      `yaml:"filter"`
	Log         Log         `yaml:"log"`
}

type Advertising struct {
	IntervalMillis  uint32 `yaml:"interval_ms"`
	InterChannelGap uint32 `yaml:"inter_channel_gap_us"`
	ChannelMap      uint8  `yaml:"channel_map"`
	Address         string `yaml:"address"`
	RandomAddress   bool   `yaml:"random_address"`
}

type Connection struct {
	AccessAddress uint32 `yaml:"access_address"`
	CRCInit       uint32 `yaml:"crc_init"`
	Channel       uint8  `yaml:"channel"`
}

type Filter struct {
	Policy             string   `yaml:"policy"` // "all" or "accept_list"
	Duplicates         bool     `yaml:"duplicates"`
	DuplicateCacheSize int      `yaml:"duplicate_cache_size"`
	ResolveCacheSize   int      `yaml:"resolve_cache_size"`
	AcceptList         []string `yaml:"accept_list"`
}

type Log struct {
	Level string `yaml:"level"`
}

// Default returns the settings used when no file is given.
func Default() File {
	def := baseband.DefaultConfig()
	return File{
		Roles:         []string{"observer", "broadcaster", "central", "peripheral"},
		SetupDelay:    uint32(def.SetupDelay),
		MaxScanPeriod: uint32(def.MaxScanPeriod),
		Advertising: Advertising{
			IntervalMillis:  100,
			InterChannelGap: 1500,
			ChannelMap:      uint8(baseband.AllAdvChannels),
			Address:         "C0:FF:EE:00:00:01",
			RandomAddress:   true,
		},
		Connection: Connection{
			AccessAddress: 0x50654c5a,
			CRCInit:       0x555555,
		},
		Filter: Filter{
			Policy:             "all",
			DuplicateCacheSize: filter.DefaultDuplicateCacheSize,
			ResolveCacheSize:   filter.DefaultResolveCacheSize,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads the file at path. A missing file yields the defaults.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return File{}, errors.Wrapf(err, "config: read %s", path)
	}
	f, err := Parse(data)
	if err != nil {
		return File{}, errors.Wrapf(err, "config: %s", path)
	}
	return f, nil
}

// Parse decodes data on top of the defaults. Unknown keys are an error.
func Parse(data []byte) (File, error) {
	f := Default()
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return File{}, errors.Wrap(err, "parse")
	}
	if err := f.validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

func (f File) validate() error {
	if _, err := f.roles(); err != nil {
		return err
	}
	if _, err := f.policy(); err != nil {
		return err
	}
	if f.Advertising.ChannelMap&^uint8(baseband.AllAdvChannels) != 0 || f.Advertising.ChannelMap == 0 {
		return errors.Errorf("invalid advertising channel map %#x", f.Advertising.ChannelMap)
	}
	if f.Connection.Channel > 36 {
		return errors.Errorf("invalid data channel %d", f.Connection.Channel)
	}
	if _, err := baseband.ParseAddress(f.Advertising.Address); err != nil {
		return errors.Wrap(err, "advertising address")
	}
	for _, s := range f.Filter.AcceptList {
		if _, err := baseband.ParseAddress(strings.TrimSuffix(s, "/random")); err != nil {
			return errors.Wrapf(err, "accept list entry %q", s)
		}
	}
	return nil
}

var roleNames = map[string]baseband.Roles{
	"observer":    baseband.RoleObserver,
	"broadcaster": baseband.RoleBroadcaster,
	"central":     baseband.RoleCentral,
	"peripheral":  baseband.RolePeripheral,
	"test":        baseband.RoleTest,
}

func (f File) roles() (baseband.Roles, error) {
	var roles baseband.Roles
	for _, name := range f.Roles {
		r, ok := roleNames[strings.ToLower(name)]
		if !ok {
			return 0, errors.Errorf("unknown role %q", name)
		}
		roles |= r
	}
	return roles, nil
}

func (f File) policy() (baseband.FilterPolicy, error) {
	switch f.Filter.Policy {
	case "", "all":
		return baseband.FilterAcceptAll, nil
	case "accept_list":
		return baseband.FilterAcceptList, nil
	}
	return 0, errors.Errorf("unknown filter policy %q", f.Filter.Policy)
}

// Controller returns the controller configuration.
func (f File) Controller() baseband.Config {
	roles, _ := f.roles()
	return baseband.Config{
		Roles:         roles,
		SetupDelay:    baseband.Usecs(f.SetupDelay),
		MaxScanPeriod: baseband.Usecs(f.MaxScanPeriod),
	}
}

// LocalAddress returns the advertising address.
func (f File) LocalAddress() (baseband.Address, bool) {
	addr, _ := baseband.ParseAddress(f.Advertising.Address)
	return addr, f.Advertising.RandomAddress
}

// FilterConfig returns the per-operation filter configuration.
func (f File) FilterConfig() baseband.FilterConfig {
	policy, _ := f.policy()
	addr, random := f.LocalAddress()
	return baseband.FilterConfig{
		Policy:           policy,
		LocalAddr:        addr,
		LocalRandom:      random,
		FilterDuplicates: f.Filter.Duplicates,
	}
}

// NewFilter returns a filter with the configured accept list. Entries are
// public addresses unless suffixed with "/random".
func (f File) NewFilter() (*filter.Filter, error) {
	flt, err := filter.New(f.Filter.DuplicateCacheSize, f.Filter.ResolveCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "config: filter")
	}
	for _, s := range f.Filter.AcceptList {
		random := strings.HasSuffix(s, "/random")
		addr, err := baseband.ParseAddress(strings.TrimSuffix(s, "/random"))
		if err != nil {
			return nil, errors.Wrapf(err, "config: accept list entry %q", s)
		}
		flt.Accept(addr, random)
	}
	return flt, nil
}

// DataChannel returns the channel parameters of the configured connection.
func (f File) DataChannel() baseband.ChannelParams {
	return baseband.ChannelParams{
		PHY:           baseband.PHY1M,
		Index:         f.Connection.Channel,
		AccessAddress: f.Connection.AccessAddress,
		CRCInit:       f.Connection.CRCInit,
	}
}
