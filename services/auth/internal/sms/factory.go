package sms

import (
	"sort"

	"github.com/diagnosis/verifywoo/services/auth/internal/domain"
)

// Constructor builds a driver from its settings. It must not perform network calls.
type Constructor func(settings map[string]string) (Gateway, error)

// Factory resolves a configured provider name to a driver. The set of drivers is fixed at construction.
type Factory struct {
	drivers map[string]Constructor
}

func NewFactory(drivers map[string]Constructor) *Factory {
	registry := make(map[string]Constructor, len(drivers))
	for name, ctor := range drivers {
		registry[name] = ctor
	}
	return &Factory{drivers: registry}
}

// DefaultDrivers is the production driver set.
func DefaultDrivers(opts ...KavenegarOption) map[string]Constructor {
	return map[string]Constructor{
		KavenegarDriverName: func(settings map[string]string) (Gateway, error) {
			return NewKavenegarDriver(settings, opts...)
		},
		LogDriverName: func(map[string]string) (Gateway, error) {
			return NewLogGateway(), nil
		},
	}
}

// Driver returns the adapter registered under name.
func (f *Factory) Driver(name string, settings map[string]string) (Gateway, error) {
	ctor, ok := f.drivers[name]
	if !ok {
		return nil, domain.UnsupportedDriver(name)
	}
	gw, err := ctor(settings)
	if err != nil {
		return nil, domain.DriverInitFailed(name, err)
	}
	return gw, nil
}

func (f *Factory) Names() []string {
	names := make([]string, 0, len(f.drivers))
	for name := range f.drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
