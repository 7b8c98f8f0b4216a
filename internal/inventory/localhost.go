package inventory

import "os"

// DefaultLocalhostAliases are the names recognized as the local machine
// when no explicit alias set is configured.
var DefaultLocalhostAliases = []string{"localhost", "127.0.0.1", "::1"}

// Variables set on the implicit localhost.
const (
	// VarConnection carries the connection mode; the implicit localhost
	// always connects locally.
	VarConnection = "connection"

	// VarInterpreter carries the interpreter path used when executing on
	// the host.
	VarInterpreter = "interpreter"
)

const (
	loopbackAddress     = "127.0.0.1"
	fallbackInterpreter = "/bin/sh"
)

func (s *Store) isLocalhostAlias(name string) bool {
	_, ok := s.aliases[name]
	return ok
}

// createImplicitLocalhost returns the canonical localhost, constructing the
// synthetic implicit host on first use. Exactly one canonical instance is
// returned across the store's lifetime regardless of which alias is
// queried.
func (s *Store) createImplicitLocalhost(alias string) *Host {
	if s.localhost != nil {
		return s.localhost
	}

	h := NewHost(alias, 0)
	h.Address = loopbackAddress
	h.Implicit = true

	interp, err := os.Executable()
	if err != nil || interp == "" {
		interp = fallbackInterpreter
		s.warnf("unable to determine interpreter path for %s, using %s. Set the %q variable to correct this", alias, fallbackInterpreter, VarInterpreter)
	}
	h.SetVariable(VarInterpreter, interp)
	h.SetVariable(VarConnection, "local")

	s.localhost = h
	s.hosts[alias] = h

	return h
}
