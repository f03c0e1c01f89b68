package domain

// UnknownProgramName is displayed for allow-listed addresses without a name.
const UnknownProgramName = "Unknown Program"

// Program is an on-chain program of interest.
type Program struct {
	Address string `yaml:"address" json:"address"`
	Name    string `yaml:"name"    json:"name"`
}

// Registry maps program addresses to display names. It is built once at
// startup and never mutated, so it is safe for concurrent readers.
type Registry struct {
	programs []Program
	names    map[string]string
}

// NewRegistry builds a registry. The first entry wins for duplicate addresses.
func NewRegistry(programs []Program) *Registry {
	r := &Registry{names: make(map[string]string, len(programs))}
	for _, p := range programs {
		if _, ok := r.names[p.Address]; ok {
			continue
		}
		r.names[p.Address] = p.Name
		r.programs = append(r.programs, p)
	}
	return r
}

// Name returns the display name for address, or UnknownProgramName.
func (r *Registry) Name(address string) string {
	if name := r.names[address]; name != "" {
		return name
	}
	return UnknownProgramName
}

// Contains reports whether address is registered.
func (r *Registry) Contains(address string) bool {
	_, ok := r.names[address]
	return ok
}

// Addresses returns the registered addresses in registration order.
func (r *Registry) Addresses() []string {
	out := make([]string, 0, len(r.programs))
	for _, p := range r.programs {
		out = append(out, p.Address)
	}
	return out
}

// Programs returns a copy of the registered programs.
func (r *Registry) Programs() []Program {
	return append([]Program(nil), r.programs...)
}
