package plugin

// Metadata describes a plugin for registry listings and discovery.
type Metadata struct {
	// Name is the step type the plugin registers under.
	Name string

	// Version is the plugin's own version.
	Version string

	// APIVersion pins compatibility with the host agent contract.
	APIVersion string

	// Stateful marks plugins whose Apply has side effects outside the
	// managed resource itself (for example vault initialization, which
	// mints root credentials).
	Stateful bool

	// Description is a one-line summary for listings.
	Description string
}
