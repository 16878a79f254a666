package broker

// Options are options for connecting to the broker.
type Options struct {
	// URL encodes how we'll connect to the broker.
	URL string

	// Queue is the name of the list build jobs are popped from.
	Queue string
}
