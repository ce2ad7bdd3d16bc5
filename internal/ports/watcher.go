package ports

// Watcher monitors a file for changes. Editors often replace a file instead of
// writing it in place, so the adapter watches the parent directory and filters
// events down to the target path.
type Watcher interface {
	// Watch starts monitoring path. onChange is called with the absolute path
	// after each debounced write, create, remove or rename. The callback may be
	// invoked from any goroutine. Returns an error if the parent directory
	// doesn't exist or permissions are insufficient.
	Watch(path string, onChange func(path string)) error

	// Stop ends monitoring and releases all resources. After Stop returns,
	// no further onChange calls will fire. Safe to call multiple times.
	Stop() error
}
