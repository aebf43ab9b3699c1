package frontend

import "errors"

// ErrNoServiceConfig is returned by Registry.GetConnection when no .jep
// service configuration matches the given file.
var ErrNoServiceConfig = errors.New("frontend: no service configuration found")
