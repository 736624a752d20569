package srtp

import "github.com/kailua-labs/srtp/internal/logging"

// log is this package's tagged logger. It must never be given key material
// or full authentication tag bytes; only SSRCs, indices, and error kinds
// are logged.
var log = logging.DefaultLogger.WithTag("srtp")
