// Package guard forces test mode for binaries exercised from tests. Import it
// for side effects only.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("PANELSYNC_TEST_MODE") == "" {
			_ = os.Setenv("PANELSYNC_TEST_MODE", "1")
		}
	})
}
