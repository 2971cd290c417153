package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("CASHFLOW_TEST_MODE") == "" {
			_ = os.Setenv("CASHFLOW_TEST_MODE", "1")
		}
	})
}
