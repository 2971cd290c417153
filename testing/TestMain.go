package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("CASHFLOW_TEST_MODE", "1")
		if os.Getenv("SMTP_HOST") == "" {
			_ = os.Setenv("SMTP_HOST", "127.0.0.1")
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
