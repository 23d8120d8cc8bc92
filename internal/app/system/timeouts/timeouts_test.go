package timeouts

import (
	"testing"
	"time"
)

func TestConfigureOverridesTiers(t *testing.T) {
	t.Cleanup(Reset)

	Configure(Config{
		Ping:   time.Second,
		Short:  2 * time.Second,
		Medium: 3 * time.Second,
		Long:   4 * time.Second,
	})

	if Ping() != time.Second {
		t.Errorf("Ping() = %v", Ping())
	}
	if Short() != 2*time.Second {
		t.Errorf("Short() = %v", Short())
	}
	if Medium() != 3*time.Second {
		t.Errorf("Medium() = %v", Medium())
	}
	if Long() != 4*time.Second {
		t.Errorf("Long() = %v", Long())
	}
}

func TestConfigureIgnoresZeroValues(t *testing.T) {
	t.Cleanup(Reset)

	Configure(Config{Short: time.Minute})
	if Short() != time.Minute {
		t.Errorf("Short() = %v", Short())
	}
	// Unset tiers keep their defaults.
	if Medium() != DefaultMedium {
		t.Errorf("Medium() = %v, want default %v", Medium(), DefaultMedium)
	}
	if Long() != DefaultLong {
		t.Errorf("Long() = %v, want default %v", Long(), DefaultLong)
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	Configure(Config{Ping: time.Hour, Long: time.Hour})
	Reset()

	if Ping() != DefaultPing || Long() != DefaultLong {
		t.Errorf("after Reset: Ping() = %v, Long() = %v", Ping(), Long())
	}
}
