package root

import (
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestSetupLogging(t *testing.T) {
	defer log.SetLevel(log.InfoLevel)

	if err := setupLogging("debug", "json"); err != nil {
		t.Fatal(err)
	}
	if log.GetLevel() != log.DebugLevel {
		t.Errorf("level = %s", log.GetLevel())
	}
	if _, ok := log.StandardLogger().Formatter.(*log.JSONFormatter); !ok {
		t.Errorf("formatter = %T", log.StandardLogger().Formatter)
	}

	if err := setupLogging("loud", "text"); err == nil {
		t.Error("expected error for unknown level")
	}
	if err := setupLogging("info", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}

	_ = setupLogging("info", "text")
}

func TestMemoryComponent(t *testing.T) {
	Cmd.PersistentFlags().Set("metadata-store", "memory")
	defer Cmd.PersistentFlags().Set("metadata-store", "redis")

	cmpt := GetComponent(true, false, false, true)
	defer cmpt.Close()

	if cmpt.Store == nil || cmpt.DB == nil {
		t.Fatal("expected in-process stores")
	}
	if cmpt.Metric == nil || cmpt.Reporter == nil {
		t.Fatal("expected null metrics and reporter")
	}
}
