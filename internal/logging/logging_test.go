package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ryandielhenn/bytelru/pkg/kv"
)

func TestNew(t *testing.T) {
	tests := map[string]struct {
		cfg     Config
		wantErr bool
		enabled zapcore.Level
	}{
		"defaults":         {cfg: DefaultConfig(), enabled: zapcore.InfoLevel},
		"json debug":       {cfg: Config{Level: "debug", Format: "json"}, enabled: zapcore.DebugLevel},
		"upper case level": {cfg: Config{Level: "WARN", Format: "console"}, enabled: zapcore.WarnLevel},
		"bad level":        {cfg: Config{Level: "loud", Format: "json"}, wantErr: true},
		"bad format":       {cfg: Config{Level: "info", Format: "xml"}, wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			r := require.New(t)
			log, err := New(tc.cfg)
			if tc.wantErr {
				r.Error(err)
				return
			}
			r.NoError(err)
			r.True(log.Core().Enabled(tc.enabled))
			r.False(log.Core().Enabled(tc.enabled - 1))
		})
	}
}

func TestEvictionLogger(t *testing.T) {
	r := require.New(t)
	core, logs := observer.New(zapcore.DebugLevel)

	s := kv.MustNewStore(4)
	s.OnEvict(EvictionLogger(zap.New(core)))

	r.NoError(s.Put("a", []byte("1")))
	r.NoError(s.Put("b", []byte("2")))
	r.NoError(s.Put("c", []byte("3")))

	entries := logs.FilterMessage("evicted").All()
	r.Len(entries, 1)
	r.Equal("a", entries[0].ContextMap()["key"])
	r.EqualValues(2, entries[0].ContextMap()["bytes"])
}
