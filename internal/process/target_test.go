package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetURL(t *testing.T) {
	tests := []struct {
		name     string
		target   Target
		endpoint string
		want     string
	}{
		{"plain", Target{Host: "localhost", Port: 8000}, "remove-background", "ws://localhost:8000/ws/remove-background"},
		{"secure", Target{Host: "gpu.example.com", Port: 443, Secure: true}, "generate-image", "wss://gpu.example.com:443/ws/generate-image"},
		{"ws path given", Target{Host: "localhost", Port: 8000}, "/ws/generate-3d-view", "ws://localhost:8000/ws/generate-3d-view"},
		{"leading slash", Target{Host: "localhost", Port: 8000}, "/generate-3d-model", "ws://localhost:8000/ws/generate-3d-model"},
		{"ipv6", Target{Host: "::1", Port: 8000}, "generate-image", "ws://[::1]:8000/ws/generate-image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.target.URL(tt.endpoint))
		})
	}
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		raw     string
		want    Target
		wantErr bool
	}{
		{raw: "ws://localhost:8000", want: Target{Host: "localhost", Port: 8000}},
		{raw: "http://127.0.0.1:51234", want: Target{Host: "127.0.0.1", Port: 51234}},
		{raw: "wss://gpu.example.com", want: Target{Host: "gpu.example.com", Port: 443, Secure: true}},
		{raw: "https://gpu.example.com:8443", want: Target{Host: "gpu.example.com", Port: 8443, Secure: true}},
		{raw: "ws://localhost", want: Target{Host: "localhost", Port: 80}},
		{raw: "ftp://localhost", wantErr: true},
		{raw: "ws://", wantErr: true},
		{raw: "ws://host:port", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseTarget(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
