package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		phone   string
		region  string
		want    string
		wantErr bool
	}{
		{"international input", "+1 (202) 456-1111", "MX", "+12024561111", false},
		{"national input with region", "(202) 456-1111", "US", "+12024561111", false},
		{"empty", "  ", "US", "", true},
		{"garbage", "abc", "US", "", true},
		{"too short", "123", "US", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.phone, tt.region)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBestEffort(t *testing.T) {
	assert.Equal(t, "+12024561111", BestEffort("202-456-1111", "US"))
	assert.Equal(t, "ext 12", BestEffort(" ext 12 ", "US"))
	assert.Equal(t, "", BestEffort("", "US"))
}

func TestRegion(t *testing.T) {
	assert.Equal(t, "US", Region("+12024561111"))
	assert.Equal(t, "", Region("2024561111"))
}
