package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{312, "312 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{17 * 1024 * 1024 * 1024 / 10, "1.7 GB"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, FormatSize(tt.bytes))
	}
}

func TestFormatSizeU_ClampsOversized(t *testing.T) {
	require.Equal(t, "4.0 EB", FormatSizeU(1<<63))
	require.Equal(t, "2.0 KB", FormatSizeU(2048))
}
