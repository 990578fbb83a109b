package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestS3ExportConfigEnabled(t *testing.T) {
	assert.False(t, S3ExportConfig{}.Enabled())
	assert.True(t, S3ExportConfig{Bucket: "zigquant-backtests"}.Enabled())
}
