package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

type taggedRow struct {
	ID   uint `gorm:"primaryKey"`
	Tags StringArray
}

func TestNewSQLiteRoundTripsStringArray(t *testing.T) {
	db, err := New(&Config{Driver: "sqlite", FilePath: filepath.Join(t.TempDir(), "test.db"), LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db, &taggedRow{}))

	require.NoError(t, db.Create(&taggedRow{Tags: StringArray{"imdb", "with,comma"}}).Error)
	require.NoError(t, db.Create(&taggedRow{}).Error)

	var rows []taggedRow
	require.NoError(t, db.Order("id").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, StringArray{"imdb", "with,comma"}, rows[0].Tags)
	assert.Nil(t, rows[1].Tags)

	require.NoError(t, Close(db))
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := New(&Config{Driver: "oracle"})
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestStringArrayScan(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want StringArray
	}{
		{name: "string", in: `["a","b"]`, want: StringArray{"a", "b"}},
		{name: "bytes", in: []byte(`["a","b,c"]`), want: StringArray{"a", "b,c"}},
		{name: "empty array", in: "[]", want: StringArray{}},
		{name: "empty column", in: "", want: nil},
		{name: "null", in: nil, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a StringArray
			require.NoError(t, a.Scan(tt.in))
			assert.Equal(t, tt.want, a)
		})
	}

	var a StringArray
	assert.Error(t, a.Scan(42))
	assert.Error(t, a.Scan("{a,b}"), "native postgres arrays are not used")
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, parseLogLevel("SILENT"))
	assert.Equal(t, logger.Error, parseLogLevel("error"))
	assert.Equal(t, logger.Info, parseLogLevel("info"))
	assert.Equal(t, logger.Warn, parseLogLevel(""))
}
